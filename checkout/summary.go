// Package checkout turns the signed-in user's cart into payment records.
package checkout

import (
	"github.com/jrsteele09/course-storefront/api"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is applied when no rate is configured.
var DefaultTaxRate = decimal.RequireFromString("0.15")

// Summary is the order total shown beside the billing form.
type Summary struct {
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Summarize adds up the cart. There is never a discount.
func Summarize(items []api.CartItem, taxRate decimal.Decimal) Summary {
	price := decimal.Zero
	for _, item := range items {
		price = price.Add(decimal.NewFromFloat(item.Price))
	}
	tax := price.Mul(taxRate)
	return Summary{
		Price:    price,
		Discount: decimal.Zero,
		Tax:      tax,
		Total:    price.Add(tax),
	}
}

// ItemTotal is what one payment record charges for a cart item.
func ItemTotal(item api.CartItem, taxRate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(1).Add(taxRate))
}
