package checkout

import (
	"strings"

	"github.com/jrsteele09/course-storefront/internal/validation"
)

type Method string

const (
	MethodCredit Method = "credit"
	MethodPayPal Method = "paypal"
)

// PaymentMethod is the value the remote API stores for the method.
func (m Method) PaymentMethod() string {
	if m == MethodPayPal {
		return "PayPal"
	}
	return "Credit"
}

func ParseMethod(s string) Method {
	if strings.EqualFold(strings.TrimSpace(s), string(MethodPayPal)) {
		return MethodPayPal
	}
	return MethodCredit
}

const MsgInvalidForm = "Please fill all required fields correctly."

// BillingForm is the checkout form as typed.
type BillingForm struct {
	Method     Method `json:"paymentMethod"`
	Country    string `json:"country"`
	State      string `json:"state"`
	CardName   string `json:"cardName"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVC        string `json:"cvc"`
}

type address struct {
	Country string `json:"country" validate:"notblank"`
	State   string `json:"state" validate:"notblank"`
}

type card struct {
	CardName   string `json:"cardName" validate:"notblank"`
	CardNumber string `json:"cardNumber" validate:"notblank,digits,len=16"`
	ExpiryDate string `json:"expiryDate" validate:"notblank,mmyy"`
	CVC        string `json:"cvc" validate:"notblank,digits,min=3,max=4"`
}

var billingMessages = validation.Messages{
	"country":             "Country is required. Please enter your country.",
	"state":               "State is required. Please enter your state or union territory.",
	"cardName":            "Card name is required. Please enter the name on the card.",
	"cardNumber.notblank": "Card number is required. Please enter your 16-digit card number.",
	"cardNumber":          "Card number must be exactly 16 digits. Please enter a valid card number without spaces or dashes.",
	"expiryDate.notblank": "Expiry date is required. Please enter MM/YY format.",
	"expiryDate":          "Invalid expiry date. Please enter in MM/YY format (e.g., 09/25).",
	"cvc.notblank":        "CVC is required. Please enter the 3-4 digit code on the back of your card.",
	"cvc":                 "CVC must be 3 or 4 digits. Please enter a valid CVC.",
}

// Validate checks the address, and the card fields when paying by card.
func (f BillingForm) Validate() error {
	fields := validation.FieldErrors{}
	parts := []any{address{Country: f.Country, State: f.State}}
	if f.Method != MethodPayPal {
		parts = append(parts, card{CardName: f.CardName, CardNumber: f.CardNumber, ExpiryDate: f.ExpiryDate, CVC: f.CVC})
	}
	for _, part := range parts {
		err := validation.Struct(part, billingMessages)
		if err == nil {
			continue
		}
		fe, ok := err.(validation.FieldErrors)
		if !ok {
			return err
		}
		for k, v := range fe {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &validation.Error{Message: MsgInvalidForm, Fields: fields}
}
