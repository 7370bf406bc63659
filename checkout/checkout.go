package checkout

import (
	"context"
	"time"

	"github.com/jrsteele09/course-storefront/api"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	MsgEmptyCart     = "No courses in cart to process payment."
	MsgPaymentFailed = "Failed to process payment"

	paymentDateLayout = "2006-01-02T15:04:05.000Z07:00"
)

type PaymentAPI interface {
	CreatePayment(ctx context.Context, payment api.Payment) error
}

// Cart is the cart counter: the checkout reads items through it and lets it
// refetch once payments are made.
type Cart interface {
	Items(ctx context.Context) ([]api.CartItem, error)
	FetchCount(ctx context.Context) error
}

type Checkout struct {
	api     PaymentAPI
	cart    Cart
	taxRate decimal.Decimal
	nowTime func() time.Time
}

type Option func(*Checkout)

func WithTaxRate(rate decimal.Decimal) Option {
	return func(c *Checkout) {
		c.taxRate = rate
	}
}

func WithNowTime(now func() time.Time) Option {
	return func(c *Checkout) {
		c.nowTime = now
	}
}

func New(client PaymentAPI, cart Cart, opts ...Option) (*Checkout, error) {
	if client == nil {
		return nil, errors.New("[checkout.New] api is required")
	}
	if cart == nil {
		return nil, errors.New("[checkout.New] cart is required")
	}
	c := &Checkout{api: client, cart: cart, taxRate: DefaultTaxRate, nowTime: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Order is the cart with its totals.
type Order struct {
	Items   []api.CartItem `json:"items"`
	Summary Summary        `json:"summary"`
}

func (c *Checkout) Preview(ctx context.Context) (*Order, error) {
	items, err := c.cart.Items(ctx)
	if err != nil {
		return nil, err
	}
	return &Order{Items: items, Summary: Summarize(items, c.taxRate)}, nil
}

// Submit pays for every cart item, one request after another. The first
// failure stops the run; payments already made stand.
func (c *Checkout) Submit(ctx context.Context, form BillingForm) (*Order, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	items, err := c.cart.Items(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &api.Error{Kind: api.KindValidation, Message: MsgEmptyCart, Err: apperrors.ErrEmptyCart}
	}

	paidAt := c.nowTime().UTC().Format(paymentDateLayout)
	for _, item := range items {
		payment := c.payment(form, item, paidAt)
		if err := c.api.CreatePayment(ctx, payment); err != nil {
			log.Err(err).Int("courseId", item.CourseID).Msg("creating payment")
			if api.IsCanceled(err) || api.IsUnauthorized(err) {
				return nil, err
			}
			kind := api.KindOf(err)
			if kind == "" {
				kind = api.KindServer
			}
			return nil, &api.Error{
				Kind:    kind,
				Message: MsgPaymentFailed + ": " + api.MessageOf(err),
				Err:     err,
			}
		}
	}

	if err := c.cart.FetchCount(ctx); err != nil {
		log.Warn().Err(err).Msg("refreshing cart count after checkout")
	}
	return &Order{Items: items, Summary: Summarize(items, c.taxRate)}, nil
}

func (c *Checkout) payment(form BillingForm, item api.CartItem, paidAt string) api.Payment {
	courseID := item.CourseID
	if courseID == 0 {
		courseID = item.ID
	}
	p := api.Payment{
		CourseID:      courseID,
		Country:       form.Country,
		State:         form.State,
		PaymentMethod: form.Method.PaymentMethod(),
		Total:         ItemTotal(item, c.taxRate).InexactFloat64(),
		PaymentDate:   paidAt,
	}
	if form.Method != MethodPayPal {
		p.CardName = form.CardName
		p.CardNumber = form.CardNumber
		p.ExpiryDate = form.ExpiryDate
		p.CVC = form.CVC
	}
	return p
}
