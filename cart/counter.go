// Package cart keeps the badge count of the signed-in user's cart.
package cart

import (
	"context"
	"sync"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/internal/broadcast"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// API is the cart slice of the remote client.
type API interface {
	ListCart(ctx context.Context) ([]api.CartItem, error)
	AddToCart(ctx context.Context, courseID int) error
	AddToCartAndSync(ctx context.Context, courseID int) error
	RemoveFromCart(ctx context.Context, itemID int) error
}

// Session tells the counter whether a signed-in user exists.
type Session interface {
	HasSession() bool
}

// Counter is an eventually consistent cache of the cart size. Add and Remove
// adjust it locally after the remote call succeeds; FetchCount and Items
// reconcile it with the server.
type Counter struct {
	mu      sync.RWMutex
	api     API
	session Session
	count   int
	hub     broadcast.Hub[int]
}

func NewCounter(cartAPI API, session Session) (*Counter, error) {
	if cartAPI == nil {
		return nil, errors.New("[NewCounter] cart API is required")
	}
	if session == nil {
		return nil, errors.New("[NewCounter] session is required")
	}
	return &Counter{api: cartAPI, session: session}, nil
}

// FetchCount replaces the count with the server's. Without a session, or on
// failure, the count becomes zero.
func (c *Counter) FetchCount(ctx context.Context) error {
	if !c.session.HasSession() {
		c.set(0)
		return nil
	}
	items, err := c.api.ListCart(ctx)
	if err != nil {
		if !api.IsCanceled(err) {
			log.Err(err).Msg("fetching cart count")
			c.set(0)
		}
		return err
	}
	c.set(len(items))
	return nil
}

// Items fetches the full cart for the cart view and reconciles the count.
func (c *Counter) Items(ctx context.Context) ([]api.CartItem, error) {
	if !c.session.HasSession() {
		c.set(0)
		return nil, apperrors.ErrNoToken
	}
	items, err := c.api.ListCart(ctx)
	if err != nil {
		return nil, err
	}
	c.set(len(items))
	return items, nil
}

func (c *Counter) Add(ctx context.Context, courseID int) error {
	if !c.session.HasSession() {
		return apperrors.ErrNoToken
	}
	if err := c.api.AddToCart(ctx, courseID); err != nil {
		return err
	}
	c.adjust(1)
	return nil
}

// AddAndSync is the course details path: add through the sync endpoint, then refetch.
func (c *Counter) AddAndSync(ctx context.Context, courseID int) error {
	if !c.session.HasSession() {
		return apperrors.ErrNoToken
	}
	if err := c.api.AddToCartAndSync(ctx, courseID); err != nil {
		return err
	}
	return c.FetchCount(ctx)
}

func (c *Counter) Remove(ctx context.Context, itemID int) error {
	if !c.session.HasSession() {
		return apperrors.ErrNoToken
	}
	if err := c.api.RemoveFromCart(ctx, itemID); err != nil {
		return err
	}
	c.adjust(-1)
	return nil
}

// Reset zeroes the count, e.g. on logout.
func (c *Counter) Reset() {
	c.set(0)
}

func (c *Counter) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

func (c *Counter) Subscribe(fn func(int)) func() {
	return c.hub.Subscribe(fn)
}

func (c *Counter) adjust(delta int) {
	c.mu.Lock()
	c.count = max(0, c.count+delta)
	n := c.count
	c.mu.Unlock()
	c.hub.Publish(n)
}

func (c *Counter) set(n int) {
	c.mu.Lock()
	changed := c.count != n
	c.count = n
	c.mu.Unlock()
	if changed {
		c.hub.Publish(n)
	}
}
