package api

import (
	"context"
	"fmt"
	"net/http"
)

const (
	pathCart     = "/api/Cart"
	pathCartAdd  = "/api/Cart/add"
	pathPayments = "/api/Payment"
	pathPrices   = "/api/Price"
)

type cartAdd struct {
	CourseID int `json:"courseId"`
}

func (c *Client) ListCart(ctx context.Context) ([]CartItem, error) {
	var items []CartItem
	if err := c.getJSON(ctx, true, pathCart, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) AddToCart(ctx context.Context, courseID int) error {
	return c.sendJSON(ctx, true, http.MethodPost, pathCart, cartAdd{CourseID: courseID}, nil)
}

// AddToCartAndSync is the course details variant of add; callers refetch afterwards.
func (c *Client) AddToCartAndSync(ctx context.Context, courseID int) error {
	return c.sendJSON(ctx, true, http.MethodPost, pathCartAdd, cartAdd{CourseID: courseID}, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, itemID int) error {
	return c.sendJSON(ctx, true, http.MethodDelete, fmt.Sprintf("%s/%d", pathCart, itemID), nil, nil)
}

func (c *Client) ListPayments(ctx context.Context) ([]Payment, error) {
	var payments []Payment
	if err := c.getJSON(ctx, true, pathPayments, nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (c *Client) CreatePayment(ctx context.Context, payment Payment) error {
	return c.sendJSON(ctx, true, http.MethodPost, pathPayments, payment, nil)
}

func (c *Client) ListPrices(ctx context.Context) ([]PriceRecord, error) {
	var prices []PriceRecord
	if err := c.getJSON(ctx, true, pathPrices, nil, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}
