package api

import (
	"context"
	"net/http"
)

const (
	pathLogin       = "/api/Auth/login"
	pathSignup      = "/api/Auth/signup"
	pathGoogleLogin = "/api/ExternalAuth/google"
)

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.sendJSON(ctx, false, http.MethodPost, pathLogin, Credentials{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.sendJSON(ctx, false, http.MethodPost, pathSignup, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GoogleLoginURL is where the browser is sent to start the external login.
func (c *Client) GoogleLoginURL() string {
	return c.endpoint(pathGoogleLogin, nil)
}
