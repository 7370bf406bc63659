package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 10 << 20
)

// Client talks to the remote storefront REST API. Public lookups go out without
// credentials; everything else carries the session bearer token.
type Client struct {
	baseURL *url.URL
	timeout time.Duration
	base    http.RoundTripper
	public  *http.Client
	authed  *http.Client
}

type Option func(*Client)

// WithTransport replaces the round tripper underneath both clients.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("[api.New] baseURL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[api.New] invalid baseURL %q: %w", baseURL, err)
	}
	c := &Client{baseURL: u, timeout: defaultTimeout, base: http.DefaultTransport}
	for _, opt := range opts {
		opt(c)
	}
	c.public = &http.Client{Transport: c.base, Timeout: c.timeout}
	c.authed = c.public
	return c, nil
}

// WithTokenSource returns a copy of c whose authenticated calls attach the bearer
// token from ts. A token source error fails the call before anything is sent.
func (c *Client) WithTokenSource(ts oauth2.TokenSource) *Client {
	cp := *c
	cp.authed = &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: c.base},
		Timeout:   c.timeout,
	}
	return &cp
}

// BaseURL is the remote origin, without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) httpClient(auth bool) *http.Client {
	if auth {
		return c.authed
	}
	return c.public
}

func (c *Client) do(ctx context.Context, auth bool, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, nil, &Error{Kind: KindNetwork, Message: "invalid request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient(auth).Do(req)
	if err != nil {
		apiErr := transportError(ctx, err)
		if apiErr.Kind != KindCanceled {
			log.Debug().Err(err).Str("method", method).Str("path", path).Msg("remote request failed")
		}
		return nil, nil, apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, transportError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newStatusError(resp.StatusCode, data)
		log.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Str("message", apiErr.Message).Msg("remote request rejected")
		return nil, nil, apiErr
	}
	return data, resp.Header, nil
}

func (c *Client) getJSON(ctx context.Context, auth bool, path string, query url.Values, out any) error {
	data, _, err := c.do(ctx, auth, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

func (c *Client) sendJSON(ctx context.Context, auth bool, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "unable to encode request", Err: err}
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	data, _, err := c.do(ctx, auth, method, path, nil, body, contentType)
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

type formField struct {
	name  string
	value string
}

func (c *Client) sendMultipart(ctx context.Context, method, path string, fields []formField, upload *Upload, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return &Error{Kind: KindValidation, Message: "unable to encode form", Err: err}
		}
	}
	if upload != nil {
		if err := writeFilePart(mw, "Image", upload); err != nil {
			return &Error{Kind: KindValidation, Message: "unable to encode image", Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return &Error{Kind: KindValidation, Message: "unable to encode form", Err: err}
	}
	data, _, err := c.do(ctx, true, method, path, nil, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

func writeFilePart(mw *multipart.Writer, field string, upload *Upload) error {
	contentType := upload.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(upload.Data)
	}
	filename := upload.Filename
	if filename == "" {
		filename = "image"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(upload.Data)
	return err
}

func decodeInto(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindServer, Message: "unexpected response from server", Err: err}
	}
	return nil
}
