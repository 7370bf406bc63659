package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/course-storefront/internal/errors"
)

// Kind classifies a failure at the remote API boundary.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindServer       Kind = "server"
	KindCanceled     Kind = "canceled"
	KindPartialBatch Kind = "partial_batch"
)

// Error is the single failure type produced by the client. Details carries the
// decoded server payload (field maps, arrays) when there was one.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or "" when err did not come from the API.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

func IsCanceled(err error) bool {
	return KindOf(err) == KindCanceled || errors.Is(err, context.Canceled)
}

// MessageOf returns the user facing message of err.
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

// newStatusError normalises a non 2xx response. The payload may be a plain string,
// an object with a message-like field, an array of messages, or nothing at all.
func newStatusError(status int, body []byte) *Error {
	e := &Error{Kind: kindForStatus(status), Status: status}
	e.Message, e.Details = decodePayload(body)
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func decodePayload(body []byte) (string, any) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return trimmed, nil
	}
	switch p := payload.(type) {
	case string:
		return p, nil
	case []any:
		var msgs []string
		for _, item := range p {
			switch v := item.(type) {
			case string:
				msgs = append(msgs, v)
			case map[string]any:
				if m := firstString(v, "description", "message", "errorMessage"); m != "" {
					msgs = append(msgs, m)
				}
			}
		}
		return strings.Join(msgs, "; "), p
	case map[string]any:
		return firstString(p, "message", "title", "error", "detail"), p
	default:
		return trimmed, p
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// transportError classifies a failure that happened before any response arrived.
func transportError(ctx context.Context, err error) *Error {
	switch {
	case ctx.Err() != nil:
		return &Error{Kind: KindCanceled, Message: ctx.Err().Error(), Err: ctx.Err()}
	case errors.Is(err, errors.ErrNoToken) || errors.Is(err, errors.ErrNoSession) || errors.Is(err, errors.ErrSessionExpired):
		return &Error{Kind: KindUnauthorized, Message: "No token found", Err: err}
	default:
		return &Error{Kind: KindNetwork, Message: "Unable to reach the server", Err: err}
	}
}
