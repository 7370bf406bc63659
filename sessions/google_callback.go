package sessions

import (
	"sync"

	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
)

const (
	CallbackSuccessPath = "/"
	CallbackFailurePath = "/login"
)

// CallbackParams are the query parameters of the external login redirect.
type CallbackParams struct {
	Token   string
	Expiry  string
	IsAdmin bool
}

// CallbackResult says where to send the browser afterwards.
type CallbackResult struct {
	Redirect string
	Err      error
}

// GoogleCallback processes one external login redirect at most once, however
// many times it is invoked.
type GoogleCallback struct {
	store  *Store
	once   sync.Once
	result CallbackResult
}

func NewGoogleCallback(store *Store) *GoogleCallback {
	return &GoogleCallback{store: store}
}

func (g *GoogleCallback) Handle(params CallbackParams) CallbackResult {
	g.once.Do(func() {
		if params.Token == "" || params.Expiry == "" {
			g.result = CallbackResult{Redirect: CallbackFailurePath, Err: apperrors.ErrInvalidCallback}
			return
		}
		if err := g.store.HandleGoogleCallback(params.Token, params.Expiry, params.IsAdmin); err != nil {
			g.result = CallbackResult{Redirect: CallbackFailurePath, Err: err}
			return
		}
		g.result = CallbackResult{Redirect: CallbackSuccessPath}
	})
	return g.result
}
