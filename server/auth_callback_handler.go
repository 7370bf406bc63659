package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/course-storefront/sessions"
	"github.com/rs/zerolog/log"
)

const maxRememberedCallbacks = 32

// GoogleCallbackHandler consumes the external login redirect. The same
// redirect delivered twice is processed once and answered the same way.
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := sessions.CallbackParams{
			Token:   q.Get("token"),
			Expiry:  q.Get("expiry"),
			IsAdmin: strings.EqualFold(q.Get("isAdmin"), "true"),
		}

		result := s.googleCallback(callbackKey(q)).Handle(params)
		if result.Err != nil {
			log.Warn().Err(result.Err).Msg("google login callback rejected")
			http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
			return
		}
		if err := s.counter.FetchCount(r.Context()); err != nil {
			log.Err(err).Msg("fetching cart count after google login")
		}
		http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
	}
}

func (s *Server) googleCallback(key string) *sessions.GoogleCallback {
	s.callbacksLock.Lock()
	defer s.callbacksLock.Unlock()
	if cb, ok := s.callbacks[key]; ok {
		return cb
	}
	if len(s.callbacks) >= maxRememberedCallbacks {
		clear(s.callbacks)
	}
	cb := sessions.NewGoogleCallback(s.store)
	s.callbacks[key] = cb
	return cb
}
