package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jrsteele09/course-storefront/gate"
	"github.com/jrsteele09/course-storefront/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the session snapshot the gate admitted
const ContextKeySession ContextKey = "session"

// loadingRetryAfter is how long a browser should wait while the session resolves.
const loadingRetryAfter = 1

// RequireAdmin gates the /dashboard subtree. While the session is still
// resolving the request is answered 503 and nothing is redirected.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			snap := s.store.Snapshot()
			decision := gate.Evaluate(snap, r.URL.RequestURI())
			switch decision.Outcome {
			case gate.Loading:
				w.Header().Set("Retry-After", strconv.Itoa(loadingRetryAfter))
				writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Session is loading", Kind: "loading"})
			case gate.Redirect:
				http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			default:
				ctx := context.WithValue(r.Context(), ContextKeySession, snap)
				next(w, r.WithContext(ctx))
			}
		}
	}
}

func sessionFromContext(ctx context.Context) (sessions.Snapshot, bool) {
	snap, ok := ctx.Value(ContextKeySession).(sessions.Snapshot)
	return snap, ok
}
