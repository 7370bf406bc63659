package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/sessions"
	"github.com/rs/zerolog/log"
)

type sessionView struct {
	Status    string    `json:"status"`
	FirstName string    `json:"firstName,omitempty"`
	Role      string    `json:"role,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	Expiry    time.Time `json:"expiry,omitzero"`
	CartCount int       `json:"cartCount"`
}

func (s *Server) sessionView() sessionView {
	snap := s.store.Snapshot()
	v := sessionView{Status: snap.Status.String(), IsAdmin: snap.IsAdmin(), Expiry: snap.Expiry, CartCount: s.counter.Count()}
	if snap.Claim != nil {
		v.FirstName = snap.Claim.FirstName
		v.Role = string(snap.Claim.Role)
	}
	return v
}

func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.sessionView())
	}
}

// afterSignIn refreshes the cart badge; a failure only costs the badge.
func (s *Server) afterSignIn(r *http.Request) {
	if err := s.counter.FetchCount(r.Context()); err != nil {
		log.Err(err).Msg("fetching cart count after sign in")
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		if err := readJSON(r, &creds); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.store.Login(r.Context(), creds.Email, creds.Password); err != nil {
			// A bad password is not a lost session: answer it as a form error.
			if api.IsUnauthorized(err) {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: api.MessageOf(err), Kind: string(api.KindUnauthorized)})
				return
			}
			s.writeError(w, r, err)
			return
		}
		s.afterSignIn(r)
		writeJSON(w, http.StatusOK, redirectBody{Redirect: PathHome, Data: s.sessionView()})
	}
}

func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.SignupRequest
		if err := readJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.store.Signup(r.Context(), req); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.afterSignIn(r)
		writeJSON(w, http.StatusOK, redirectBody{Redirect: PathHome, Data: s.sessionView()})
	}
}

// GoogleLoginHandler sends the browser to the remote API's external login.
func (s *Server) GoogleLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.store.GoogleLoginURL(), http.StatusFound)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Logout(); err != nil {
			log.Err(err).Msg("logout")
		}
		writeJSON(w, http.StatusOK, redirectBody{Redirect: PathLogin, Data: sessionView{Status: sessions.StatusAnonymous.String()}})
	}
}
