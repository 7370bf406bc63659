package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/internal/broadcast"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Authenticator is the slice of the remote API the store needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error)
	GoogleLoginURL() string
}

// Store is the single owner of the session. It is written by login, signup,
// the OAuth callback and logout, and read by everything else through
// Snapshot, Subscribe and Token.
type Store struct {
	mu      sync.RWMutex
	repo    Repo
	auth    Authenticator
	status  Status
	record  *Record
	hub     broadcast.Hub[Snapshot]
	nowTime func() time.Time
}

var _ oauth2.TokenSource = (*Store)(nil)

type StoreOption func(*Store)

func WithNowTime(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = now
	}
}

func NewStore(repo Repo, auth Authenticator, opts ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[NewStore] repo is required")
	}
	if auth == nil {
		return nil, errors.New("[NewStore] authenticator is required")
	}
	s := &Store{repo: repo, auth: auth, status: StatusLoading, nowTime: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load restores the persisted session. An expired or undecodable token is
// discarded. The store leaves the loading state whatever the outcome.
func (s *Store) Load(ctx context.Context) error {
	rec, err := s.repo.Load()
	if err == nil {
		err = s.validate(rec)
	}
	if err != nil && !errors.Is(err, apperrors.ErrNoSession) {
		log.Warn().Err(err).Msg("discarding persisted session")
		if clearErr := s.repo.Clear(); clearErr != nil {
			log.Err(clearErr).Msg("removing discarded session")
		}
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		s.clear()
		if errors.Is(err, apperrors.ErrNoSession) || errors.Is(err, apperrors.ErrSessionExpired) {
			return nil
		}
		return errors.Wrap(err, "[Store.Load]")
	}
	s.set(rec)
	return nil
}

// validate checks expiry and re-derives the claim from the token payload.
func (s *Store) validate(rec *Record) error {
	if !s.nowTime().Before(rec.Expiry) {
		return apperrors.ErrSessionExpired
	}
	claim, err := DecodeClaim(rec.Token)
	if err != nil {
		return err
	}
	rec.User = claim
	return nil
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.establish(resp.Token, resp.Expiry, resp.FirstName, resp.IsAdmin)
}

// Signup registers and signs in. req.IsAdmin is sent as given.
func (s *Store) Signup(ctx context.Context, req api.SignupRequest) error {
	resp, err := s.auth.Signup(ctx, req)
	if err != nil {
		return err
	}
	return s.establish(resp.Token, resp.Expiry, resp.FirstName, resp.IsAdmin)
}

// GoogleLoginURL is where the browser goes to start the external login. It does not touch the session.
func (s *Store) GoogleLoginURL() string {
	return s.auth.GoogleLoginURL()
}

// HandleGoogleCallback signs in from the external login redirect. The display
// name comes from the token's FirstName claim.
func (s *Store) HandleGoogleCallback(token, expiry string, isAdmin bool) error {
	if token == "" || expiry == "" {
		return apperrors.ErrInvalidCallback
	}
	claim, err := DecodeClaim(token)
	if err != nil {
		return &api.Error{Kind: api.KindUnauthorized, Message: "Invalid token received", Err: err}
	}
	return s.establish(token, expiry, claim.FirstName, isAdmin)
}

func (s *Store) establish(token, expiry, firstName string, isAdmin bool) error {
	if token == "" {
		return &api.Error{Kind: api.KindUnauthorized, Message: "Login failed", Err: apperrors.ErrNoToken}
	}
	if _, err := DecodeClaim(token); err != nil {
		return &api.Error{Kind: api.KindUnauthorized, Message: "Invalid token received", Err: err}
	}
	expiresAt, err := api.ParseTime(expiry)
	if err != nil {
		return &api.Error{Kind: api.KindUnauthorized, Message: "Invalid token expiry", Err: err}
	}
	if !s.nowTime().Before(expiresAt) {
		return &api.Error{Kind: api.KindUnauthorized, Message: "Token already expired", Err: apperrors.ErrSessionExpired}
	}

	role := RoleUser
	if isAdmin {
		role = RoleAdmin
	}
	rec := &Record{Token: token, User: Claim{FirstName: firstName, Role: role}, Expiry: expiresAt}
	if err := s.repo.Save(*rec); err != nil {
		log.Err(err).Msg("session could not be persisted, it will not survive a restart")
	}
	s.set(rec)
	return nil
}

// Logout clears the session. Calling it when signed out is harmless.
func (s *Store) Logout() error {
	err := s.repo.Clear()
	s.clear()
	if err != nil {
		return errors.Wrap(err, "[Store.Logout]")
	}
	return nil
}

// HandleUnauthorized drops a session the remote API has rejected.
func (s *Store) HandleUnauthorized() {
	if !s.Snapshot().IsAuthenticated() {
		return
	}
	log.Info().Msg("remote API rejected the session token, signing out")
	if err := s.Logout(); err != nil {
		log.Err(err).Msg("logout after rejected token")
	}
}

// Token implements oauth2.TokenSource for the API client.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	rec := s.record
	s.mu.RUnlock()
	if rec == nil {
		return nil, apperrors.ErrNoToken
	}
	if !s.nowTime().Before(rec.Expiry) {
		_ = s.Logout()
		return nil, apperrors.ErrSessionExpired
	}
	return &oauth2.Token{AccessToken: rec.Token, TokenType: "Bearer", Expiry: rec.Expiry}, nil
}

// HasSession reports whether a live token is held.
func (s *Store) HasSession() bool {
	_, err := s.Token()
	return err == nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Subscribe calls fn on every change until the returned func is called.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.hub.Subscribe(fn)
}

func (s *Store) snapshot() Snapshot {
	snap := Snapshot{Status: s.status}
	if s.record != nil {
		claim := s.record.User
		snap.Claim = &claim
		snap.Expiry = s.record.Expiry
	}
	return snap
}

func (s *Store) set(rec *Record) {
	s.mu.Lock()
	s.record = rec
	s.status = StatusAuthenticated
	snap := s.snapshot()
	s.mu.Unlock()
	s.hub.Publish(snap)
}

func (s *Store) clear() {
	s.mu.Lock()
	changed := s.status != StatusAnonymous
	s.record = nil
	s.status = StatusAnonymous
	snap := s.snapshot()
	s.mu.Unlock()
	if changed {
		s.hub.Publish(snap)
	}
}
