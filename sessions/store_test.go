package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/api/apifake"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/sessions"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Secret123!"
	userEmail     = "user@example.com"
	userPassword  = "Passw0rd!"
)

type testFixture struct {
	fake   *apifake.Fake
	client *api.Client
	repo   *sessions.InMemoryRepo
	store  *sessions.Store
	now    time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	fake, srv := apifake.NewServer(t)
	fake.AddUser(adminEmail, adminPassword, "Grace", true)
	fake.AddUser(userEmail, userPassword, "Alan", false)

	client, err := api.New(srv.URL)
	require.NoError(t, err)

	f := &testFixture{fake: fake, client: client, repo: sessions.NewInMemoryRepo(), now: time.Now()}
	f.store, err = sessions.NewStore(f.repo, client, sessions.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)
	return f
}

func TestNewStoreValidation(t *testing.T) {
	_, err := sessions.NewStore(nil, nil)
	require.Error(t, err)
	_, err = sessions.NewStore(sessions.NewInMemoryRepo(), nil)
	require.Error(t, err)
}

func TestLoadResolvesFromLoading(t *testing.T) {
	f := setupTestFixture(t)
	require.Equal(t, sessions.StatusLoading, f.store.Snapshot().Status)

	require.NoError(t, f.store.Load(context.Background()))
	require.Equal(t, sessions.StatusAnonymous, f.store.Snapshot().Status)
}

func TestLoginAdmin(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Load(context.Background()))

	require.NoError(t, f.store.Login(context.Background(), adminEmail, adminPassword))
	snap := f.store.Snapshot()
	require.True(t, snap.IsAuthenticated())
	require.True(t, snap.IsAdmin())
	require.Equal(t, "Grace", snap.Claim.FirstName)

	rec, err := f.repo.Load()
	require.NoError(t, err)
	require.NotEmpty(t, rec.Token)
	require.Equal(t, sessions.RoleAdmin, rec.User.Role)

	tok, err := f.store.Token()
	require.NoError(t, err)
	require.Equal(t, rec.Token, tok.AccessToken)
}

func TestLoginFailureKeepsSessionEmpty(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Load(context.Background()))

	err := f.store.Login(context.Background(), userEmail, "nope")
	require.Error(t, err)
	require.Equal(t, "Invalid email or password", api.MessageOf(err))
	require.False(t, f.store.Snapshot().IsAuthenticated())
	_, err = f.repo.Load()
	require.ErrorIs(t, err, apperrors.ErrNoSession)
}

func TestSignupAsUser(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Load(context.Background()))

	err := f.store.Signup(context.Background(), api.SignupRequest{
		FirstName: "Katherine", LastName: "Johnson", UserName: "kj", Email: "kj@example.com",
		Password: "pw", ConfirmPassword: "pw",
	})
	require.NoError(t, err)
	snap := f.store.Snapshot()
	require.Equal(t, "Katherine", snap.Claim.FirstName)
	require.False(t, snap.IsAdmin())
}

func TestSignupRejected(t *testing.T) {
	f := setupTestFixture(t)
	err := f.store.Signup(context.Background(), api.SignupRequest{Email: adminEmail, Password: "a", ConfirmPassword: "a"})
	require.Error(t, err)
	require.Equal(t, api.KindValidation, api.KindOf(err))
	require.Equal(t, "Email is already registered.", api.MessageOf(err))
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Login(context.Background(), userEmail, userPassword))

	var events []sessions.Snapshot
	f.store.Subscribe(func(s sessions.Snapshot) { events = append(events, s) })

	require.NoError(t, f.store.Logout())
	require.NoError(t, f.store.Logout())
	require.Len(t, events, 1)
	require.Equal(t, sessions.StatusAnonymous, events[0].Status)
	_, err := f.store.Token()
	require.ErrorIs(t, err, apperrors.ErrNoToken)
}

func TestLoadRestoresPersistedSession(t *testing.T) {
	f := setupTestFixture(t)
	token := apifake.IssueToken("Grace", true, f.now.Add(time.Hour))
	require.NoError(t, f.repo.Save(sessions.Record{Token: token, User: sessions.Claim{FirstName: "stale", Role: sessions.RoleUser}, Expiry: f.now.Add(time.Hour)}))

	require.NoError(t, f.store.Load(context.Background()))
	snap := f.store.Snapshot()
	require.True(t, snap.IsAdmin())
	require.Equal(t, "Grace", snap.Claim.FirstName)
}

func TestLoadDiscardsExpiredSession(t *testing.T) {
	f := setupTestFixture(t)
	token := apifake.IssueToken("Grace", true, f.now.Add(-time.Minute))
	require.NoError(t, f.repo.Save(sessions.Record{Token: token, Expiry: f.now.Add(-time.Minute)}))

	require.NoError(t, f.store.Load(context.Background()))
	require.Equal(t, sessions.StatusAnonymous, f.store.Snapshot().Status)
	_, err := f.repo.Load()
	require.ErrorIs(t, err, apperrors.ErrNoSession)
}

func TestLoadDiscardsUndecodableToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Save(sessions.Record{Token: "not-a-jwt", Expiry: f.now.Add(time.Hour)}))

	err := f.store.Load(context.Background())
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	require.Equal(t, sessions.StatusAnonymous, f.store.Snapshot().Status)
	_, err = f.repo.Load()
	require.ErrorIs(t, err, apperrors.ErrNoSession)
}

func TestTokenExpiresWithClock(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Login(context.Background(), userEmail, userPassword))
	require.True(t, f.store.HasSession())

	f.now = f.now.Add(2 * time.Hour)
	_, err := f.store.Token()
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.False(t, f.store.Snapshot().IsAuthenticated())
}

func TestHandleUnauthorizedSignsOut(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Login(context.Background(), userEmail, userPassword))
	f.store.HandleUnauthorized()
	require.False(t, f.store.Snapshot().IsAuthenticated())
}

func TestSubscribersSeeLoginAndUnsubscribe(t *testing.T) {
	f := setupTestFixture(t)
	var names []string
	unsubscribe := f.store.Subscribe(func(s sessions.Snapshot) {
		if s.Claim != nil {
			names = append(names, s.Claim.FirstName)
		}
	})
	require.NoError(t, f.store.Login(context.Background(), userEmail, userPassword))
	unsubscribe()
	require.NoError(t, f.store.Login(context.Background(), adminEmail, adminPassword))
	require.Equal(t, []string{"Alan"}, names)
}

func TestAuthenticatedClientUsesStoreToken(t *testing.T) {
	f := setupTestFixture(t)
	authed := f.client.WithTokenSource(f.store)

	_, err := authed.ListCart(context.Background())
	require.True(t, api.IsUnauthorized(err))
	require.Zero(t, f.fake.CallCount("GET", "/api/Cart"))

	require.NoError(t, f.store.Login(context.Background(), userEmail, userPassword))
	_, err = authed.ListCart(context.Background())
	require.NoError(t, err)
}
