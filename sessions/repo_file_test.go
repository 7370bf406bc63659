package sessions_test

import (
	"os"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/sessions"
	"github.com/stretchr/testify/require"
)

func testRecord() sessions.Record {
	return sessions.Record{
		Token:  "header.payload.sig",
		User:   sessions.Claim{FirstName: "Ada", Role: sessions.RoleAdmin},
		Expiry: time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestFileRepoPlain(t *testing.T) {
	repo, err := sessions.NewFileRepo(t.TempDir(), "")
	require.NoError(t, err)

	_, err = repo.Load()
	require.ErrorIs(t, err, apperrors.ErrNoSession)

	require.NoError(t, repo.Save(testRecord()))
	raw, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	require.Contains(t, string(raw), `"firstName":"Ada"`)

	got, err := repo.Load()
	require.NoError(t, err)
	require.Equal(t, testRecord(), *got)

	require.NoError(t, repo.Clear())
	require.NoError(t, repo.Clear())
	_, err = repo.Load()
	require.ErrorIs(t, err, apperrors.ErrNoSession)
}

func TestFileRepoSealed(t *testing.T) {
	dir := t.TempDir()
	repo, err := sessions.NewFileRepo(dir, "correct horse")
	require.NoError(t, err)
	require.NoError(t, repo.Save(testRecord()))

	raw, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	require.NotContains(t, string(raw), "Ada")

	got, err := repo.Load()
	require.NoError(t, err)
	require.Equal(t, testRecord(), *got)

	wrongKey, err := sessions.NewFileRepo(dir, "battery staple")
	require.NoError(t, err)
	_, err = wrongKey.Load()
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestDecodeClaim(t *testing.T) {
	claim, err := sessions.DecodeClaim(signedClaims(t, map[string]any{"FirstName": "Ada", "IsAdmin": "True"}))
	require.NoError(t, err)
	require.Equal(t, sessions.Claim{FirstName: "Ada", Role: sessions.RoleAdmin}, claim)

	claim, err = sessions.DecodeClaim(signedClaims(t, map[string]any{"FirstName": "Bob", "IsAdmin": "False"}))
	require.NoError(t, err)
	require.Equal(t, sessions.RoleUser, claim.Role)

	_, err = sessions.DecodeClaim("")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = sessions.DecodeClaim("a.b")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
