package sessions

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/pkg/errors"
)

const (
	firstNameClaim = "FirstName"
	isAdminClaim   = "IsAdmin"
)

// DecodeClaim reads the identity claims from a token payload. The signature is
// not checked: the remote API owns the key and validates every call itself.
func DecodeClaim(token string) (Claim, error) {
	if token == "" {
		return Claim{}, apperrors.ErrInvalidToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claim{}, errors.Wrap(apperrors.ErrInvalidToken, err.Error())
	}
	claim := Claim{Role: RoleUser}
	if name, ok := claims[firstNameClaim].(string); ok {
		claim.FirstName = name
	}
	if isAdmin(claims[isAdminClaim]) {
		claim.Role = RoleAdmin
	}
	return claim, nil
}

func isAdmin(v any) bool {
	switch flag := v.(type) {
	case string:
		return strings.EqualFold(flag, "True")
	case bool:
		return flag
	default:
		return false
	}
}
