package service

import (
	"strings"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/security"
)

// TokenCodec signs access tokens and mints refresh secrets. *security.TokenCodec implements it.
type TokenCodec interface {
	GenerateAccessToken(claims security.AccessClaims) (string, error)
	DecodeAccessToken(signed string) (*security.AccessClaims, error)
	GenerateRefreshSecret() (plain string, hash []byte, err error)
	VerifyRefreshSecret(plain string, hash []byte) bool
}

type PasswordHasher interface {
	Hash(plain string) ([]byte, error)
	Verify(plain string, hash []byte) (bool, error)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// internalError passes tagged errors through and tags everything else as internal.
func internalError(err error) error {
	if err == nil || apperr.Kind(err) != nil {
		return err
	}
	return apperr.Wrap(apperr.ErrInternal, err)
}
