package service

import (
	"context"
	"errors"
	"slices"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/models"
	"github.com/NeZlox/authorization-service/internal/repository"
)

// AccessControl resolves the caller of a request and checks role membership.
// It keeps no per-request state.
type AccessControl struct {
	users        repository.UserStore
	tokens       TokenCodec
	isProduction bool
}

func NewAccessControl(users repository.UserStore, tokens TokenCodec, isProduction bool) *AccessControl {
	return &AccessControl{
		users:        users,
		tokens:       tokens,
		isProduction: isProduction,
	}
}

func (a *AccessControl) Authenticate(ctx context.Context, accessToken string) (models.PublicUser, error) {
	if accessToken == "" {
		return models.PublicUser{}, apperr.ErrTokenAbsent
	}

	claims, err := a.tokens.DecodeAccessToken(accessToken)
	if err != nil {
		return models.PublicUser{}, internalError(err)
	}

	user, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.PublicUser{}, apperr.ErrUserNotFound
		}
		return models.PublicUser{}, internalError(err)
	}
	return user.Public(), nil
}

// Authorize admits user when its role is in allowed. DEVELOPER is refused in
// production even when the caller lists it.
func (a *AccessControl) Authorize(user models.PublicUser, allowed []models.UserRole) (models.PublicUser, error) {
	if a.isProduction && user.Role == models.UserRoleDeveloper {
		return models.PublicUser{}, apperr.ErrAccessDenied
	}
	if !slices.Contains(allowed, user.Role) {
		return models.PublicUser{}, apperr.ErrAccessDenied
	}
	return user, nil
}
