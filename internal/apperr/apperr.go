// Package apperr holds the failure kinds surfaced by the authentication core and
// their mapping onto HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenAbsent        = errors.New("authorization token is missing")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrEncoding           = errors.New("failed to encode token")
	ErrDecoding           = errors.New("failed to decode token")
	ErrAccessDenied       = errors.New("insufficient permissions")
	ErrAlreadyExists      = errors.New("user with this email already exists")
	ErrValidation         = errors.New("invalid request")
	ErrInternal           = errors.New("internal error")
)

// kinds is ordered: the first kind matched by errors.Is wins.
var kinds = []struct {
	kind   error
	status int
}{
	{ErrUserNotFound, http.StatusNotFound},
	{ErrSessionNotFound, http.StatusNotFound},
	{ErrTokenAbsent, http.StatusUnauthorized},
	{ErrTokenInvalid, http.StatusUnauthorized},
	{ErrTokenExpired, http.StatusUnauthorized},
	{ErrAccessDenied, http.StatusForbidden},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrEncoding, http.StatusInternalServerError},
	{ErrDecoding, http.StatusInternalServerError},
	{ErrInternal, http.StatusInternalServerError},
	{ErrInvalidCredentials, http.StatusBadRequest},
	{ErrValidation, http.StatusBadRequest},
}

// Wrap tags cause with kind. errors.Is matches both.
func Wrap(kind error, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Kind returns the failure kind carried by err, or nil when err is not tagged.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.kind
		}
	}
	return nil
}

func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusBadRequest
}

// Message is the text safe to show a client: the kind's own message, never the cause.
func Message(err error) string {
	if k := Kind(err); k != nil {
		return k.Error()
	}
	return ErrValidation.Error()
}
