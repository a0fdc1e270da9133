package repository

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/NeZlox/authorization-service/internal/models"
)

// SessionFilter selects sessions. Every set field narrows the match; the zero
// value matches all sessions.
type SessionFilter struct {
	UserID string
	IDs    []string
	// ActiveAt keeps sessions still valid at this instant (expires_at > ActiveAt).
	ActiveAt time.Time
	// ExpiredBefore keeps sessions with expires_at < ExpiredBefore.
	ExpiredBefore time.Time
}

// where renders the filter as a WHERE clause, numbering placeholders after args.
func (f SessionFilter) where(args []any) (string, []any) {
	var clauses []string
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}

	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if len(f.IDs) > 0 {
		add("id = ANY($%d)", f.IDs)
	}
	if !f.ActiveAt.IsZero() {
		add("expires_at > $%d", f.ActiveAt)
	}
	if !f.ExpiredBefore.IsZero() {
		add("expires_at < $%d", f.ExpiredBefore)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (f SessionFilter) Matches(s models.Session) bool {
	if f.UserID != "" && s.UserID != f.UserID {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, s.ID) {
		return false
	}
	if !f.ActiveAt.IsZero() && !s.ExpiresAt.After(f.ActiveAt) {
		return false
	}
	if !f.ExpiredBefore.IsZero() && !s.ExpiresAt.Before(f.ExpiredBefore) {
		return false
	}
	return true
}
