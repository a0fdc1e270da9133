package models

import "time"

// Session is a refresh-token grant. Only the hash of the refresh secret is stored.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash []byte
	Fingerprint      string
	UserAgent        string
	IPAddress        string
	Version          int
	ExpiresAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Expired reports whether the session is no longer usable at now.
// A session whose expiry equals now is already expired.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// SessionUpdate is the payload written when a session is rotated.
type SessionUpdate struct {
	RefreshTokenHash []byte
	Fingerprint      string
	UserAgent        string
	IPAddress        string
	ExpiresAt        time.Time
	UpdatedAt        time.Time
}

// ClientContext describes the caller of a lifecycle operation. It is never persisted.
type ClientContext struct {
	IPAddress    string
	UserAgent    string
	Fingerprint  string
	AccessToken  string
	RefreshToken string
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
