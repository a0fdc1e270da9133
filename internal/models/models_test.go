package models

import (
	"testing"
	"time"
)

func TestSessionExpiredIsInclusive(t *testing.T) {
	now := time.Date(2025, 4, 7, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "future", expiresAt: now.Add(time.Second), want: false},
		{name: "exactly now", expiresAt: now, want: true},
		{name: "past", expiresAt: now.Add(-time.Second), want: true},
	}

	for _, tc := range cases {
		s := Session{ExpiresAt: tc.expiresAt}
		if got := s.Expired(now); got != tc.want {
			t.Errorf("%s: Expired()=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestUserRoleValid(t *testing.T) {
	for _, r := range []UserRole{UserRoleGuest, UserRoleUser, UserRoleManager, UserRoleAdmin, UserRoleDeveloper} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if UserRole("ROOT").Valid() {
		t.Error("unknown role reported valid")
	}
}

func TestPageNormalize(t *testing.T) {
	cases := []struct {
		in   Page
		want Page
	}{
		{in: Page{}, want: Page{Limit: DefaultPageSize}},
		{in: Page{Limit: 1000, Offset: -3}, want: Page{Limit: MaxPageSize}},
		{in: Page{Limit: 5, Offset: 10}, want: Page{Limit: 5, Offset: 10}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Errorf("Normalize(%+v)=%+v want %+v", tc.in, got, tc.want)
		}
	}
}

func TestPublicDropsPasswordHash(t *testing.T) {
	u := User{ID: "u1", Email: "a@b.c", PasswordHash: []byte("secret"), Role: UserRoleAdmin}
	p := u.Public()
	if p.ID != u.ID || p.Email != u.Email || p.Role != u.Role {
		t.Fatalf("unexpected projection %+v", p)
	}
}
