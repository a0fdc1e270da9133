package models

import "time"

type UserRole string

const (
	UserRoleGuest     UserRole = "GUEST"
	UserRoleUser      UserRole = "USER"
	UserRoleManager   UserRole = "MANAGER"
	UserRoleAdmin     UserRole = "ADMIN"
	UserRoleDeveloper UserRole = "DEVELOPER"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleGuest, UserRoleUser, UserRoleManager, UserRoleAdmin, UserRoleDeveloper:
		return true
	}
	return false
}

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection of a User that may leave the service.
type PublicUser struct {
	ID        string
	Email     string
	Role      UserRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserUpdate carries the fields an administrator may change. Nil fields are left untouched.
type UserUpdate struct {
	Email        *string
	PasswordHash []byte
	Role         *UserRole
	UpdatedAt    time.Time
}
