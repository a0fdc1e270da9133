package service

import (
	"slices"

	"github.com/NeZlox/authorization-service/internal/models"
)

// RoleGroups are the allow-sets used to gate endpoints.
type RoleGroups struct {
	Common  []models.UserRole
	Staff   []models.UserRole
	Admin   []models.UserRole
	Private []models.UserRole
}

// DeriveRoleGroups builds the allow-sets. DEVELOPER belongs to no group in production.
func DeriveRoleGroups(isProduction bool) RoleGroups {
	var extra []models.UserRole
	if !isProduction {
		extra = []models.UserRole{models.UserRoleDeveloper}
	}

	common := append([]models.UserRole{models.UserRoleUser}, extra...)
	staff := union(common, []models.UserRole{models.UserRoleManager, models.UserRoleAdmin})
	admin := union(staff, []models.UserRole{models.UserRoleAdmin})

	return RoleGroups{
		Common:  common,
		Staff:   staff,
		Admin:   admin,
		Private: slices.Clone(extra),
	}
}

func union(a, b []models.UserRole) []models.UserRole {
	out := slices.Clone(a)
	for _, r := range b {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
