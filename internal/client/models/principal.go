// Package models defines client-side data models used by the shelfauth CLI.
package models

import (
	"github.com/dmitrijs2005/shelfauth/internal/api"
	"github.com/dmitrijs2005/shelfauth/internal/common"
)

// Principal is the client's snapshot of the logged-in user. It is only a
// display hint; the server re-derives the role on every request.
type Principal struct {
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	RoleID   int64  `json:"roleId"`
	RoleName string `json:"roleName"`
}

func (p Principal) IsAdmin() bool {
	return p.RoleName == common.AdminRoleName
}

// PrincipalFromUser converts the wire representation of a user.
func PrincipalFromUser(u api.User) Principal {
	return Principal{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.Name,
		RoleID:   u.RoleID,
		RoleName: u.RoleName,
	}
}
