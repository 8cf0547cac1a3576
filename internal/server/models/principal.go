package models

import "github.com/dmitrijs2005/shelfauth/internal/common"

// Principal is the authenticated identity attached to a request. It is
// rebuilt from the users table on every validation, so role changes take
// effect on the next call.
type Principal struct {
	UserID   int64
	RoleID   int64
	RoleName string
}

func (p Principal) IsAdmin() bool {
	return p.RoleName == common.AdminRoleName
}
