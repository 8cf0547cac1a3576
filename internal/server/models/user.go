// Package models contains the server-side domain types persisted by the
// repositories and passed between services.
package models

import "time"

// User is a registered account together with its current role.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	RoleID       int64
	RoleName     string
	CreatedAt    time.Time
}

// Principal snapshots the user's identity and role as of now.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, RoleID: u.RoleID, RoleName: u.RoleName}
}
