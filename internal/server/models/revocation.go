package models

import "time"

// RevokedToken marks a refresh token (by jti) unusable until it would have
// expired anyway.
type RevokedToken struct {
	JTI       string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
