// Package api defines the JSON wire contract shared by the HTTP server and
// the client: one request and one response type per endpoint, plus the fixed
// error reasons the client dispatches on.
package api

// Endpoint paths.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathRefresh  = "/auth/refresh"
	PathLogout   = "/auth/logout"
	PathMe       = "/auth/me"
	PathWhoAmI   = "/admin/whoami"
	PathHealth   = "/healthz"
	PathMetrics  = "/metrics"
)

// Error reasons carried in ErrorResponse.Error. The first three are the only
// bodies a protected endpoint returns with 401.
const (
	ReasonTokenExpired        = "Token expired"
	ReasonInvalidToken        = "Invalid token"
	ReasonUserNotFound        = "User not found"
	ReasonInvalidRefreshToken = "Invalid refresh token"
	ReasonInvalidCredentials  = "Invalid credentials"
	ReasonEmailTaken          = "Email already registered"
	ReasonWeakPassword        = "Password does not meet requirements"
	ReasonMalformedRequest    = "Malformed request"
	ReasonForbidden           = "Forbidden"
	ReasonInternal            = "Internal server error"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	RoleID   int64  `json:"roleId"`
	RoleName string `json:"roleName"`
	IsAdmin  bool   `json:"isAdmin"`
}

// AuthResponse answers login and register.
type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type UserResponse struct {
	User User `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
