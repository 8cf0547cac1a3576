package common

// AuthorizationHeaderName carries "Bearer <access token>" on protected calls.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// AdminRoleName is the role that grants admin operations.
const AdminRoleName = "admin"

// DefaultRoleName is assigned to newly registered users.
const DefaultRoleName = "member"
