package models

import "github.com/golang-jwt/jwt/v5"

// UserRole mirrors the role claim issued by the identity collaborator.
type UserRole string

// Known roles.
const (
	RoleAdmin    UserRole = "ADMIN"
	RoleCustomer UserRole = "CUSTOMER"
)

// JWTClaims represents the JWT payload for access tokens. Tokens are issued
// by the identity collaborator; this service only validates them.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
