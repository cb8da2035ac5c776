package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles the identity service supplies.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims are the verified claims attached to each request by the identity
// service. The engine treats them as already-authenticated input.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
