package model

import "github.com/golang-jwt/jwt"

const RoleAdmin = "admin"

// UserClaims is the bearer token issued by the platform's auth service.
type UserClaims struct {
	UserName string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}
