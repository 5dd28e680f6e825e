package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"savings-circle/rosca/internal/constants"
)

// UserClaims is what handlers see of the caller, however they authenticated.
type UserClaims interface {
	UserID() string
	Role() string
	Source() string
	IsAdmin() bool
}

// JWTClaims is the bearer token payload: the subject is the user id.
type JWTClaims struct {
	RoleValue constants.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func (c *JWTClaims) UserID() string { return c.Subject }
func (c *JWTClaims) Role() string   { return c.RoleValue.String() }
func (c *JWTClaims) Source() string { return string(constants.RequestSourceAPI) }
func (c *JWTClaims) IsAdmin() bool  { return c.RoleValue == constants.RoleAdmin }

// SystemClaims identifies work started by the scheduler rather than a caller.
type SystemClaims struct{}

func (SystemClaims) UserID() string { return "" }
func (SystemClaims) Role() string   { return constants.RoleAdmin.String() }
func (SystemClaims) Source() string { return string(constants.RequestSourceScheduler) }
func (SystemClaims) IsAdmin() bool  { return true }
