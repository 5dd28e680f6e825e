package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"savings-circle/rosca/internal/constants"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenService signs and validates HS256 bearer tokens.
type TokenService struct {
	secretKey []byte
}

func NewTokenService(secretKey []byte) *TokenService {
	return &TokenService{secretKey: secretKey}
}

// Issue signs a token for userID valid for ttl.
func (s *TokenService) Issue(userID string, role constants.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		RoleValue: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Parse validates signature and expiry and returns the claims.
func (s *TokenService) Parse(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
