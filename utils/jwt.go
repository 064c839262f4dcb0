package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultServiceTokenTTL bounds the lifetime of outbound service tokens.
const DefaultServiceTokenTTL = 60 * time.Second

// ServiceClaims identifies this service and the acting user to downstream services.
type ServiceClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateServiceToken issues a short-lived HS256 token with iss=issuer and sub=subject.
func GenerateServiceToken(secret, issuer, subject, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("service token secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultServiceTokenTTL
	}
	now := time.Now()
	claims := ServiceClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
