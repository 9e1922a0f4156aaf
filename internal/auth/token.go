package auth

import (
	"fmt"
	"time"

	"github.com/BradenHooton/keystone/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenManager issues and validates session tokens
type TokenManager struct {
	secret           []byte
	expiry           time.Duration
	rememberMeExpiry time.Duration
	now              func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, expiry, rememberMeExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:           []byte(secret),
		expiry:           expiry,
		rememberMeExpiry: rememberMeExpiry,
		now:              time.Now,
	}
}

// Expiry returns the token lifetime for the given remember-me flag.
func (tm *TokenManager) Expiry(rememberMe bool) time.Duration {
	if rememberMe {
		return tm.rememberMeExpiry
	}
	return tm.expiry
}

// Issue signs a token whose body is exactly the payload plus iat and exp.
func (tm *TokenManager) Issue(payload models.UserPayload, rememberMe bool) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.Expiry(rememberMe))

	claims := &models.TokenClaims{
		UserPayload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.IDUserAccount == 0 {
		return nil, fmt.Errorf("invalid token: missing account id")
	}

	return claims, nil
}
