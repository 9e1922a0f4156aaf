package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserPayload is the minimal identity carried by a session token.
type UserPayload struct {
	IDUserAccount int64  `json:"idUserAccount"`
	Name          string `json:"name"`
	Email         string `json:"email"`
}

// TokenClaims is the signed session token body. Only exp and iat are set
// from the registered claims.
type TokenClaims struct {
	UserPayload
	jwt.RegisteredClaims
}

// LoginAttempt is the per-request input to the authentication engine.
type LoginAttempt struct {
	Email      string
	Password   string
	RememberMe bool
	IPAddress  string
	UserAgent  string
}

// OutcomeKind tags the result of an authentication call.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeInvalidCredentials
	OutcomeAccountLocked
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeAccountLocked:
		return "account_locked"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of an authentication call. Token and User are
// set only for OutcomeSuccess; LockedMinutes only for OutcomeAccountLocked.
type Outcome struct {
	Kind          OutcomeKind
	Token         string
	User          *UserPayload
	LockedMinutes int
}

func Success(token string, user UserPayload) *Outcome {
	return &Outcome{Kind: OutcomeSuccess, Token: token, User: &user}
}

func InvalidCredentials() *Outcome {
	return &Outcome{Kind: OutcomeInvalidCredentials}
}

func AccountLocked(minutes int) *Outcome {
	return &Outcome{Kind: OutcomeAccountLocked, LockedMinutes: minutes}
}
