package models

import "time"

// CredentialRecord is a user account as returned by sp_user_account_get_by_email.
// It is only ever mutated by the store's failure and success routines.
type CredentialRecord struct {
	ID                  int64
	Name                string
	Email               string
	PasswordHash        string
	Active              bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
}

// IsLockedAt reports whether the lockout window is still open at now.
func (c *CredentialRecord) IsLockedAt(now time.Time) bool {
	return c.LockedUntil != nil && c.LockedUntil.After(now)
}

// Payload is the identity embedded in a session token and returned to the client.
func (c *CredentialRecord) Payload() UserPayload {
	return UserPayload{
		IDUserAccount: c.ID,
		Name:          c.Name,
		Email:         c.Email,
	}
}
