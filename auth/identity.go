package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodJWT    AuthMethod = "jwt"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// Identity is an authenticated caller.
type Identity struct {
	// Principal identifies the caller, for example a user or service name.
	Principal string

	// Roles are the roles granted to the caller.
	Roles []string

	// Method records which authenticator produced the identity.
	Method AuthMethod

	// Claims holds raw token claims or key metadata.
	Claims map[string]any

	// ExpiresAt is when the credential expires. Zero means never.
	ExpiresAt time.Time
}

// HasRole reports whether the identity was granted role.
func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}

// ExpiredAt reports whether the credential had expired at now.
func (id *Identity) ExpiredAt(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}
