package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// APIKeyConfig configures the API key authenticator.
type APIKeyConfig struct {
	// HeaderName is the header carrying the key.
	// Default: "X-API-Key"
	HeaderName string

	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

// APIKeyInfo describes a registered key.
type APIKeyInfo struct {
	ID string

	// KeyHash is the hex SHA-256 of the key; see HashAPIKey.
	KeyHash string

	Principal string
	Roles     []string

	// ExpiresAt is when the key stops working. Zero means never.
	ExpiresAt time.Time
}

// APIKeyStore looks up keys by hash. Lookup returns nil when the hash is unknown.
type APIKeyStore interface {
	Lookup(ctx context.Context, keyHash string) (*APIKeyInfo, error)
}

// APIKeyAuthenticator validates static API keys.
type APIKeyAuthenticator struct {
	config APIKeyConfig
	store  APIKeyStore
}

// NewAPIKeyAuthenticator creates an API key authenticator.
func NewAPIKeyAuthenticator(config APIKeyConfig, store APIKeyStore) *APIKeyAuthenticator {
	if config.HeaderName == "" {
		config.HeaderName = "X-API-Key"
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &APIKeyAuthenticator{config: config, store: store}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return string(AuthMethodAPIKey) }

// Supports reports whether the request carries the key header.
func (a *APIKeyAuthenticator) Supports(req *AuthRequest) bool {
	return req.GetHeader(a.config.HeaderName) != ""
}

// Authenticate validates the key against the store.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	key := strings.TrimSpace(req.GetHeader(a.config.HeaderName))
	if key == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	info, err := a.store.Lookup(ctx, HashAPIKey(key))
	if err != nil {
		return nil, err
	}
	if info == nil {
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	}

	id := &Identity{
		Principal: info.Principal,
		Roles:     info.Roles,
		Method:    AuthMethodAPIKey,
		Claims:    map[string]any{"key_id": info.ID},
		ExpiresAt: info.ExpiresAt,
	}
	if id.ExpiredAt(a.config.Now()) {
		return AuthFailure(ErrTokenExpired, a.Name()), nil
	}
	return AuthSuccess(id), nil
}

// HashAPIKey returns the hex SHA-256 of key for storage.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// MemoryAPIKeyStore is an in-memory APIKeyStore.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys []*APIKeyInfo
}

// NewMemoryAPIKeyStore creates a store holding infos.
func NewMemoryAPIKeyStore(infos ...*APIKeyInfo) *MemoryAPIKeyStore {
	s := &MemoryAPIKeyStore{}
	for _, info := range infos {
		s.Add(info)
	}
	return s
}

// Lookup compares keyHash against every stored hash in constant time.
func (s *MemoryAPIKeyStore) Lookup(_ context.Context, keyHash string) (*APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *APIKeyInfo
	for _, info := range s.keys {
		if subtle.ConstantTimeCompare([]byte(info.KeyHash), []byte(keyHash)) == 1 {
			found = info
		}
	}
	return found, nil
}

// Add registers info, replacing any key with the same hash.
func (s *MemoryAPIKeyStore) Add(info *APIKeyInfo) {
	if info == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.keys {
		if existing.KeyHash == info.KeyHash {
			s.keys[i] = info
			return
		}
	}
	s.keys = append(s.keys, info)
}

// Remove deletes the key with keyHash.
func (s *MemoryAPIKeyStore) Remove(keyHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.keys {
		if existing.KeyHash == keyHash {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			return
		}
	}
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*MemoryAPIKeyStore)(nil)
)
