package auth

import (
	"context"
	"net/http"
)

// Authenticator validates credentials and returns an identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate returns (nil, error) for internal errors and
//   (AuthResult, nil) for rejected credentials.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(req *AuthRequest) bool

	// Authenticate validates the credentials in req.
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest carries the request headers an authenticator inspects.
type AuthRequest struct {
	Header http.Header
}

// RequestFromHTTP builds an AuthRequest from an inbound HTTP request.
func RequestFromHTTP(r *http.Request) *AuthRequest {
	return &AuthRequest{Header: r.Header}
}

// GetHeader returns the first value for key, or "".
func (r *AuthRequest) GetHeader(key string) string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get(key)
}

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity

	// Error explains a rejection.
	Error error

	// Method names the authenticator that produced the result.
	Method string
}

// AuthSuccess creates a successful result.
func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Identity:      identity,
		Method:        string(identity.Method),
	}
}

// AuthFailure creates a rejected result.
func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}
