package auth

import "context"

// Chain tries authenticators in order and returns the first success.
type Chain []Authenticator

// NewChain creates a Chain, skipping nil authenticators.
func NewChain(auths ...Authenticator) Chain {
	c := make(Chain, 0, len(auths))
	for _, a := range auths {
		if a != nil {
			c = append(c, a)
		}
	}
	return c
}

// Name returns "chain".
func (c Chain) Name() string { return "chain" }

// Supports reports whether any authenticator supports the request.
func (c Chain) Supports(req *AuthRequest) bool {
	for _, a := range c {
		if a.Supports(req) {
			return true
		}
	}
	return false
}

// Authenticate returns the first successful result. When none succeeds it
// returns the last rejection, or ErrMissingCredentials when no
// authenticator applied.
func (c Chain) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var last *AuthResult
	for _, a := range c {
		if !a.Supports(req) {
			continue
		}
		result, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if result.Authenticated {
			return result, nil
		}
		last = result
	}
	if last != nil {
		return last, nil
	}
	return AuthFailure(ErrMissingCredentials, c.Name()), nil
}

var _ Authenticator = Chain(nil)
