package secret

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset environment variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrInvalidRef indicates a secretref without a provider or reference.
	ErrInvalidRef = errors.New("secret: invalid secret reference")

	// ErrUnknownProvider indicates a secretref naming an unregistered provider.
	ErrUnknownProvider = errors.New("secret: provider is not registered")

	// ErrEmptySecret indicates a strict resolver received an empty value.
	ErrEmptySecret = errors.New("secret: provider returned empty value")
)
