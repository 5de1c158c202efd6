package probe

import "errors"

var (
	// ErrUnknownKind indicates a probe spec with an unsupported kind.
	ErrUnknownKind = errors.New("probe: unknown kind")

	// ErrMissingTarget indicates a probe spec without the address it needs.
	ErrMissingTarget = errors.New("probe: target is required")

	// ErrMissingClient indicates a probe constructed without its client.
	ErrMissingClient = errors.New("probe: client is required")

	// ErrUnhealthyStatus indicates an HTTP endpoint answered with a failure status.
	ErrUnhealthyStatus = errors.New("probe: unhealthy HTTP status")

	// ErrStale indicates a file has not been modified recently enough.
	ErrStale = errors.New("probe: file is stale")
)
