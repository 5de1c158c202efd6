package health

import "errors"

// Value errors.
var (
	// ErrUnknownStatus indicates a status name or value outside the four levels.
	ErrUnknownStatus = errors.New("health: unknown status")

	// ErrUnknownUrgency indicates an unrecognized urgency name.
	ErrUnknownUrgency = errors.New("health: unknown urgency")
)

// Construction errors.
var (
	// ErrMissingID indicates a dependency descriptor without an id.
	ErrMissingID = errors.New("health: dependency id is required")

	// ErrNilDependency indicates a nil Dependency was registered or wrapped.
	ErrNilDependency = errors.New("health: dependency is nil")

	// ErrNoCheckFunc indicates an adapter was built without any check behavior.
	ErrNoCheckFunc = errors.New("health: no check function supplied")

	// ErrInvalidThresholds indicates threshold cut points that are not ordered.
	ErrInvalidThresholds = errors.New("health: thresholds must satisfy maxOK <= maxMinor <= maxMajor")
)

// Lifecycle errors. These signal misuse of a ResultSet by calling code.
var (
	// ErrAlreadyExecuting indicates Init for an id that is still executing in the round.
	ErrAlreadyExecuting = errors.New("health: dependency already executing in this round")

	// ErrAlreadyCompleted indicates Init for an id that already completed in the round.
	ErrAlreadyCompleted = errors.New("health: dependency already completed in this round")
)

// Evaluation failures. These are recorded inside results, never returned from Evaluate.
var (
	// ErrCheckTimeout indicates the check did not finish within its timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckCancelled indicates the check's task was cancelled before it finished.
	ErrCheckCancelled = errors.New("health: check cancelled")

	// ErrCheckInterrupted indicates the caller's context ended while awaiting the check.
	ErrCheckInterrupted = errors.New("health: check interrupted")

	// ErrPoolExhausted indicates the worker pool had no capacity for a new check.
	ErrPoolExhausted = errors.New("health: worker pool exhausted")

	// ErrTooManyInFlight indicates the per-dependency cap on outstanding checks was reached.
	ErrTooManyInFlight = errors.New("health: too many checks in flight")

	// ErrCheckPanic indicates the check panicked.
	ErrCheckPanic = errors.New("health: check panicked")

	// ErrNoResult indicates the check returned neither a result nor an error.
	ErrNoResult = errors.New("health: check returned no result")
)

// Manager errors.
var (
	// ErrDuplicateDependency indicates registration of an id that is already registered.
	ErrDuplicateDependency = errors.New("health: dependency already registered")

	// ErrDependencyNotFound indicates a lookup of an id that is not registered.
	ErrDependencyNotFound = errors.New("health: dependency not found")

	// ErrManagerClosed indicates use of a Manager after Shutdown.
	ErrManagerClosed = errors.New("health: manager is shut down")
)
