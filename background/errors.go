package background

import "errors"

var (
	// ErrResultRepositoryRequired is returned when a nil result repository is provided.
	ErrResultRepositoryRequired = errors.New("result repository required")

	// ErrCheckpointRepositoryRequired is returned when a nil checkpoint repository is provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrNoPhrases is returned when a coordinator would watch no phrases.
	ErrNoPhrases = errors.New("no phrases to watch")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAlreadyStarted is returned when Run is called more than once.
	ErrAlreadyStarted = errors.New("coordinator already started")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
