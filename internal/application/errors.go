package application

import "errors"

// Error taxonomy shared by the application services. Adapter errors are
// wrapped into one of these before they leave the package.
var (
	// ErrInputInvalid indicates missing or malformed input, rejected before
	// any probing.
	ErrInputInvalid = errors.New("invalid input")

	// ErrProbeFailed indicates a network or parse failure while probing.
	ErrProbeFailed = errors.New("probe failed")

	// ErrAccessBlocked indicates the remote project answered 401 or 403 to
	// the public credential.
	ErrAccessBlocked = errors.New("access blocked by remote project")

	// ErrRecordNotFound indicates no metric record has the requested ID.
	ErrRecordNotFound = errors.New("metric record not found")

	// ErrAuthFailed indicates the privileged credential was rejected.
	ErrAuthFailed = errors.New("privileged credential rejected")
)
