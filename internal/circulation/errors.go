package circulation

import "errors"

var (
	// ErrNoBiometricSample is returned when no face embedding was supplied.
	ErrNoBiometricSample = errors.New("no biometric sample")
	// ErrEmptyName is returned for empty or whitespace-only names.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrInvalidItemCode is returned for item codes outside the accepted length bounds.
	ErrInvalidItemCode = errors.New("invalid item code")
)
