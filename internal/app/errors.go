package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The message is shown to end users and must not enable account enumeration.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	ErrUsernameTaken = errors.New("username already exists")

	// ErrNotFound marks lookups that missed; handlers map it to 404.
	ErrNotFound = errors.New("not found")

	// ErrValidation wraps caller-supplied input that fails shape checks
	// before it reaches the store; handlers map it to 400.
	ErrValidation = errors.New("invalid input")
)
