package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrUnknownProvider is returned for a secretref naming an unregistered provider.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrEmptySecret is returned in strict mode when a provider yields "".
	ErrEmptySecret = errors.New("secret: provider returned empty value")

	// ErrInvalidRef is returned for a malformed secretref.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
