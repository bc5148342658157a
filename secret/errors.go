package secret

import "errors"

var (
	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrInvalidRef is returned for a malformed secretref value.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrProviderNotFound is returned when a reference names an unknown provider.
	ErrProviderNotFound = errors.New("secret: provider not registered")

	// ErrInvalidProvider is returned for an empty provider name or nil factory.
	ErrInvalidProvider = errors.New("secret: invalid provider registration")

	// ErrProviderExists is returned when a factory name is registered twice.
	ErrProviderExists = errors.New("secret: provider already registered")

	// ErrNotFound is returned by providers when a reference has no value.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmptyValue is returned in strict mode when a provider resolves to "".
	ErrEmptyValue = errors.New("secret: provider returned empty value")
)
