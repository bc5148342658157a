package config

import "errors"

var (
	// ErrRead is returned when the configuration file cannot be read or parsed.
	ErrRead = errors.New("config: failed to read configuration")

	// ErrEnv is returned when an environment override cannot be parsed.
	ErrEnv = errors.New("config: invalid environment override")

	// ErrSecret is returned when a secret reference cannot be resolved.
	ErrSecret = errors.New("config: failed to resolve secrets")

	// ErrInvalid is returned when the layered configuration fails validation.
	ErrInvalid = errors.New("config: invalid configuration")
)
