package slogutil

import "errors"

// Configuration errors returned by Validate, Setup and New.
var (
	// ErrInvalidLevel is returned for a Level other than debug, info, warn or error.
	ErrInvalidLevel = errors.New("invalid log level")

	// ErrInvalidFormat is returned for a Format other than text or json.
	ErrInvalidFormat = errors.New("invalid log format")

	// ErrInvalidOutput is returned for an Output other than stderr or stdout.
	ErrInvalidOutput = errors.New("invalid log output")
)
