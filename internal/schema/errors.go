package schema

import "errors"

// Sentinel kinds for schema errors.
var (
	ErrInvalidShape  = errors.New("invalid shape")
	ErrUnknownShape  = errors.New("unknown shape")
	ErrMalformedBody = errors.New("malformed body")
	ErrMissingField  = errors.New("missing required field")
	ErrFieldType     = errors.New("invalid field type")
)
