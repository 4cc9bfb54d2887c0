package smoke

import "errors"

// Sentinel kinds for smoke run failures.
var (
	ErrUnreachable = errors.New("service unreachable")
	ErrCheckFailed = errors.New("smoke check failed")
)
