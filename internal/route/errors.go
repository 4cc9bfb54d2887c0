package route

import "errors"

// Sentinel kinds for route table errors.
var (
	ErrInvalidRoute = errors.New("invalid route")
)
