package docs

import "errors"

// Sentinel kinds for description errors.
var (
	ErrBuild           = errors.New("api description build failed")
	ErrInvalidDocument = errors.New("api description invalid")
)
