package service

import "errors"

// Sentinel kinds for service lifecycle errors.
var (
	ErrBuild    = errors.New("service build failed")
	ErrBind     = errors.New("service bind failed")
	ErrShutdown = errors.New("service shutdown failed")
)
