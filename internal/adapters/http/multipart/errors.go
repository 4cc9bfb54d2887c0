package multipart

import "errors"

// Sentinel kinds for multipart decoding errors.
var (
	ErrNotMultipart    = errors.New("request is not multipart/form-data")
	ErrMalformed       = errors.New("malformed multipart body")
	ErrTooLarge        = errors.New("multipart body too large")
	ErrMissingPart     = errors.New("missing multipart part")
	ErrMissingFileName = errors.New("file part has no file name")
	ErrScratch         = errors.New("scratch file failure")
)
