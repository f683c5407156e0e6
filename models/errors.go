package models

import "errors"

// ErrNotFound is wrapped by every repository error that reports a missing
// record, so callers can test for absence without knowing the backend.
var ErrNotFound = errors.New("not found")
