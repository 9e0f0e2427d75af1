package db

import "errors"

// Sentinel errors for backend operations.
var (
	ErrNoSuchTable = errors.New("db: no such table")
)

// Op constants name the wire operation for error context.
const (
	OpHandshake = "HANDSHAKE"
	OpSearch    = "SEARCH"
	OpExcerpt   = "EXCERPT"
	OpHGetAll   = "HGETALL"
	OpHMGet     = "HMGET"
	OpScan      = "SCAN"
	OpSelect    = "SELECT"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
