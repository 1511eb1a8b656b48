package jobsel

import "errors"

// Exported errors for library consumers.
var (
	// ErrNoDatabase indicates no database was configured.
	ErrNoDatabase = errors.New("jobsel: no database configured")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("jobsel: client is closed")
)
