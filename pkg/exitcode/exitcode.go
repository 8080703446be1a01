// Package exitcode provides standardized exit codes for licensebanner
package exitcode

import (
	"context"
	"errors"
	"io/fs"
)

// Exit codes for the licensebanner CLI
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	BuildError      = 3
	FileSystemError = 4
	TimeoutError    = 7
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case BuildError:
		return "Build error"
	case FileSystemError:
		return "File system error"
	case TimeoutError:
		return "Timeout error"
	default:
		return "Unknown error"
	}
}

// Coded attaches an exit code to an error.
type Coded struct {
	Code int
	Err  error
}

func (c *Coded) Error() string { return c.Err.Error() }

func (c *Coded) Unwrap() error { return c.Err }

// WithCode wraps err so FromError reports code. A nil err stays nil.
func WithCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &Coded{Code: code, Err: err}
}

// FromError picks the exit code for err.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	var coded *Coded
	if errors.As(err, &coded) {
		return coded.Code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return TimeoutError
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return FileSystemError
	default:
		return GeneralError
	}
}
