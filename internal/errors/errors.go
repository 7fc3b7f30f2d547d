package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session gateway
var (
	// Token store errors
	ErrNoTokens = errors.New("no tokens stored")
	ErrNoFlags  = errors.New("no session flags stored")
	ErrNoState  = errors.New("no oauth state stored")

	// Backend errors
	ErrNetwork            = errors.New("network error occurred")
	ErrBackend            = errors.New("backend error")
	ErrMissingAccessToken = errors.New("no access token in response")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
