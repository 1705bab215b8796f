// Package exitcode carries process exit statuses on errors.
package exitcode

import (
	"errors"
	"fmt"
)

type fatalError struct {
	code int
	error
}

func (f fatalError) ExitStatus() int {
	return f.code
}

func (f fatalError) Unwrap() error {
	return f.error
}

// ExitStatuser is implemented by errors that carry an exit status.
type ExitStatuser interface {
	ExitStatus() int
}

// Fatal returns an error that makes retest print args and exit with code.
func Fatal(code int, args ...any) error {
	return fatalError{
		code:  code,
		error: errors.New(fmt.Sprint(args...)),
	}
}

// Fatalf is like Fatal with a format string. %w verbs are honoured.
func Fatalf(code int, format string, args ...any) error {
	return fatalError{
		code:  code,
		error: fmt.Errorf(format, args...),
	}
}

// ExitStatus returns 0 for a nil error, the carried status for an
// ExitStatuser, and 1 otherwise.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exit ExitStatuser
	if errors.As(err, &exit) {
		return exit.ExitStatus()
	}
	return 1
}
