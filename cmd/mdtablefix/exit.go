package main

import "errors"

const (
	exitOK          = 0
	exitNoFiles     = 1
	exitFailure     = 2
	exitCheckFailed = 3
)

// exitError carries the process exit status out of a command. The message
// has already been printed when it is returned.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status"
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}
