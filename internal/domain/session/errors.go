package session

import "errors"

var (
	// ErrNoActiveProcess indicates there is no session, or the session is in a
	// stage where the requested step doesn't apply.
	ErrNoActiveProcess = errors.New("no active process")
	// ErrStudentNotFound indicates the student is not on the session roster.
	ErrStudentNotFound = errors.New("student not found")
	// ErrInvalidInput indicates an invalid transition argument.
	ErrInvalidInput = errors.New("invalid session input")
)
