package attendance

import "errors"

var (
	// ErrGroupNotFound indicates the group doesn't exist.
	ErrGroupNotFound = errors.New("group not found")
	// ErrGroupExists indicates a group with the same name already exists.
	ErrGroupExists = errors.New("group already exists")
	// ErrBackupNotFound indicates the named snapshot doesn't exist.
	ErrBackupNotFound = errors.New("backup not found")
	// ErrInvalidInput indicates invalid attendance input.
	ErrInvalidInput = errors.New("invalid attendance input")
)
