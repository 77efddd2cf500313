package report

import "errors"

var (
	// ErrInvalidInput indicates an invalid report request.
	ErrInvalidInput = errors.New("invalid report input")
	// ErrMonthNotSelectable indicates a month excluded from the monthly selector.
	ErrMonthNotSelectable = errors.New("month is not selectable")
)
