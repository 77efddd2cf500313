package mcp

import "errors"

// ErrInvalidArguments indicates a tool call that is missing required fields.
var ErrInvalidArguments = errors.New("invalid tool arguments")
