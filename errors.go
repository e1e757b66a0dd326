package nanocom

import "errors"

// Configuration errors, detected before a session starts
var (
	ErrInvalidExitChar = errors.New("invalid exit character")
	ErrInvalidMapping  = errors.New("invalid character map")
	ErrInvalidOption   = errors.New("invalid bridge option")
)

// Lifecycle errors
var (
	ErrAlreadyStarted = errors.New("bridge already started or stopped")
	ErrNotJoined      = errors.New("bridge must be joined before close")
)
