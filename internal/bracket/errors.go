package bracket

import "errors"

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidConfiguration = errors.New("invalid tournament configuration")
	ErrUnsupportedSize      = errors.New("unsupported bracket size")
	ErrMalformedBracket     = errors.New("malformed bracket")

	ErrMatchNotFound  = errors.New("match not found")
	ErrMatchCompleted = errors.New("match already completed")
	ErrMatchNotReady  = errors.New("match is not ready to be played")
	ErrNotInMatch     = errors.New("participant is not in this match")
)
