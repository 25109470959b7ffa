package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrAlreadyClaimed        = errors.New("square is already claimed")
	ErrNotClaimed            = errors.New("square is not claimed")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
