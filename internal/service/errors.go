package service

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTimeout      = errors.New("request timed out")
	ErrMalformed    = errors.New("malformed response")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
)

// IsAuth reports whether err means the user must (re)authenticate.
func IsAuth(err error) bool {
	return errors.Is(err, ErrNotLoggedIn) || errors.Is(err, ErrUnauthorized)
}
