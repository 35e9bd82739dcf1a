package session

import "errors"

var (
	ErrNoUser             = errors.New("no user logged in")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet strength requirements")
)
