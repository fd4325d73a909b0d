package auth

import "errors"

var (
	ErrUsernamePasswordRequired = errors.New("Username and password are required")
	ErrUnknownUsername          = errors.New("Unknown username")
	ErrIncorrectPassword        = errors.New("Incorrect Password")
	ErrNotAuthenticated         = errors.New("Not authenticated")
)
