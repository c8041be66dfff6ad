package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Identity related errors
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidIdentity = errors.New("invalid identity")
	ErrForbidden       = errors.New("forbidden")

	// Post related errors
	ErrPostNotFound = errors.New("post not found")
)
