package auth

import "errors"

var (
	// ErrEmailAlreadyExists indicates the email or username is already registered.
	ErrEmailAlreadyExists = errors.New("email already exists")
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound signals that the user could not be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenNotFound signals that no live refresh token matches the hash.
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrInvalidRole signals a role name outside the recognised set.
	ErrInvalidRole = errors.New("invalid role")
	// ErrUnauthorized represents missing or invalid authentication tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
)
