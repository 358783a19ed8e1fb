package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("username or email already exists")
	ErrRoleNotAllowed     = errors.New("role cannot be self-assigned")
	ErrUnauthorized       = errors.New("unauthorized")
)
