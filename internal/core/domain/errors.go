package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrFavoriteNotFound   = errors.New("favorite not found")
	ErrConnectionNotFound = errors.New("connection not found")
)
