package service

import "errors"

var (
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("user already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountInactive       = errors.New("account is not active")
	ErrMissingToken          = errors.New("refresh token is required")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
)
