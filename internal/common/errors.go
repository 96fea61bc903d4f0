// Package common defines shared constants and sentinel errors used across
// storage, service and transport layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrorDependency   = errors.New("dependency failure")

	// Listing errors.
	ErrPageNotFound = errors.New("page does not exist")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired               = errors.New("token expired")
	ErrInvalidOrExpiredResetToken = errors.New("reset token is invalid or expired")
)
