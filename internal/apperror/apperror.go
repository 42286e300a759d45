package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientBalance is returned by debit operations (transfer, donation)
	// when the requested amount exceeds the wallet balance at commit time.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Geolocation failures, mapped from the platform geolocation error codes
	// the map screen reports. They surface as a location error without
	// blocking map rendering — the map falls back to its default center.
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrLocationTimeout     = errors.New("location request timeout")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// DuplicateIdentity is returned when a registration collides with an email
// already present in the identity store.
func DuplicateIdentity(email string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("an account with email %s already exists", email),
		Field:   "email",
	}
}

// InvalidCredential is returned when a password fails verification.
// HTTP handlers map this to 401 Unauthorized.
func InvalidCredential() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "invalid email or password",
	}
}

// NoSavedSession is returned by session restore when no persisted session
// matches the presented token.
func NoSavedSession() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "no saved session",
	}
}

// NoActiveUser is returned by operations that require an authenticated user
// when none is present.
func NoActiveUser() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "no active user",
	}
}

// InsufficientBalance carries the requested amount so the view can show it.
func InsufficientBalance(amount float64) *AppError {
	return &AppError{
		Err:     ErrInsufficientBalance,
		Message: fmt.Sprintf("balance is insufficient for a debit of %.2f", amount),
		Field:   "amount",
	}
}

// Location wraps a geolocation sentinel error with a display message.
func Location(err error, message string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
	}
}
