package service

import (
	"errors"
	"fmt"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
)

var (
	ErrNotFound          = store.ErrNotFound
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrMissingReceipt    = errors.New("payment receipt is missing")
	ErrAlreadyVerified   = errors.New("payment already verified")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUploadRejected    = errors.New("upload rejected")
	ErrConflict          = errors.New("conflict")

	// ErrFileTooLarge is an ErrUploadRejected that maps to 413.
	ErrFileTooLarge = fmt.Errorf("%w: file too large", ErrUploadRejected)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
