// Package service provides business logic for the marketplace.
package service

import (
	"errors"
	"fmt"

	"github.com/campuskart/campuskart/internal/imagestore"
	"github.com/campuskart/campuskart/internal/model"
)

// Service errors.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUserNotFound          = errors.New("user not found")
	ErrListingNotFound       = errors.New("listing not found")
	ErrNotOwner              = errors.New("only the seller may change this listing")
	ErrEmailDomainNotAllowed = errors.New("email domain is not allowed")
	ErrEmailTaken            = errors.New("email is registered to another account")
	ErrModerationFailed      = errors.New("image moderation failed")

	ErrQuotaDenied  = model.ErrQuotaDenied
	ErrUploadFailed = imagestore.ErrUploadFailed
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrInvalidInput) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
