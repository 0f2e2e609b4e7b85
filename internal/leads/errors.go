package leads

import (
	"context"
	"errors"
	"strings"

	"github.com/boothlead/backend/internal/compat"
	"github.com/boothlead/backend/internal/store"
)

// Validation errors. They are returned before any remote call is made.
var (
	ErrEmptyQR         = errors.New("scan a badge QR code first")
	ErrNoUser          = errors.New("sign in to capture leads")
	ErrNoCompany       = errors.New("your account is not linked to a company")
	ErrNoActiveEvent   = errors.New("no active event for this company")
	ErrCompanyMismatch = errors.New("this badge belongs to another company")
	ErrEmptyPatch      = errors.New("nothing to update")
	ErrMissingID       = errors.New("lead was saved without an id")
)

var validationErrors = []error{
	ErrEmptyQR, ErrNoUser, ErrNoCompany, ErrNoActiveEvent, ErrCompanyMismatch, ErrEmptyPatch,
}

// validationError returns the sentinel err wraps, or nil.
func validationError(err error) error {
	for _, known := range validationErrors {
		if errors.Is(err, known) {
			return known
		}
	}
	return nil
}

// IsValidation reports whether err was raised by input validation rather
// than by the store.
func IsValidation(err error) bool { return validationError(err) != nil }

// UserMessage maps a repository error to a short message suitable for direct
// display. Raw backend codes are never returned.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if known := validationError(err); known != nil {
		return known.Error()
	}
	if errors.Is(err, ErrMissingID) {
		return ErrMissingID.Error()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The server took too long to respond. Try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.Is(err, store.ErrNotConfigured):
		return "Lead storage is not configured."
	case compat.IsSchemaError(err):
		return "Lead storage is out of date. Contact your administrator."
	}

	msg := strings.ToLower(store.Message(err))
	switch {
	case strings.Contains(msg, "jwt"), strings.Contains(msg, "token"):
		return "Your session has expired. Sign in again."
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "row-level security"):
		return "You do not have permission to change this lead."
	case strings.Contains(msg, "duplicate key"):
		return "This lead already exists."
	case strings.Contains(msg, "connection"), strings.Contains(msg, "dial"), strings.Contains(msg, "timeout"):
		return "Could not reach the server. Check your connection."
	}
	return "Unable to save the lead. Try again."
}
