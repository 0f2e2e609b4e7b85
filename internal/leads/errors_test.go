package leads

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boothlead/backend/internal/store"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNoActiveEvent, "no active event for this company"},
		{fmt.Errorf("create lead: %w", ErrEmptyQR), ErrEmptyQR.Error()},
		{context.DeadlineExceeded, "The server took too long to respond. Try again."},
		{store.ErrNotConfigured, "Lead storage is not configured."},
		{&store.Error{Message: `column "qr_payload" does not exist`}, "Lead storage is out of date. Contact your administrator."},
		{&store.Error{Message: "JWT expired", Code: "PGRST301"}, "Your session has expired. Sign in again."},
		{&store.Error{Message: "permission denied for table leads", Code: "42501"}, "You do not have permission to change this lead."},
		{&store.Error{Message: "dial tcp: connection refused"}, "Could not reach the server. Check your connection."},
		{errors.New("something odd"), "Unable to save the lead. Try again."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UserMessage(tt.err), "%v", tt.err)
	}
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(fmt.Errorf("x: %w", ErrNoCompany)))
	assert.False(t, IsValidation(&store.Error{Message: "boom"}))
}
