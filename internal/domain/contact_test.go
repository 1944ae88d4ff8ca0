package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() ContactSubmission {
	return ContactSubmission{
		Name:    "Aiko Tanaka",
		Email:   "aiko@example.co.jp",
		Company: "Tanaka Logistics",
		Message: "We have a 2,000 m² warehouse roof in Kawasaki.",
	}
}

func TestContactSubmission_Validate_OK(t *testing.T) {
	require.NoError(t, validSubmission().Validate())

	minimal := ContactSubmission{Name: "Jo", Email: "jo@example.com", Message: "0123456789"}
	require.NoError(t, minimal.Validate())
}

func TestContactSubmission_Validate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ContactSubmission)
		fields []string
	}{
		{"short name", func(c *ContactSubmission) { c.Name = "A" }, []string{"name"}},
		{"blank name", func(c *ContactSubmission) { c.Name = "   " }, []string{"name"}},
		{"two-rune japanese name", func(c *ContactSubmission) { c.Name = "田中" }, nil},
		{"missing email", func(c *ContactSubmission) { c.Email = "" }, []string{"email"}},
		{"email without domain dot", func(c *ContactSubmission) { c.Email = "aiko@localhost" }, []string{"email"}},
		{"email with display name", func(c *ContactSubmission) { c.Email = "Aiko <aiko@example.jp>" }, []string{"email"}},
		{"email with spaces", func(c *ContactSubmission) { c.Email = " aiko@example.jp" }, []string{"email"}},
		{"short message", func(c *ContactSubmission) { c.Message = "Hi there" }, []string{"message"}},
		{"optional fields empty", func(c *ContactSubmission) { c.Company, c.Phone = "", "" }, nil},
		{"everything wrong", func(c *ContactSubmission) {
			c.Name, c.Email, c.Message = "", "nope", ""
		}, []string{"name", "email", "message"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)

			err := sub.Validate()
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			got := make([]string, len(verr.Issues))
			for i, issue := range verr.Issues {
				got[i] = issue.Field
				assert.NotEmpty(t, issue.Message)
				assert.NotEmpty(t, issue.Code)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ContactSubmission{}.Validate()
	require.Error(t, err)
	assert.Equal(t, "invalid contact submission: name, email, message", err.Error())
}

func TestNewLead(t *testing.T) {
	fixed := time.Date(2026, 4, 1, 9, 30, 0, 0, time.FixedZone("JST", 9*60*60))
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	sub := validSubmission()
	lead := NewLead(sub)

	_, err := uuid.Parse(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, fixed.UTC(), lead.ReceivedAt)
	assert.Equal(t, sub, lead.ContactSubmission)

	other := NewLead(sub)
	assert.NotEqual(t, lead.ID, other.ID)
}
