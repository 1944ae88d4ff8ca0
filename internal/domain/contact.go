package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	minNameLength    = 2
	minMessageLength = 10
)

// ContactSubmission is the payload posted by the contact form.
type ContactSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Issues []FieldError
}

func (e *ValidationError) Error() string {
	fields := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		fields[i] = issue.Field
	}
	return fmt.Sprintf("invalid contact submission: %s", strings.Join(fields, ", "))
}

// Validate checks the submission and returns a *ValidationError listing
// every failing field, or nil.
func (c ContactSubmission) Validate() error {
	var issues []FieldError

	if utf8.RuneCountInString(strings.TrimSpace(c.Name)) < minNameLength {
		issues = append(issues, FieldError{
			Field:   "name",
			Code:    "too_small",
			Message: "Please enter at least 2 characters.",
		})
	}
	if !validEmail(c.Email) {
		issues = append(issues, FieldError{
			Field:   "email",
			Code:    "invalid_string",
			Message: "Please enter a valid email address.",
		})
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.Message)) < minMessageLength {
		issues = append(issues, FieldError{
			Field:   "message",
			Code:    "too_small",
			Message: "Tell us a little more about your project (10+ characters).",
		})
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// validEmail accepts a bare addr-spec whose domain has at least one dot.
// Display-name forms such as "Aki <aki@example.jp>" are rejected.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// Lead is an accepted contact submission.
type Lead struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	ContactSubmission
}

// NewLead stamps an accepted submission with an id and the current time.
func NewLead(c ContactSubmission) Lead {
	return Lead{
		ID:                uuid.New().String(),
		ReceivedAt:        clock.Now().UTC(),
		ContactSubmission: c,
	}
}
