package models

import (
	"strings"
	"time"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency normalizes a submitted urgency. Unknown or empty values are
// kept as given (lowercased) except that empty becomes low.
func ParseUrgency(s string) Urgency {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return UrgencyLow
	}
	return Urgency(s)
}

// Label is the subject-line prefix of the staff notification.
func (u Urgency) Label() string {
	return strings.ToUpper(string(u))
}

// Color is the accent used for the urgency badge.
func (u Urgency) Color() string {
	switch u {
	case UrgencyHigh:
		return "#dc2626"
	case UrgencyMedium:
		return "#f59e0b"
	default:
		return "#16a34a"
	}
}

type ContactSubmission struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required"`
	Phone            string `json:"phone" validate:"required"`
	Subject          string `json:"subject" validate:"required"`
	Message          string `json:"message" validate:"required"`
	Appointment      string `json:"appointment,omitempty"`
	PreferredContact string `json:"preferredContact,omitempty"`
	Urgency          string `json:"urgency,omitempty"`
}

// Normalize trims surrounding whitespace so blank fields count as missing.
func (s *ContactSubmission) Normalize() {
	for _, f := range []*string{
		&s.Name, &s.Email, &s.Phone, &s.Subject, &s.Message,
		&s.Appointment, &s.PreferredContact, &s.Urgency,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// ContactRequest is the stored form of a contact submission.
type ContactRequest struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Subject          string    `json:"subject"`
	Message          string    `json:"message"`
	Appointment      string    `json:"appointment,omitempty"`
	PreferredContact string    `json:"preferredContact,omitempty"`
	Urgency          string    `json:"urgency,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewContactRequest(s ContactSubmission) ContactRequest {
	return ContactRequest{
		Name:             s.Name,
		Email:            s.Email,
		Phone:            s.Phone,
		Subject:          s.Subject,
		Message:          s.Message,
		Appointment:      s.Appointment,
		PreferredContact: s.PreferredContact,
		Urgency:          s.Urgency,
	}
}
