package models

import (
	"strings"
	"time"
)

type WaitingListEntry struct {
	ID        string    `json:"id,omitempty"`
	Email     string    `json:"email" validate:"required,email"`
	Name      string    `json:"name,omitempty"`
	Interests []string  `json:"interests,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Normalize trims the text fields and drops blank interests.
func (e *WaitingListEntry) Normalize() {
	e.Email = strings.TrimSpace(e.Email)
	e.Name = strings.TrimSpace(e.Name)
	e.Message = strings.TrimSpace(e.Message)

	interests := e.Interests[:0]
	for _, i := range e.Interests {
		if i = strings.TrimSpace(i); i != "" {
			interests = append(interests, i)
		}
	}
	e.Interests = interests
}
