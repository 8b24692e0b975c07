// Package notification delivers the service's transactional email over SMTP.
package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/jordan-wright/email"
)

var (
	// ErrTimeout is returned when the relay does not answer within the
	// configured per-call timeout.
	ErrTimeout        = errors.New("mail relay timed out")
	ErrInvalidMessage = errors.New("invalid email message")
)

// Mailer is a configured connection to a mail relay.
type Mailer interface {
	// Verify checks that the relay accepts connections and credentials.
	Verify(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
	Close()
}

type Message struct {
	To      []string
	ReplyTo []string
	Subject string
	HTML    []byte
	Text    []byte
	// Tag names the kind of message in logs and dev output.
	Tag string
}

func (m Message) Validate() error {
	if len(m.To) == 0 {
		return errors.Join(ErrInvalidMessage, errors.New("at least one recipient is required"))
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return errors.Join(ErrInvalidMessage, errors.New("recipient must not be blank"))
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.Join(ErrInvalidMessage, errors.New("subject is required"))
	}
	if len(m.HTML) == 0 && len(m.Text) == 0 {
		return errors.Join(ErrInvalidMessage, errors.New("body is required"))
	}
	return nil
}

func (m Message) toEmail(from string) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = m.To
	e.ReplyTo = m.ReplyTo
	e.Subject = m.Subject
	e.HTML = m.HTML
	e.Text = m.Text
	return e
}
