// Package storage persists waiting-list signups and contact requests.
package storage

import (
	"context"
	"errors"

	"agency-forms/models"
)

var ErrNilDB = errors.New("storage: db connection cannot be nil")

// Store is the persistence collaborator used by the form handlers. It
// assigns the identifier and creation time of every record it accepts.
type Store interface {
	AddWaitingListEntry(ctx context.Context, entry models.WaitingListEntry) (models.WaitingListEntry, error)
	AddContactRequest(ctx context.Context, req models.ContactRequest) (models.ContactRequest, error)
}
