package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"agency-forms/models"
)

const queryTimeout = 5 * time.Second

// DB abstracts the database operations used by the storage layer.
// Satisfied by *pgxpool.Pool in production and pgxmock in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db DB) (*PostgresStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &PostgresStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS waiting_list_entries (
    id         UUID PRIMARY KEY,
    email      TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    interests  TEXT[] NOT NULL DEFAULT '{}',
    message    TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS waiting_list_entries_email_idx ON waiting_list_entries (email);

CREATE TABLE IF NOT EXISTS contact_requests (
    id                UUID PRIMARY KEY,
    name              TEXT NOT NULL,
    email             TEXT NOT NULL,
    phone             TEXT NOT NULL,
    subject           TEXT NOT NULL,
    message           TEXT NOT NULL,
    appointment       TEXT NOT NULL DEFAULT '',
    preferred_contact TEXT NOT NULL DEFAULT '',
    urgency           TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddWaitingListEntry(ctx context.Context, entry models.WaitingListEntry) (models.WaitingListEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entry.ID = uuid.NewString()
	interests := entry.Interests
	if interests == nil {
		interests = []string{}
	}

	err := s.db.QueryRow(ctx, `
        INSERT INTO waiting_list_entries (id, email, name, interests, message)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at`,
		entry.ID, entry.Email, entry.Name, interests, entry.Message,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return models.WaitingListEntry{}, fmt.Errorf("failed to insert waiting list entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) AddContactRequest(ctx context.Context, req models.ContactRequest) (models.ContactRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	req.ID = uuid.NewString()
	err := s.db.QueryRow(ctx, `
        INSERT INTO contact_requests
            (id, name, email, phone, subject, message, appointment, preferred_contact, urgency)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at`,
		req.ID, req.Name, req.Email, req.Phone, req.Subject, req.Message,
		req.Appointment, req.PreferredContact, req.Urgency,
	).Scan(&req.CreatedAt)
	if err != nil {
		return models.ContactRequest{}, fmt.Errorf("failed to insert contact request: %w", err)
	}
	return req, nil
}
