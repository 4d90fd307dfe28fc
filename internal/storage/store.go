// Package storage provides abstractions for the registration database that
// feeds the roster and ledger and records completed collections.
package storage

import (
	"context"
	"errors"

	"github.com/wsjrdp/dues/internal/models"
)

// StatusCollected is written to a participant's SEPA status once a
// collection has been recorded.
const StatusCollected = "OK"

// ErrAlreadyRecorded is returned by RecordCollection when an entry with the
// same reference was booked before.
var ErrAlreadyRecorded = errors.New("collection already recorded")

// RosterFilter narrows the roster feed.
type RosterFilter struct {
	// Statuses lists the registration statuses eligible for collection.
	// Empty means all statuses.
	Statuses []string
}

// Store defines the interface for roster and ledger access.
// This abstraction allows swapping storage backends (SQLite, MySQL)
// without changing the service layer.
type Store interface {
	// FetchRoster returns eligible participants ordered by ID. Only people
	// whose SEPA status is unset or OK are returned.
	FetchRoster(ctx context.Context, filter RosterFilter) ([]models.Participant, error)

	// FetchLedger returns all accounting entries ordered by ID.
	FetchLedger(ctx context.Context) ([]models.LedgerEntry, error)

	// RecordCollection sets the participant's SEPA status and books entry.
	// It books nothing and returns ErrAlreadyRecorded when an entry with the
	// same Reference already exists.
	// Returns models.ErrParticipantNotFound for unknown participants.
	RecordCollection(ctx context.Context, participantID int64, status string, entry models.LedgerEntry) error

	// Close releases any resources held by the store.
	Close() error
}
