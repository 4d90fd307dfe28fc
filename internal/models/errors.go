package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParticipantNotFound is returned by stores when an update targets a
// participant that does not exist.
var ErrParticipantNotFound = errors.New("participant not found")

// ConfigurationError aborts a run before any transaction is built.
type ConfigurationError struct {
	// Key names the missing or malformed setting, e.g. "CREDITOR_IBAN".
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}

// ValidationError describes why one participant cannot be collected from.
// It never aborts a run.
type ValidationError struct {
	ParticipantID int64
	Reasons       []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("participant %d: %s", e.ParticipantID, e.Reason())
}

// Reason joins all reasons into one line.
func (e *ValidationError) Reason() string {
	return strings.Join(e.Reasons, ", ")
}

// DataAccessError wraps a failure of the roster or ledger feed.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}
