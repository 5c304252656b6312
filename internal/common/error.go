// Package common defines shared constants and sentinel errors used across
// client and server layers of feedkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound          = errors.New("not found")
	ErrAlreadySynced     = errors.New("record already carries a household tag")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrUnknownKind       = errors.New("unknown record kind")
	ErrHouseholdMismatch = errors.New("record belongs to another household")

	// Remote gateway errors.
	ErrNotConfigured     = errors.New("remote gateway not configured")
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// Reconciliation errors.
	ErrPartialRecordFailure = errors.New("record failed to sync")
	ErrReentrancyRejected   = errors.New("sync pass already running")
)
