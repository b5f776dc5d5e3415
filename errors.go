package requeue

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("requeue: no store configured")
	ErrStoreClosed     = errors.New("requeue: store closed")
	ErrMigrationFailed = errors.New("requeue: migration failed")

	// Not found errors.
	ErrEntryNotFound     = errors.New("requeue: dead-letter entry not found")
	ErrJobRecordNotFound = errors.New("requeue: processing job record not found")

	// Conflict errors.
	ErrEntryAlreadyExists = errors.New("requeue: dead-letter entry already exists")
	ErrJobAlreadyExists   = errors.New("requeue: processing job record already exists")

	// ErrVersionConflict is returned when an entry update carries a stale
	// version token. Callers should re-fetch and re-attempt.
	ErrVersionConflict = errors.New("requeue: concurrent modification detected")

	// Publisher errors.
	ErrNotConnected = errors.New("requeue: publisher not connected")
)
