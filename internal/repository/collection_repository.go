package repository

import (
	"context"

	"capsule-machine/internal/model"
)

// CollectionRepository defines the interface for the append-only draw log.
type CollectionRepository interface {
	// AppendRecord appends one draw event. Duplicates for the same
	// (participant, entry) pair are recorded, not rejected.
	AppendRecord(ctx context.Context, record *model.CollectionRecord) error

	// HasRecord reports whether any prior record exists for the pair.
	// Drives first-time detection.
	HasRecord(ctx context.Context, participantID, entryID string) (bool, error)

	// Groups returns the participant's records grouped by entry with
	// occurrence counts and first/last obtained times, ordered by most
	// recently obtained first.
	Groups(ctx context.Context, participantID string) ([]model.CollectionGroup, error)
}

// UnitOfWork runs a multi-step sequence as one atomic unit. The claim-then-
// credit and debit-then-append sequences must not be separable: a crash or
// concurrent request between steps must not leave partial state behind.
type UnitOfWork interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
