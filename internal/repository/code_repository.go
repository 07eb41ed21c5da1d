package repository

import (
	"context"
	"time"

	"capsule-machine/internal/model"
)

// CodeRepository defines the interface for redemption code data operations.
// Codes are case-normalized before they reach this layer.
type CodeRepository interface {
	// GetCode retrieves a code. Returns ErrInvalidCode if absent.
	GetCode(ctx context.Context, code string) (*model.RedemptionCode, error)

	// ClaimCode atomically transitions used=false to used=true, recording
	// who consumed the code and when. Returns ErrCodeAlreadyUsed if the
	// code was already claimed. Of any number of concurrent claims for one
	// code, exactly one succeeds.
	ClaimCode(ctx context.Context, code, participantID string, at time.Time) error

	// InsertCode creates a new code. Returns ErrCodeExists on duplicate.
	InsertCode(ctx context.Context, code *model.RedemptionCode) error

	// ResetCode re-arms an existing code to unused with a new credit value
	// and expiry, clearing used_by/used_at. Operator-only override.
	ResetCode(ctx context.Context, code string, creditValue int, expiresAt *time.Time) error

	// ListCodes returns all codes, unused first, newest first.
	ListCodes(ctx context.Context) ([]*model.RedemptionCode, error)
}
