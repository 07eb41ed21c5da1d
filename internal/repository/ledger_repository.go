package repository

import "context"

// LedgerRepository defines the interface for participant credit balances.
// Balances are mutated only through these operations, never by direct
// assignment, and are never negative.
type LedgerRepository interface {
	// GetBalance returns the participant's credit balance, lazily creating
	// the row with zero credits on first reference.
	GetBalance(ctx context.Context, participantID string) (int, error)

	// TryDebit atomically decrements the balance if it covers amount and
	// returns the new balance. Returns ErrInsufficientCredits (and performs
	// no mutation) otherwise.
	TryDebit(ctx context.Context, participantID string, amount int) (int, error)

	// Credit atomically increments the balance by a positive amount,
	// creating the participant if needed, and returns the new balance.
	Credit(ctx context.Context, participantID string, amount int) (int, error)
}
