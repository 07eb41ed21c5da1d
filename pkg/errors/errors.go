package errors

import "errors"

// Domain errors for the capsule machine engine
var (
	// ErrInsufficientCredits is returned when a draw is requested with a
	// balance lower than the draw cost. Recoverable: the participant can
	// redeem more credits.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidCode is returned when a redemption code does not exist.
	ErrInvalidCode = errors.New("invalid code")

	// ErrCodeAlreadyUsed is returned when a redemption code has already
	// been claimed by some participant.
	ErrCodeAlreadyUsed = errors.New("code already used")

	// ErrCodeExpired is returned when a redemption code is past its expiry.
	ErrCodeExpired = errors.New("code expired")

	// ErrCodeExists is returned when issuing a code that already exists
	// without the reissue flag.
	ErrCodeExists = errors.New("code already exists")

	// ErrNoPrizeAvailable means no enabled catalog entry could be selected
	// for any category. This is an operator configuration problem, not a
	// participant error.
	ErrNoPrizeAvailable = errors.New("no prize available")

	// ErrInvalidWeightConfiguration is returned when an operator tries to
	// configure category weights that sum to zero.
	ErrInvalidWeightConfiguration = errors.New("invalid weight configuration")

	// ErrEntryNotFound is returned when a catalog entry id does not exist.
	ErrEntryNotFound = errors.New("catalog entry not found")

	// ErrUnknownCategory is returned for a category tag outside the
	// declared set.
	ErrUnknownCategory = errors.New("unknown category")
)
