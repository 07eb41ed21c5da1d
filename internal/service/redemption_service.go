package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"capsule-machine/internal/model"
	"capsule-machine/internal/repository"
	apperrors "capsule-machine/pkg/errors"

	"go.uber.org/zap"
)

// Code generation alphabet excludes visually ambiguous characters
// (I, O, 0, 1).
const (
	codeAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength     = 8
	maxGenAttempts = 10
)

// RedemptionService handles claiming redemption codes and operator
// issuance.
type RedemptionService struct {
	codes  repository.CodeRepository
	ledger repository.LedgerRepository
	uow    repository.UnitOfWork
	logger *zap.Logger
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(
	codes repository.CodeRepository,
	ledger repository.LedgerRepository,
	uow repository.UnitOfWork,
	logger *zap.Logger,
) *RedemptionService {
	return &RedemptionService{
		codes:  codes,
		ledger: ledger,
		uow:    uow,
		logger: logger,
	}
}

// NormalizeCode canonicalizes user-entered code text.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redeem claims a code for a participant and credits its value, as one
// atomic unit: the claim and the credit commit or abort together. Of any
// number of concurrent redemptions of the same code, exactly one succeeds;
// the rest observe ErrCodeAlreadyUsed. Returns the new balance.
func (s *RedemptionService) Redeem(ctx context.Context, code, participantID string) (int, error) {
	normalized := NormalizeCode(code)

	var newBalance int
	err := s.uow.WithTransaction(ctx, func(txCtx context.Context) error {
		rc, err := s.codes.GetCode(txCtx, normalized)
		if err != nil {
			return err
		}
		if rc.Used {
			return apperrors.ErrCodeAlreadyUsed
		}
		if rc.Expired(time.Now()) {
			return apperrors.ErrCodeExpired
		}

		// The conditional claim is the race arbiter: a concurrent
		// redemption that got past the read above loses here.
		if err := s.codes.ClaimCode(txCtx, normalized, participantID, time.Now()); err != nil {
			return err
		}

		newBalance, err = s.ledger.Credit(txCtx, participantID, rc.CreditValue)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("code redeemed",
		zap.String("code", normalized),
		zap.String("participant_id", participantID),
		zap.Int("balance", newBalance),
	)
	return newBalance, nil
}

// Issue creates a redemption code (operator action). With caller-supplied
// text the code is normalized and inserted; an existing code is only
// rewritten when the reissue flag is set, which re-arms it to unused. With
// no text an unambiguous random code is generated, retrying on collision.
func (s *RedemptionService) Issue(ctx context.Context, req *model.IssueCodeRequest) (*model.RedemptionCode, error) {
	if req.CreditValue <= 0 {
		return nil, fmt.Errorf("credit value must be positive, got %d", req.CreditValue)
	}

	rc := &model.RedemptionCode{
		CreditValue: req.CreditValue,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   time.Now(),
	}

	if text := NormalizeCode(req.Code); text != "" {
		rc.Code = text
		err := s.codes.InsertCode(ctx, rc)
		if errors.Is(err, apperrors.ErrCodeExists) && req.Reissue {
			if err := s.codes.ResetCode(ctx, text, req.CreditValue, req.ExpiresAt); err != nil {
				return nil, err
			}
			s.logger.Info("code reissued", zap.String("code", text))
			return s.codes.GetCode(ctx, text)
		}
		if err != nil {
			return nil, err
		}
	} else {
		inserted := false
		for attempt := 0; attempt < maxGenAttempts; attempt++ {
			rc.Code = generateCode()
			err := s.codes.InsertCode(ctx, rc)
			if err == nil {
				inserted = true
				break
			}
			if !errors.Is(err, apperrors.ErrCodeExists) {
				return nil, err
			}
		}
		if !inserted {
			return nil, fmt.Errorf("failed to generate unique code after %d attempts", maxGenAttempts)
		}
	}

	s.logger.Info("code issued",
		zap.String("code", rc.Code),
		zap.Int("credit_value", rc.CreditValue),
	)
	return rc, nil
}

// ListCodes returns all codes for the admin screen, unused first.
func (s *RedemptionService) ListCodes(ctx context.Context) ([]*model.RedemptionCode, error) {
	return s.codes.ListCodes(ctx)
}

// generateCode builds a random code from the unambiguous alphabet using
// crypto/rand.
func generateCode() string {
	b := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is not recoverable here; fall back to
			// the first character rather than panic.
			b[i] = codeAlphabet[0]
			continue
		}
		b[i] = codeAlphabet[v.Int64()]
	}
	return string(b)
}
