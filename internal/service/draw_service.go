package service

import (
	"context"
	"time"

	"capsule-machine/internal/model"
	"capsule-machine/internal/repository"
	"capsule-machine/internal/selector"

	"go.uber.org/zap"
)

// DrawService orchestrates one draw: debit, weighted selection, first-time
// check and collection append as one atomic unit.
type DrawService struct {
	ledger   repository.LedgerRepository
	records  repository.CollectionRepository
	catalog  repository.CatalogRepository
	selector *selector.Selector
	uow      repository.UnitOfWork
	logger   *zap.Logger
}

// NewDrawService creates a new draw service
func NewDrawService(
	ledger repository.LedgerRepository,
	records repository.CollectionRepository,
	catalog repository.CatalogRepository,
	sel *selector.Selector,
	uow repository.UnitOfWork,
	logger *zap.Logger,
) *DrawService {
	return &DrawService{
		ledger:   ledger,
		records:  records,
		catalog:  catalog,
		selector: sel,
		uow:      uow,
		logger:   logger,
	}
}

// GetBalance returns the participant's credits, creating the ledger row on
// first reference.
func (s *DrawService) GetBalance(ctx context.Context, participantID string) (int, error) {
	return s.ledger.GetBalance(ctx, participantID)
}

// PerformDraw spends one credit on a weighted draw and records the result.
// A selection failure after the debit still consumes the credit: the debit
// commits and ErrNoPrizeAvailable is reported, never refunded automatically.
func (s *DrawService) PerformDraw(ctx context.Context, participantID string) (*model.DrawResult, error) {
	var result *model.DrawResult
	var selectErr error

	err := s.uow.WithTransaction(ctx, func(txCtx context.Context) error {
		balance, err := s.ledger.TryDebit(txCtx, participantID, 1)
		if err != nil {
			return err
		}

		entry, err := s.selector.Draw(txCtx)
		if err != nil {
			// Commit the debit anyway; the credit is spent.
			selectErr = err
			return nil
		}

		seen, err := s.records.HasRecord(txCtx, participantID, entry.ID)
		if err != nil {
			return err
		}

		// Appended regardless of prior existence: duplicates are recorded,
		// counts are derived at query time.
		record := &model.CollectionRecord{
			ParticipantID: participantID,
			EntryID:       entry.ID,
			ObtainedAt:    time.Now(),
		}
		if err := s.records.AppendRecord(txCtx, record); err != nil {
			return err
		}

		result = &model.DrawResult{
			Entry:       *entry,
			IsFirstTime: !seen,
			Balance:     balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if selectErr != nil {
		s.logger.Warn("draw consumed a credit without a prize",
			zap.String("participant_id", participantID),
			zap.Error(selectErr),
		)
		return nil, selectErr
	}

	s.logger.Info("draw performed",
		zap.String("participant_id", participantID),
		zap.String("entry_id", result.Entry.ID),
		zap.String("category", string(result.Entry.Category)),
		zap.Bool("first_time", result.IsFirstTime),
	)
	return result, nil
}

// ListCollection returns the participant's collection grouped by distinct
// entry, most recently obtained first. Records of since-deleted catalog
// entries are omitted.
func (s *DrawService) ListCollection(ctx context.Context, participantID string) ([]model.CollectionItem, error) {
	groups, err := s.records.Groups(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []model.CollectionItem{}, nil
	}

	ids := make([]string, 0, len(groups))
	for _, group := range groups {
		ids = append(ids, group.EntryID)
	}
	entries, err := s.catalog.GetEntries(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]model.CollectionItem, 0, len(groups))
	for _, group := range groups {
		entry, ok := entries[group.EntryID]
		if !ok {
			continue
		}
		items = append(items, model.CollectionItem{
			Entry:           *entry,
			OwnedCount:      group.OwnedCount,
			FirstObtainedAt: group.FirstObtainedAt,
			LastObtainedAt:  group.LastObtainedAt,
		})
	}
	return items, nil
}
