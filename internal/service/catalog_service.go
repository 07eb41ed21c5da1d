package service

import (
	"context"
	"time"

	"capsule-machine/internal/model"
	"capsule-machine/internal/repository"
	apperrors "capsule-machine/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService handles operator maintenance of the prize catalog and the
// category weight table, plus the public bonus-asset lookup.
type CatalogService struct {
	catalog repository.CatalogRepository
	weights repository.WeightRepository
	logger  *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	catalog repository.CatalogRepository,
	weights repository.WeightRepository,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		weights: weights,
		logger:  logger,
	}
}

// UpsertEntry creates a catalog entry when req.ID is empty, otherwise
// updates the existing entry. Omitted enabled defaults to true on create
// and is kept unchanged on update.
func (s *CatalogService) UpsertEntry(ctx context.Context, req *model.UpsertEntryRequest) (*model.CatalogEntry, error) {
	category, err := model.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var entry *model.CatalogEntry
	if req.ID == "" {
		entry = &model.CatalogEntry{
			ID:        uuid.NewString(),
			Enabled:   true,
			CreatedAt: now,
		}
	} else {
		entry, err = s.catalog.GetEntry(ctx, req.ID)
		if err != nil {
			return nil, err
		}
	}

	entry.Category = category
	entry.AssetRef = req.AssetRef
	entry.Weight = req.Weight
	entry.UpdatedAt = now
	if req.Enabled != nil {
		entry.Enabled = *req.Enabled
	}

	if err := s.catalog.UpsertEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("catalog entry upserted",
		zap.String("entry_id", entry.ID),
		zap.String("category", string(entry.Category)),
		zap.Bool("enabled", entry.Enabled),
	)
	return entry, nil
}

// DeleteEntry removes a catalog entry. Its collection records stay in the
// log; the collection view simply stops resolving them.
func (s *CatalogService) DeleteEntry(ctx context.Context, id string) error {
	if err := s.catalog.DeleteEntry(ctx, id); err != nil {
		return err
	}
	s.logger.Info("catalog entry deleted", zap.String("entry_id", id))
	return nil
}

// ListEntries returns the full catalog for the admin screen.
func (s *CatalogService) ListEntries(ctx context.Context) ([]*model.CatalogEntry, error) {
	return s.catalog.ListEntries(ctx)
}

// ListEntriesLite returns the trimmed listing the completion screen polls.
func (s *CatalogService) ListEntriesLite(ctx context.Context) ([]model.EntryLite, error) {
	entries, err := s.catalog.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	lite := make([]model.EntryLite, 0, len(entries))
	for _, entry := range entries {
		lite = append(lite, model.EntryLite{
			AssetRef: entry.AssetRef,
			Enabled:  entry.Enabled,
		})
	}
	return lite, nil
}

// GetWeights returns the category weight table in declared order.
func (s *CatalogService) GetWeights(ctx context.Context) ([]model.CategoryWeight, error) {
	return s.weights.GetWeights(ctx)
}

// SetWeights updates the weights for the given categories. The resulting
// configuration is rejected if every weight would be zero, so a broken
// table fails fast here instead of at draw time.
func (s *CatalogService) SetWeights(ctx context.Context, raw map[string]int) error {
	updates := make(map[model.Category]int, len(raw))
	for tag, weight := range raw {
		category, err := model.ParseCategory(tag)
		if err != nil {
			return err
		}
		if weight < 0 {
			weight = 0
		}
		updates[category] = weight
	}

	current, err := s.weights.GetWeights(ctx)
	if err != nil {
		return err
	}
	total := 0
	for _, row := range current {
		weight := row.Weight
		if updated, ok := updates[row.Category]; ok {
			weight = updated
		}
		total += weight
	}
	if total <= 0 {
		return apperrors.ErrInvalidWeightConfiguration
	}

	if err := s.weights.SetWeights(ctx, updates); err != nil {
		return err
	}
	s.logger.Info("category weights updated", zap.Int("total_weight", total))
	return nil
}

// BonusAsset returns the newest enabled entry of the bonus tier, which is
// served directly and stays out of the draw at its default weight of zero.
func (s *CatalogService) BonusAsset(ctx context.Context) (*model.CatalogEntry, error) {
	return s.catalog.LatestEnabledByCategory(ctx, model.CategoryBonus)
}
