package selector

import (
	"context"
	"crypto/rand"
	"math/big"

	"capsule-machine/internal/model"
	"capsule-machine/internal/repository"
	apperrors "capsule-machine/pkg/errors"
)

// Selector performs the two-stage weighted draw: a category is chosen by
// weight, then one enabled entry of that category is chosen uniformly.
// Keeping the stages separate holds rarity probabilities stable as
// operators add or remove items within a tier.
//
// The Selector holds no mutable state of its own; weights and entries are
// read fresh on every draw so operator changes apply immediately.
type Selector struct {
	weights repository.WeightRepository
	catalog repository.CatalogRepository
}

// New creates a Selector over the weight table and catalog.
func New(weights repository.WeightRepository, catalog repository.CatalogRepository) *Selector {
	return &Selector{
		weights: weights,
		catalog: catalog,
	}
}

// secureIntn returns a uniform random int in [0, n) using crypto/rand (CSPRNG).
func secureIntn(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// Draw selects one prize. Returns ErrNoPrizeAvailable when all weights are
// zero or when neither the selected category nor the fallback has an
// enabled entry.
func (s *Selector) Draw(ctx context.Context) (*model.CatalogEntry, error) {
	category, err := s.pickCategory(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.pickEntry(ctx, category)
	if err == nil {
		return entry, nil
	}
	if err != apperrors.ErrNoPrizeAvailable || category == model.FallbackCategory {
		return nil, err
	}

	// Selected tier has no enabled entries; fall back to the lowest tier
	// before giving up.
	return s.pickEntry(ctx, model.FallbackCategory)
}

// pickCategory draws a category by weight. Rows are walked in the declared
// category order so tie-breaks are stable, and weights are totalled fresh
// per draw.
func (s *Selector) pickCategory(ctx context.Context) (model.Category, error) {
	weights, err := s.weights.GetWeights(ctx)
	if err != nil {
		return "", err
	}

	total := 0
	for _, row := range weights {
		if row.Weight <= 0 {
			continue
		}
		total += row.Weight
	}
	if total <= 0 {
		return "", apperrors.ErrNoPrizeAvailable
	}

	r := secureIntn(total)
	cum := 0
	for _, row := range weights {
		if row.Weight <= 0 {
			continue
		}
		cum += row.Weight
		if r < cum {
			return row.Category, nil
		}
	}
	// Unreachable: r < total and the cumulative walk covers [0, total).
	return weights[len(weights)-1].Category, nil
}

// pickEntry chooses uniformly among the enabled entries of one category.
func (s *Selector) pickEntry(ctx context.Context, category model.Category) (*model.CatalogEntry, error) {
	entries, err := s.catalog.ListEnabledByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperrors.ErrNoPrizeAvailable
	}
	return entries[secureIntn(len(entries))], nil
}
