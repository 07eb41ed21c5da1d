package service

import (
	"context"
	"testing"

	"capsule-machine/internal/model"
	apperrors "capsule-machine/pkg/errors"
)

func TestUpsertEntry_CreateAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.catalog.UpsertEntry(ctx, &model.UpsertEntryRequest{
		Category: "rare",
		AssetRef: "dragon.mp4",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created entry has empty id")
	}
	if !created.Enabled {
		t.Error("created entry should default to enabled")
	}

	disabled := false
	updated, err := env.catalog.UpsertEntry(ctx, &model.UpsertEntryRequest{
		ID:       created.ID,
		Category: "superrare",
		AssetRef: "dragon_v2.mp4",
		Enabled:  &disabled,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("update changed id: %q -> %q", created.ID, updated.ID)
	}
	if updated.Category != model.CategorySuperRare || updated.AssetRef != "dragon_v2.mp4" || updated.Enabled {
		t.Errorf("update not applied: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("update must preserve created_at")
	}
}

func TestUpsertEntry_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.catalog.UpsertEntry(context.Background(), &model.UpsertEntryRequest{
		Category: "mythic",
		AssetRef: "x.mp4",
	})
	if err != apperrors.ErrUnknownCategory {
		t.Fatalf("got %v, want ErrUnknownCategory", err)
	}
}

func TestUpsertEntry_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.catalog.UpsertEntry(context.Background(), &model.UpsertEntryRequest{
		ID:       "missing",
		Category: "normal",
		AssetRef: "x.mp4",
	})
	if err != apperrors.ErrEntryNotFound {
		t.Fatalf("got %v, want ErrEntryNotFound", err)
	}
}

func TestSetWeights_RejectsAllZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.catalog.SetWeights(ctx, map[string]int{
		"normal":    0,
		"common":    0,
		"rare":      0,
		"superrare": 0,
		"bonus":     0,
	})
	if err != apperrors.ErrInvalidWeightConfiguration {
		t.Fatalf("got %v, want ErrInvalidWeightConfiguration", err)
	}

	// The previous configuration survives the rejected update.
	weights, err := env.catalog.GetWeights(ctx)
	if err != nil {
		t.Fatalf("get weights: %v", err)
	}
	total := 0
	for _, row := range weights {
		total += row.Weight
	}
	if total == 0 {
		t.Fatal("rejected update was applied anyway")
	}
}

func TestSetWeights_PartialUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Zeroing one category is fine while others still carry weight.
	if err := env.catalog.SetWeights(ctx, map[string]int{"normal": 0, "rare": 40}); err != nil {
		t.Fatalf("partial update: %v", err)
	}

	weights, err := env.catalog.GetWeights(ctx)
	if err != nil {
		t.Fatalf("get weights: %v", err)
	}
	byCategory := map[model.Category]int{}
	for _, row := range weights {
		byCategory[row.Category] = row.Weight
	}
	if byCategory[model.CategoryNormal] != 0 {
		t.Errorf("normal weight = %d, want 0", byCategory[model.CategoryNormal])
	}
	if byCategory[model.CategoryRare] != 40 {
		t.Errorf("rare weight = %d, want 40", byCategory[model.CategoryRare])
	}
	// Untouched category keeps its seeded default.
	if byCategory[model.CategoryCommon] != model.DefaultCategoryWeights[model.CategoryCommon] {
		t.Errorf("common weight = %d, want default", byCategory[model.CategoryCommon])
	}
}

func TestSetWeights_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	err := env.catalog.SetWeights(context.Background(), map[string]int{"legendary": 10})
	if err != apperrors.ErrUnknownCategory {
		t.Fatalf("got %v, want ErrUnknownCategory", err)
	}
}

func TestBonusAsset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.catalog.BonusAsset(ctx); err != apperrors.ErrEntryNotFound {
		t.Fatalf("empty bonus tier: got %v, want ErrEntryNotFound", err)
	}

	env.addPrize(t, model.CategoryBonus)
	entry, err := env.catalog.BonusAsset(ctx)
	if err != nil {
		t.Fatalf("bonus asset: %v", err)
	}
	if entry.Category != model.CategoryBonus {
		t.Errorf("bonus asset category = %s", entry.Category)
	}
}

func TestListEntriesLite(t *testing.T) {
	env := newTestEnv(t)
	env.addPrize(t, model.CategoryNormal)
	env.addPrize(t, model.CategoryRare)

	lite, err := env.catalog.ListEntriesLite(context.Background())
	if err != nil {
		t.Fatalf("list lite: %v", err)
	}
	if len(lite) != 2 {
		t.Fatalf("got %d lite entries, want 2", len(lite))
	}
	for _, item := range lite {
		if item.AssetRef == "" {
			t.Error("lite entry missing asset ref")
		}
	}
}
