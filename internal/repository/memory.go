package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"capsule-machine/internal/model"
	apperrors "capsule-machine/pkg/errors"
)

// Memory is an in-process implementation of all store interfaces backed by
// mutex-guarded maps. It serves single-node deployments and the test suite;
// the contracts are identical to the MongoDB implementations.
type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	participants map[string]*model.Participant
	codes        map[string]*model.RedemptionCode
	entries      map[string]*model.CatalogEntry
	weights      map[model.Category]int
	records      []model.CollectionRecord
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		participants: make(map[string]*model.Participant),
		codes:        make(map[string]*model.RedemptionCode),
		entries:      make(map[string]*model.CatalogEntry),
		weights:      make(map[model.Category]int),
	}
}

// WithTransaction serializes multi-step sequences against each other.
// In-process there is no crash recovery to provide; holding txMu across the
// sequence gives the same no-interleaving guarantee a store transaction
// does.
func (m *Memory) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx)
}

/* ---- LedgerRepository ---- */

func (m *Memory) GetBalance(ctx context.Context, participantID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(participantID).Credits, nil
}

func (m *Memory) TryDebit(ctx context.Context, participantID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.getOrCreateLocked(participantID)
	if p.Credits < amount {
		return 0, apperrors.ErrInsufficientCredits
	}
	p.Credits -= amount
	p.UpdatedAt = time.Now()
	return p.Credits, nil
}

func (m *Memory) Credit(ctx context.Context, participantID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.getOrCreateLocked(participantID)
	p.Credits += amount
	p.UpdatedAt = time.Now()
	return p.Credits, nil
}

// getOrCreateLocked lazily creates the ledger row. Caller must hold m.mu.
func (m *Memory) getOrCreateLocked(participantID string) *model.Participant {
	p, ok := m.participants[participantID]
	if !ok {
		p = &model.Participant{ParticipantID: participantID, UpdatedAt: time.Now()}
		m.participants[participantID] = p
	}
	return p
}

/* ---- CodeRepository ---- */

func (m *Memory) GetCode(ctx context.Context, code string) (*model.RedemptionCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rc, ok := m.codes[code]
	if !ok {
		return nil, apperrors.ErrInvalidCode
	}
	copied := *rc
	return &copied, nil
}

func (m *Memory) ClaimCode(ctx context.Context, code, participantID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.codes[code]
	if !ok {
		return apperrors.ErrInvalidCode
	}
	if rc.Used {
		return apperrors.ErrCodeAlreadyUsed
	}
	rc.Used = true
	rc.UsedBy = participantID
	rc.UsedAt = &at
	return nil
}

func (m *Memory) InsertCode(ctx context.Context, code *model.RedemptionCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.codes[code.Code]; exists {
		return apperrors.ErrCodeExists
	}
	copied := *code
	m.codes[code.Code] = &copied
	return nil
}

func (m *Memory) ResetCode(ctx context.Context, code string, creditValue int, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.codes[code]
	if !ok {
		return apperrors.ErrInvalidCode
	}
	rc.Used = false
	rc.UsedBy = ""
	rc.UsedAt = nil
	rc.CreditValue = creditValue
	rc.ExpiresAt = expiresAt
	return nil
}

func (m *Memory) ListCodes(ctx context.Context) ([]*model.RedemptionCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codes := make([]*model.RedemptionCode, 0, len(m.codes))
	for _, rc := range m.codes {
		copied := *rc
		codes = append(codes, &copied)
	}
	sort.Slice(codes, func(i, j int) bool {
		if codes[i].Used != codes[j].Used {
			return !codes[i].Used
		}
		return codes[i].CreatedAt.After(codes[j].CreatedAt)
	})
	return codes, nil
}

/* ---- CatalogRepository ---- */

func (m *Memory) UpsertEntry(ctx context.Context, entry *model.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.entries[entry.ID] = &copied
	return nil
}

func (m *Memory) GetEntry(ctx context.Context, id string) (*model.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, apperrors.ErrEntryNotFound
	}
	copied := *entry
	return &copied, nil
}

func (m *Memory) GetEntries(ctx context.Context, ids []string) (map[string]*model.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make(map[string]*model.CatalogEntry, len(ids))
	for _, id := range ids {
		if entry, ok := m.entries[id]; ok {
			copied := *entry
			entries[id] = &copied
		}
	}
	return entries, nil
}

func (m *Memory) DeleteEntry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return apperrors.ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *Memory) ListEntries(ctx context.Context) ([]*model.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]*model.CatalogEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		copied := *entry
		entries = append(entries, &copied)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (m *Memory) ListEnabledByCategory(ctx context.Context, category model.Category) ([]*model.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*model.CatalogEntry
	for _, entry := range m.entries {
		if entry.Category == category && entry.Enabled {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (m *Memory) LatestEnabledByCategory(ctx context.Context, category model.Category) (*model.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *model.CatalogEntry
	for _, entry := range m.entries {
		if entry.Category != category || !entry.Enabled {
			continue
		}
		if latest == nil || entry.CreatedAt.After(latest.CreatedAt) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, apperrors.ErrEntryNotFound
	}
	copied := *latest
	return &copied, nil
}

/* ---- WeightRepository ---- */

func (m *Memory) GetWeights(ctx context.Context) ([]model.CategoryWeight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	weights := make([]model.CategoryWeight, 0, len(model.Categories))
	for _, category := range model.Categories {
		weights = append(weights, model.CategoryWeight{
			Category: category,
			Weight:   m.weights[category],
		})
	}
	return weights, nil
}

func (m *Memory) SetWeights(ctx context.Context, weights map[model.Category]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for category, weight := range weights {
		m.weights[category] = weight
	}
	return nil
}

func (m *Memory) SeedDefaults(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for category, weight := range model.DefaultCategoryWeights {
		if _, ok := m.weights[category]; !ok {
			m.weights[category] = weight
		}
	}
	return nil
}

/* ---- CollectionRepository ---- */

func (m *Memory) AppendRecord(ctx context.Context, record *model.CollectionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *record)
	return nil
}

func (m *Memory) HasRecord(ctx context.Context, participantID, entryID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.records {
		if m.records[i].ParticipantID == participantID && m.records[i].EntryID == entryID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) Groups(ctx context.Context, participantID string) ([]model.CollectionGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byEntry := make(map[string]*model.CollectionGroup)
	for i := range m.records {
		rec := &m.records[i]
		if rec.ParticipantID != participantID {
			continue
		}
		group, ok := byEntry[rec.EntryID]
		if !ok {
			group = &model.CollectionGroup{
				EntryID:         rec.EntryID,
				FirstObtainedAt: rec.ObtainedAt,
				LastObtainedAt:  rec.ObtainedAt,
			}
			byEntry[rec.EntryID] = group
		}
		group.OwnedCount++
		if rec.ObtainedAt.Before(group.FirstObtainedAt) {
			group.FirstObtainedAt = rec.ObtainedAt
		}
		if rec.ObtainedAt.After(group.LastObtainedAt) {
			group.LastObtainedAt = rec.ObtainedAt
		}
	}

	groups := make([]model.CollectionGroup, 0, len(byEntry))
	for _, group := range byEntry {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].LastObtainedAt.After(groups[j].LastObtainedAt)
	})
	return groups, nil
}
