package model

import "time"

// Participant represents one end-user client identified by an opaque,
// client-generated id. Created lazily with zero credits on first reference
// and never deleted.
type Participant struct {
	ParticipantID string    `bson:"participant_id" json:"participant_id"`
	Credits       int       `bson:"credits" json:"credits"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// RedemptionCode is a single-use token that credits a participant's balance
// when claimed. Once used it is immutable; only an explicit operator reissue
// re-arms it.
type RedemptionCode struct {
	Code        string     `bson:"code" json:"code"`
	CreditValue int        `bson:"credit_value" json:"credit_value"`
	Used        bool       `bson:"used" json:"used"`
	UsedBy      string     `bson:"used_by,omitempty" json:"used_by,omitempty"`
	UsedAt      *time.Time `bson:"used_at,omitempty" json:"used_at,omitempty"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
}

// Expired reports whether the code is past its expiry at the given time.
// Codes without an expiry never expire.
func (c *RedemptionCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// CatalogEntry is one drawable prize. A disabled or zero-weight entry is
// excluded from selection but keeps its collection records.
type CatalogEntry struct {
	ID        string    `bson:"entry_id" json:"id"`
	Category  Category  `bson:"category" json:"category"`
	AssetRef  string    `bson:"asset_ref" json:"asset_ref"`
	Weight    int       `bson:"weight" json:"weight"`
	Enabled   bool      `bson:"enabled" json:"enabled"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CategoryWeight is one row of the category weight table driving the first
// stage of the draw.
type CategoryWeight struct {
	Category Category `bson:"category" json:"category"`
	Weight   int      `bson:"weight" json:"weight"`
}

// CollectionRecord is one historical draw event. The log is append-only;
// duplicate draws append new rows and counts are derived at query time.
type CollectionRecord struct {
	ParticipantID string    `bson:"participant_id" json:"participant_id"`
	EntryID       string    `bson:"entry_id" json:"entry_id"`
	ObtainedAt    time.Time `bson:"obtained_at" json:"obtained_at"`
}

// CollectionGroup is one grouped row of the collection log: how many times
// a participant has drawn one entry and when.
type CollectionGroup struct {
	EntryID         string    `bson:"_id" json:"entry_id"`
	OwnedCount      int       `bson:"owned_count" json:"owned_count"`
	FirstObtainedAt time.Time `bson:"first_obtained_at" json:"first_obtained_at"`
	LastObtainedAt  time.Time `bson:"last_obtained_at" json:"last_obtained_at"`
}

// CollectionItem is the grouped per-entry view of a participant's
// collection.
type CollectionItem struct {
	Entry           CatalogEntry `json:"entry"`
	OwnedCount      int          `json:"owned_count"`
	FirstObtainedAt time.Time    `json:"first_obtained_at"`
	LastObtainedAt  time.Time    `json:"last_obtained_at"`
}

// DrawResult is the outcome of one successful draw.
type DrawResult struct {
	Entry       CatalogEntry `json:"prize"`
	IsFirstTime bool         `json:"is_first_time"`
	Balance     int          `json:"balance"`
}

// RedeemRequest is the end-user request to claim a redemption code.
type RedeemRequest struct {
	Code          string `json:"code" binding:"required"`
	ParticipantID string `json:"participant_id" binding:"required"`
}

// DrawRequest is the end-user request to spend one credit on a draw.
type DrawRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

// IssueCodeRequest is the operator request to create or reissue a code.
type IssueCodeRequest struct {
	Code        string     `json:"code"`
	CreditValue int        `json:"credit_value" binding:"required,gt=0"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Reissue     bool       `json:"reissue"`
}

// UpsertEntryRequest is the operator request to create or update a catalog
// entry. An empty ID creates a new entry.
type UpsertEntryRequest struct {
	ID       string `json:"id"`
	Category string `json:"category" binding:"required"`
	AssetRef string `json:"asset_ref" binding:"required"`
	Weight   int    `json:"weight" binding:"gte=0"`
	Enabled  *bool  `json:"enabled"`
}

// EntryLite is the trimmed catalog listing used by the completion screen.
type EntryLite struct {
	AssetRef string `json:"asset_ref"`
	Enabled  bool   `json:"enabled"`
}
