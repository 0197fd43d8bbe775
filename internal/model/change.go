package model

import (
	"time"

	"github.com/google/uuid"
)

// InventoryChange is one entry in an item's quantity audit history.
// Entries are append-only: they are never edited and only disappear when
// the owning item is deleted. Amount records the requested delta, which
// can differ from the applied change when a decrement floors at zero.
type InventoryChange struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	Date      time.Time `json:"date"`
	Kind      string    `json:"change_type"`
	Amount    int       `json:"amount"`
	SizeLabel string    `json:"size_label"`
	Note      string    `json:"note,omitempty"`
}

// Change kinds.
const (
	ChangeManualAdjust = "manual_adjust"
	ChangeIn           = "in"
	ChangeOut          = "out"
)
