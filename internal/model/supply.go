package model

import (
	"time"

	"github.com/google/uuid"
)

// Supply is an immutable record of one inbound or outbound stock movement.
// Numbers are sequential per store (max existing + 1); supplies are only
// ever created or deleted, never edited.
type Supply struct {
	ID                uuid.UUID        `json:"id"`
	WorkshopID        *uuid.UUID       `json:"workshop_id,omitempty"`
	Number            int              `json:"number"`
	Date              time.Time        `json:"date"`
	Type              string           `json:"type"`
	LineItems         []SupplyLineItem `json:"line_items"`
	CreatedByUsername string           `json:"created_by_username,omitempty"`
}

// Supply types.
const (
	SupplyIn  = "in"
	SupplyOut = "out"
)

// SupplyLineItem is one (item, size) position within a supply. The item
// reference is non-owning: deleting the item leaves historical lines with
// a dangling reference.
type SupplyLineItem struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	ItemName  string    `json:"item_name,omitempty"`
	SizeLabel string    `json:"size_label"`
	Quantity  int       `json:"quantity"`
}

// SupplyLine is the input form of a line used when recording a movement.
type SupplyLine struct {
	ItemID    uuid.UUID `json:"item_id"`
	SizeLabel string    `json:"size_label"`
	Quantity  int       `json:"quantity"`
}
