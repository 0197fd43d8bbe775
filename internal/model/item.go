package model

import (
	"time"

	"github.com/google/uuid"
)

// Item represents a garment in the catalog. Stock is tracked per size.
type Item struct {
	ID          uuid.UUID  `json:"id"`
	WorkshopID  *uuid.UUID `json:"workshop_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"item_description,omitempty"`
	Photo       string     `json:"photo,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Sizes       []Size     `json:"sizes"`
}

// Size is a per-item stock keeping unit: a free-text label ("S", "42"),
// the current quantity, and an optional barcode unique across the catalog.
type Size struct {
	ID       uuid.UUID `json:"id"`
	Label    string    `json:"size_label"`
	Quantity int       `json:"quantity"`
	Barcode  string    `json:"barcode,omitempty"`
}

// TotalQuantity returns the sum of quantities across all sizes.
func (i *Item) TotalQuantity() int {
	total := 0
	for _, s := range i.Sizes {
		total += s.Quantity
	}
	return total
}

// AvailableQuantity returns the quantity for the named size, or 0 if the
// size does not exist.
func (i *Item) AvailableQuantity(label string) int {
	for _, s := range i.Sizes {
		if s.Label == label {
			return s.Quantity
		}
	}
	return 0
}
