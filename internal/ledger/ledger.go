// Package ledger defines the inventory ledger contract: the storage
// abstraction both the embedded SQLite store and the remote REST client
// implement, and the draft used to assemble stock movements before they
// are committed as supplies.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"sklad/internal/model"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound is returned for lookups of unknown items, sizes,
	// supplies or barcodes.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when an outbound movement asks for
	// more than the current quantity of a size.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store is the storage abstraction behind the ledger. The embedded SQLite
// store is the authoritative implementation; the remote client mirrors the
// same contract over the REST boundary. Implementations are selected at
// composition time.
//
// Quantity is mutated only through ApplyChange and CreateSupply; every
// mutation appends an InventoryChange entry recording the requested delta.
type Store interface {
	ListItems(ctx context.Context) ([]model.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error)
	CreateItem(ctx context.Context, name, description string) (*model.Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, name, description string) (*model.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	CreateSize(ctx context.Context, itemID uuid.UUID, label, barcode string) (*model.Size, error)
	UpdateSize(ctx context.Context, itemID, sizeID uuid.UUID, label, barcode string) (*model.Size, error)
	DeleteSize(ctx context.Context, itemID, sizeID uuid.UUID) error

	// ApplyChange applies a signed quantity delta to the named size,
	// creating the size at quantity 0 if absent. The resulting quantity is
	// floored at zero; the history entry records the unclamped delta.
	// A zero delta is a no-op.
	ApplyChange(ctx context.Context, itemID uuid.UUID, sizeLabel string, delta int, note, kind string) error

	// AvailableQuantity returns the current quantity for (item, size
	// label), or 0 if the size does not exist.
	AvailableQuantity(ctx context.Context, itemID uuid.UUID, sizeLabel string) (int, error)

	ListChanges(ctx context.Context, itemID uuid.UUID) ([]model.InventoryChange, error)

	// CreateSupply records a movement: one supply row with the next
	// sequential number, its line items, and a signed quantity application
	// per line. Outbound lines exceeding availability are rejected with
	// ErrInsufficientStock.
	CreateSupply(ctx context.Context, typ string, lines []model.SupplyLine) (*model.Supply, error)
	ListSupplies(ctx context.Context, itemID uuid.UUID) ([]model.Supply, error)
	GetSupply(ctx context.Context, id uuid.UUID) (*model.Supply, error)

	// ResolveBarcode maps a scanned code to the (item id, size label) it
	// is registered under, or ErrNotFound.
	ResolveBarcode(ctx context.Context, barcode string) (uuid.UUID, string, error)
}
