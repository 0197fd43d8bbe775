package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sklad/internal/ledger"
	"sklad/internal/model"
)

// Ledger adapts the package-level store functions to the ledger.Store
// contract, binding them to one database and one workshop scope. Missing
// rows surface as ledger.ErrNotFound instead of nil results.
type Ledger struct {
	DB       *sql.DB
	Workshop *uuid.UUID

	// CreatedBy, when set, is recorded as the author of created supplies.
	CreatedBy *int64
}

var _ ledger.Store = (*Ledger)(nil)

func (l *Ledger) ListItems(ctx context.Context) ([]model.Item, error) {
	return ListItems(ctx, l.DB, l.Workshop)
}

func (l *Ledger) GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	item, err := GetItem(ctx, l.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, ledger.ErrNotFound)
	}
	return item, nil
}

func (l *Ledger) CreateItem(ctx context.Context, name, description string) (*model.Item, error) {
	return CreateItem(ctx, l.DB, l.Workshop, name, description)
}

func (l *Ledger) UpdateItem(ctx context.Context, id uuid.UUID, name, description string) (*model.Item, error) {
	if err := UpdateItem(ctx, l.DB, id, name, description); err != nil {
		return nil, err
	}
	return l.GetItem(ctx, id)
}

func (l *Ledger) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return DeleteItem(ctx, l.DB, id)
}

func (l *Ledger) CreateSize(ctx context.Context, itemID uuid.UUID, label, barcode string) (*model.Size, error) {
	return CreateSize(ctx, l.DB, itemID, label, barcode)
}

func (l *Ledger) UpdateSize(ctx context.Context, itemID, sizeID uuid.UUID, label, barcode string) (*model.Size, error) {
	size, err := UpdateSize(ctx, l.DB, itemID, sizeID, label, barcode)
	if err != nil {
		return nil, err
	}
	if size == nil {
		return nil, fmt.Errorf("size %s: %w", sizeID, ledger.ErrNotFound)
	}
	return size, nil
}

func (l *Ledger) DeleteSize(ctx context.Context, itemID, sizeID uuid.UUID) error {
	return DeleteSize(ctx, l.DB, itemID, sizeID)
}

func (l *Ledger) ApplyChange(ctx context.Context, itemID uuid.UUID, sizeLabel string, delta int, note, kind string) error {
	return ApplyChange(ctx, l.DB, itemID, sizeLabel, delta, note, kind)
}

func (l *Ledger) AvailableQuantity(ctx context.Context, itemID uuid.UUID, sizeLabel string) (int, error) {
	return AvailableQuantity(ctx, l.DB, itemID, sizeLabel)
}

func (l *Ledger) ListChanges(ctx context.Context, itemID uuid.UUID) ([]model.InventoryChange, error) {
	return ListChanges(ctx, l.DB, itemID)
}

func (l *Ledger) CreateSupply(ctx context.Context, typ string, lines []model.SupplyLine) (*model.Supply, error) {
	return CreateSupply(ctx, l.DB, l.Workshop, l.CreatedBy, typ, lines)
}

func (l *Ledger) ListSupplies(ctx context.Context, itemID uuid.UUID) ([]model.Supply, error) {
	var filter *uuid.UUID
	if itemID != uuid.Nil {
		filter = &itemID
	}
	return ListSupplies(ctx, l.DB, l.Workshop, filter)
}

func (l *Ledger) GetSupply(ctx context.Context, id uuid.UUID) (*model.Supply, error) {
	supply, err := GetSupply(ctx, l.DB, id)
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return nil, fmt.Errorf("supply %s: %w", id, ledger.ErrNotFound)
	}
	return supply, nil
}

func (l *Ledger) ResolveBarcode(ctx context.Context, barcode string) (uuid.UUID, string, error) {
	itemID, label, err := GetSizeByBarcode(ctx, l.DB, l.Workshop, barcode)
	if err != nil {
		return uuid.Nil, "", err
	}
	if itemID == uuid.Nil {
		return uuid.Nil, "", fmt.Errorf("barcode %q: %w", barcode, ledger.ErrNotFound)
	}
	return itemID, label, nil
}
