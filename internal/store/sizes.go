package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sklad/internal/model"
)

// CreateSize finds or creates the size with the given label under an item
// and sets its barcode. New sizes start at quantity 0.
func CreateSize(ctx context.Context, db *sql.DB, itemID uuid.UUID, label, barcode string) (*model.Size, error) {
	id := uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO sizes (id, item_id, size_label, quantity, barcode) VALUES (?, ?, ?, 0, ?)
		 ON CONFLICT (item_id, size_label) DO UPDATE SET barcode = excluded.barcode`,
		id, itemID, label, nullIfEmpty(barcode),
	)
	if err != nil {
		return nil, fmt.Errorf("creating size: %w", err)
	}

	return getSizeByLabel(ctx, db, itemID, label)
}

// UpdateSize updates a size's label and barcode. An empty barcode clears
// the existing one.
func UpdateSize(ctx context.Context, db *sql.DB, itemID, sizeID uuid.UUID, label, barcode string) (*model.Size, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE sizes SET size_label = ?, barcode = ? WHERE id = ? AND item_id = ?`,
		label, nullIfEmpty(barcode), sizeID, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating size: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}

	return GetSize(ctx, db, sizeID)
}

// DeleteSize deletes a size by ID.
func DeleteSize(ctx context.Context, db *sql.DB, itemID, sizeID uuid.UUID) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM sizes WHERE id = ? AND item_id = ?`, sizeID, itemID,
	)
	if err != nil {
		return fmt.Errorf("deleting size: %w", err)
	}
	return nil
}

// GetSize returns a size by ID.
func GetSize(ctx context.Context, db *sql.DB, id uuid.UUID) (*model.Size, error) {
	s := &model.Size{}
	var barcode sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, size_label, quantity, barcode FROM sizes WHERE id = ?`, id,
	).Scan(&s.ID, &s.Label, &s.Quantity, &barcode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting size: %w", err)
	}
	s.Barcode = barcode.String
	return s, nil
}

// GetSizeByBarcode resolves a barcode to the (item id, size label) it is
// registered under, scoped to a workshop. Returns sql.ErrNoRows-style
// (zero, "", nil) miss as (uuid.Nil, "", nil).
func GetSizeByBarcode(ctx context.Context, db *sql.DB, workshopID *uuid.UUID, barcode string) (uuid.UUID, string, error) {
	query := `SELECT s.item_id, s.size_label
	          FROM sizes s JOIN items i ON i.id = s.item_id
	          WHERE s.barcode = ? AND `
	args := []any{barcode}
	if workshopID != nil {
		query += `i.workshop_id = ?`
		args = append(args, *workshopID)
	} else {
		query += `i.workshop_id IS NULL`
	}

	var itemID uuid.UUID
	var label string
	err := db.QueryRowContext(ctx, query, args...).Scan(&itemID, &label)
	if err == sql.ErrNoRows {
		return uuid.Nil, "", nil
	}
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("resolving barcode: %w", err)
	}
	return itemID, label, nil
}

// AvailableQuantity returns the current quantity for (item, size label),
// or 0 if the size does not exist.
func AvailableQuantity(ctx context.Context, db *sql.DB, itemID uuid.UUID, sizeLabel string) (int, error) {
	var qty int
	err := db.QueryRowContext(ctx,
		`SELECT quantity FROM sizes WHERE item_id = ? AND size_label = ?`,
		itemID, sizeLabel,
	).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting available quantity: %w", err)
	}
	return qty, nil
}

func getSizeByLabel(ctx context.Context, db *sql.DB, itemID uuid.UUID, label string) (*model.Size, error) {
	s := &model.Size{}
	var barcode sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, size_label, quantity, barcode FROM sizes WHERE item_id = ? AND size_label = ?`,
		itemID, label,
	).Scan(&s.ID, &s.Label, &s.Quantity, &barcode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting size: %w", err)
	}
	s.Barcode = barcode.String
	return s, nil
}

// listSizes returns an item's sizes ordered by label.
func listSizes(ctx context.Context, db *sql.DB, itemID uuid.UUID) ([]model.Size, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, size_label, quantity, barcode FROM sizes
		 WHERE item_id = ? ORDER BY size_label`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sizes: %w", err)
	}
	defer rows.Close()

	var sizes []model.Size
	for rows.Next() {
		var s model.Size
		var barcode sql.NullString
		if err := rows.Scan(&s.ID, &s.Label, &s.Quantity, &barcode); err != nil {
			return nil, fmt.Errorf("scanning size: %w", err)
		}
		s.Barcode = barcode.String
		sizes = append(sizes, s)
	}
	return sizes, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
