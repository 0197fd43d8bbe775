package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sklad/internal/model"
)

// ApplyChange applies a signed quantity delta to (item, size label),
// creating the size at quantity 0 if it does not exist yet. The resulting
// quantity is floored at zero, but the history entry records the delta as
// requested. A zero delta does nothing at all.
func ApplyChange(ctx context.Context, db *sql.DB, itemID uuid.UUID, sizeLabel string, delta int, note, kind string) error {
	if delta == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := applyChangeTx(ctx, tx, itemID, sizeLabel, delta, note, kind); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing change: %w", err)
	}
	return nil
}

// applyChangeTx is ApplyChange inside an existing transaction, so supply
// and order creation can apply several lines atomically.
func applyChangeTx(ctx context.Context, tx *sql.Tx, itemID uuid.UUID, sizeLabel string, delta int, note, kind string) error {
	if delta == 0 {
		return nil
	}

	var current int
	err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM sizes WHERE item_id = ? AND size_label = ?`,
		itemID, sizeLabel,
	).Scan(&current)
	if err == sql.ErrNoRows {
		current = 0
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sizes (id, item_id, size_label, quantity) VALUES (?, ?, ?, 0)`,
			uuid.New(), itemID, sizeLabel,
		); err != nil {
			return fmt.Errorf("creating size: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("loading size quantity: %w", err)
	}

	updated := current + delta
	if updated < 0 {
		updated = 0
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sizes SET quantity = ? WHERE item_id = ? AND size_label = ?`,
		updated, itemID, sizeLabel,
	)
	if err != nil {
		return fmt.Errorf("updating size quantity: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO inventory_changes (id, item_id, change_type, amount, size_label, note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New(), itemID, kind, delta, sizeLabel, nullIfEmpty(note),
	)
	if err != nil {
		return fmt.Errorf("recording inventory change: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, itemID,
	)
	if err != nil {
		return fmt.Errorf("stamping item: %w", err)
	}
	return nil
}

// ListChanges returns an item's quantity history, newest first. The date
// column has second granularity, so rowid breaks ties by insertion order
// for entries written in one burst.
func ListChanges(ctx context.Context, db *sql.DB, itemID uuid.UUID) ([]model.InventoryChange, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, item_id, date, change_type, amount, size_label, note
		 FROM inventory_changes WHERE item_id = ? ORDER BY date DESC, rowid DESC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inventory changes: %w", err)
	}
	defer rows.Close()

	var changes []model.InventoryChange
	for rows.Next() {
		var c model.InventoryChange
		var note sql.NullString
		if err := rows.Scan(&c.ID, &c.ItemID, &c.Date, &c.Kind, &c.Amount, &c.SizeLabel, &note); err != nil {
			return nil, fmt.Errorf("scanning inventory change: %w", err)
		}
		c.Note = note.String
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
