package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sklad/internal/ledger"
	"sklad/internal/model"
)

// CreateSupply records one stock movement atomically: the supply row with
// the next sequential number in the workshop, its line items, and a signed
// quantity application per line. Outbound lines asking for more than the
// current quantity abort the whole movement with ledger.ErrInsufficientStock.
func CreateSupply(ctx context.Context, db *sql.DB, workshopID *uuid.UUID, createdBy *int64, typ string, lines []model.SupplyLine) (*model.Supply, error) {
	if typ != model.SupplyIn && typ != model.SupplyOut {
		return nil, fmt.Errorf("unknown supply type %q", typ)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("supply has no line items")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	number, err := nextSupplyNumber(ctx, tx, workshopID)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO supplies (id, workshop_id, number, type, created_by)
		 VALUES (?, ?, ?, ?, ?)`,
		id, workshopID, number, typ, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating supply: %w", err)
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line quantity must be positive")
		}

		delta := line.Quantity
		kind := model.ChangeIn
		if typ == model.SupplyOut {
			var available int
			err := tx.QueryRowContext(ctx,
				`SELECT quantity FROM sizes WHERE item_id = ? AND size_label = ?`,
				line.ItemID, line.SizeLabel,
			).Scan(&available)
			if err != nil && err != sql.ErrNoRows {
				return nil, fmt.Errorf("checking availability: %w", err)
			}
			if available < line.Quantity {
				return nil, fmt.Errorf("size %q of item %s: %w",
					line.SizeLabel, line.ItemID, ledger.ErrInsufficientStock)
			}
			delta = -line.Quantity
			kind = model.ChangeOut
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO supply_line_items (id, supply_id, item_id, size_label, quantity)
			 VALUES (?, ?, ?, ?, ?)`,
			uuid.New(), id, line.ItemID, line.SizeLabel, line.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("creating supply line item: %w", err)
		}

		if err := applyChangeTx(ctx, tx, line.ItemID, line.SizeLabel, delta, "", kind); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing supply: %w", err)
	}

	return GetSupply(ctx, db, id)
}

// nextSupplyNumber returns max(number)+1 within the workshop scope. Numbers
// are only unique per workshop, and only as long as writers share this
// database; the single transaction makes the read-increment atomic here.
func nextSupplyNumber(ctx context.Context, tx *sql.Tx, workshopID *uuid.UUID) (int, error) {
	query := `SELECT COALESCE(MAX(number), 0) + 1 FROM supplies WHERE `
	var args []any
	if workshopID != nil {
		query += `workshop_id = ?`
		args = append(args, *workshopID)
	} else {
		query += `workshop_id IS NULL`
	}

	var number int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&number); err != nil {
		return 0, fmt.Errorf("computing supply number: %w", err)
	}
	return number, nil
}

// GetSupply returns a supply with its line items, or nil if not found.
// Line items carry the item's current name when the item still exists.
func GetSupply(ctx context.Context, db *sql.DB, id uuid.UUID) (*model.Supply, error) {
	s := &model.Supply{}
	var createdBy sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT s.id, s.workshop_id, s.number, s.date, s.type, u.username
		 FROM supplies s LEFT JOIN users u ON u.id = s.created_by
		 WHERE s.id = ?`, id,
	).Scan(&s.ID, &s.WorkshopID, &s.Number, &s.Date, &s.Type, &createdBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting supply: %w", err)
	}
	s.CreatedByUsername = createdBy.String

	lineItems, err := listSupplyLineItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	s.LineItems = lineItems
	return s, nil
}

// ListSupplies returns supplies in the workshop scope, newest first,
// capped at 100 entries. When itemID is non-nil only supplies touching
// that item are returned.
func ListSupplies(ctx context.Context, db *sql.DB, workshopID *uuid.UUID, itemID *uuid.UUID) ([]model.Supply, error) {
	query := `SELECT DISTINCT s.id, s.workshop_id, s.number, s.date, s.type, u.username
	          FROM supplies s
	          LEFT JOIN users u ON u.id = s.created_by`
	var args []any
	if itemID != nil {
		query += ` JOIN supply_line_items l ON l.supply_id = s.id AND l.item_id = ?`
		args = append(args, *itemID)
	}
	if workshopID != nil {
		query += ` WHERE s.workshop_id = ?`
		args = append(args, *workshopID)
	} else {
		query += ` WHERE s.workshop_id IS NULL`
	}
	query += ` ORDER BY s.date DESC, s.number DESC LIMIT 100`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing supplies: %w", err)
	}
	defer rows.Close()

	var supplies []model.Supply
	for rows.Next() {
		var s model.Supply
		var createdBy sql.NullString
		if err := rows.Scan(&s.ID, &s.WorkshopID, &s.Number, &s.Date, &s.Type, &createdBy); err != nil {
			return nil, fmt.Errorf("scanning supply: %w", err)
		}
		s.CreatedByUsername = createdBy.String
		supplies = append(supplies, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range supplies {
		lineItems, err := listSupplyLineItems(ctx, db, supplies[i].ID)
		if err != nil {
			return nil, err
		}
		supplies[i].LineItems = lineItems
	}
	return supplies, nil
}

// DeleteSupply removes a supply and its line items. Quantities are not
// reversed; the inventory history keeps the original applications.
func DeleteSupply(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM supplies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting supply: %w", err)
	}
	return nil
}

func listSupplyLineItems(ctx context.Context, db *sql.DB, supplyID uuid.UUID) ([]model.SupplyLineItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT l.id, l.item_id, COALESCE(i.name, ''), l.size_label, l.quantity
		 FROM supply_line_items l
		 LEFT JOIN items i ON i.id = l.item_id
		 WHERE l.supply_id = ? ORDER BY l.id`, supplyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing supply line items: %w", err)
	}
	defer rows.Close()

	var lineItems []model.SupplyLineItem
	for rows.Next() {
		var l model.SupplyLineItem
		if err := rows.Scan(&l.ID, &l.ItemID, &l.ItemName, &l.SizeLabel, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scanning supply line item: %w", err)
		}
		lineItems = append(lineItems, l)
	}
	return lineItems, rows.Err()
}
