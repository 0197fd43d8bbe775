package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sklad/internal/ledger"
	"sklad/internal/model"
)

// OrderLine is the input form of an order position.
type OrderLine struct {
	ItemID    uuid.UUID `json:"item_id"`
	SizeLabel string    `json:"size_label"`
	Quantity  int       `json:"quantity"`
}

// CreateOrder creates an order and deducts the ordered quantities from
// stock in the same transaction. Lines exceeding availability abort the
// order with ledger.ErrInsufficientStock.
func CreateOrder(ctx context.Context, db *sql.DB, workshopID *uuid.UUID, source, deliveryAddress, clientPhone string, lines []OrderLine) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("order has no line items")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, workshop_id, source, delivery_address, client_phone)
		 VALUES (?, ?, ?, ?, ?)`,
		id, workshopID, source, deliveryAddress, clientPhone,
	)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line quantity must be positive")
		}

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

		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_line_items (id, order_id, item_id, size_label, quantity)
			 VALUES (?, ?, ?, ?, ?)`,
			uuid.New(), id, line.ItemID, line.SizeLabel, line.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("creating order line item: %w", err)
		}

		if err := applyChangeTx(ctx, tx, line.ItemID, line.SizeLabel, -line.Quantity,
			"order "+id.String(), model.ChangeOut); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order: %w", err)
	}

	return GetOrder(ctx, db, id)
}

// GetOrder returns an order with its line items, or nil if not found.
func GetOrder(ctx context.Context, db *sql.DB, id uuid.UUID) (*model.Order, error) {
	o := &model.Order{}
	err := db.QueryRowContext(ctx,
		`SELECT id, workshop_id, source, delivery_address, client_phone, status, created_at
		 FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.WorkshopID, &o.Source, &o.DeliveryAddress, &o.ClientPhone,
		&o.Status, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	lineItems, err := listOrderLineItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	o.LineItems = lineItems
	return o, nil
}

// ListOrders returns orders in the workshop scope, newest first.
func ListOrders(ctx context.Context, db *sql.DB, workshopID *uuid.UUID) ([]model.Order, error) {
	query := `SELECT id, workshop_id, source, delivery_address, client_phone, status, created_at
	          FROM orders WHERE `
	var args []any
	if workshopID != nil {
		query += `workshop_id = ?`
		args = append(args, *workshopID)
	} else {
		query += `workshop_id IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.WorkshopID, &o.Source, &o.DeliveryAddress,
			&o.ClientPhone, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		lineItems, err := listOrderLineItems(ctx, db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].LineItems = lineItems
	}
	return orders, nil
}

// SetOrderStatus moves an order to a new status. The transition into
// cancelled restores the deducted quantities; leaving cancelled deducts
// them again, failing if stock has meanwhile run out.
func SetOrderStatus(ctx context.Context, db *sql.DB, id uuid.UUID, status string) (*model.Order, error) {
	if !model.ValidOrderStatus(status) {
		return nil, fmt.Errorf("unknown order status %q", status)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading order status: %w", err)
	}

	if current != status {
		switch {
		case status == model.OrderStatusCancelled:
			if err := shiftOrderStock(ctx, tx, id, +1); err != nil {
				return nil, err
			}
		case current == model.OrderStatusCancelled:
			if err := shiftOrderStock(ctx, tx, id, -1); err != nil {
				return nil, err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = ? WHERE id = ?`, status, id); err != nil {
			return nil, fmt.Errorf("updating order status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order status: %w", err)
	}

	return GetOrder(ctx, db, id)
}

// DeleteOrder removes an order and its line items without touching stock.
func DeleteOrder(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}
	return nil
}

// shiftOrderStock applies every line of an order with the given sign.
// Restores (+1) go in as inbound changes; re-deductions (-1) must fit the
// current availability.
func shiftOrderStock(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, sign int) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT item_id, size_label, quantity FROM order_line_items WHERE order_id = ?`,
		orderID,
	)
	if err != nil {
		return fmt.Errorf("loading order line items: %w", err)
	}

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ItemID, &l.SizeLabel, &l.Quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scanning order line item: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	kind := model.ChangeIn
	note := "order " + orderID.String() + " cancelled"
	if sign < 0 {
		kind = model.ChangeOut
		note = "order " + orderID.String() + " reinstated"
	}

	for _, l := range lines {
		if sign < 0 {
			var available int
			err := tx.QueryRowContext(ctx,
				`SELECT quantity FROM sizes WHERE item_id = ? AND size_label = ?`,
				l.ItemID, l.SizeLabel,
			).Scan(&available)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("checking availability: %w", err)
			}
			if available < l.Quantity {
				return fmt.Errorf("size %q of item %s: %w",
					l.SizeLabel, l.ItemID, ledger.ErrInsufficientStock)
			}
		}
		if err := applyChangeTx(ctx, tx, l.ItemID, l.SizeLabel, sign*l.Quantity, note, kind); err != nil {
			return err
		}
	}
	return nil
}

func listOrderLineItems(ctx context.Context, db *sql.DB, orderID uuid.UUID) ([]model.OrderLineItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT l.id, l.item_id, COALESCE(i.name, ''), l.size_label, l.quantity
		 FROM order_line_items l
		 LEFT JOIN items i ON i.id = l.item_id
		 WHERE l.order_id = ? ORDER BY l.id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing order line items: %w", err)
	}
	defer rows.Close()

	var lineItems []model.OrderLineItem
	for rows.Next() {
		var l model.OrderLineItem
		if err := rows.Scan(&l.ID, &l.ItemID, &l.ItemName, &l.SizeLabel, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scanning order line item: %w", err)
		}
		lineItems = append(lineItems, l)
	}
	return lineItems, rows.Err()
}
