package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sklad/internal/model"
)

// CreateItem creates a new item in the given workshop scope.
func CreateItem(ctx context.Context, db *sql.DB, workshopID *uuid.UUID, name, description string) (*model.Item, error) {
	id := uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, workshop_id, name, item_description) VALUES (?, ?, ?, ?)`,
		id, workshopID, name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID with its sizes ordered by label.
func GetItem(ctx context.Context, db *sql.DB, id uuid.UUID) (*model.Item, error) {
	item := &model.Item{}
	var description, photoMime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, workshop_id, name, item_description, photo_mime, created_at, updated_at
		 FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.WorkshopID, &item.Name, &description, &photoMime,
		&item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String

	sizes, err := listSizes(ctx, db, id)
	if err != nil {
		return nil, err
	}
	item.Sizes = sizes
	return item, nil
}

// ListItems returns all items in the workshop scope, ordered by creation
// time, each with its sizes nested.
func ListItems(ctx context.Context, db *sql.DB, workshopID *uuid.UUID) ([]model.Item, error) {
	query := `SELECT id, workshop_id, name, item_description, photo_mime, created_at, updated_at
	          FROM items WHERE `
	var args []any
	if workshopID != nil {
		query += `workshop_id = ?`
		args = append(args, *workshopID)
	} else {
		query += `workshop_id IS NULL`
	}
	query += ` ORDER BY created_at`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description, photoMime sql.NullString
		if err := rows.Scan(&item.ID, &item.WorkshopID, &item.Name, &description, &photoMime,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		sizes, err := listSizes(ctx, db, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Sizes = sizes
	}
	return items, nil
}

// UpdateItem updates an item's name and description.
func UpdateItem(ctx context.Context, db *sql.DB, id uuid.UUID, name, description string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, item_description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, description, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem deletes an item. Sizes and inventory history cascade; supply
// line items keep their (now dangling) item reference.
func DeleteItem(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemPhoto sets an item's photo data.
func SetItemPhoto(ctx context.Context, db *sql.DB, id uuid.UUID, photo []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET photo = ?, photo_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		photo, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item photo: %w", err)
	}
	return nil
}

// GetItemPhoto returns an item's photo data and MIME type.
func GetItemPhoto(ctx context.Context, db *sql.DB, id uuid.UUID) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM items WHERE id = ?`, id,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item photo: %w", err)
	}
	return photo, mime.String, nil
}
