package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sklad/internal/model"
)

// CreateWorkshop creates a new workshop.
func CreateWorkshop(ctx context.Context, db *sql.DB, name string) (*model.Workshop, error) {
	id := uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO workshops (id, name) VALUES (?, ?)`, id, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating workshop: %w", err)
	}

	return GetWorkshop(ctx, db, id)
}

// GetWorkshop returns a workshop by ID.
func GetWorkshop(ctx context.Context, db *sql.DB, id uuid.UUID) (*model.Workshop, error) {
	w := &model.Workshop{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM workshops WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting workshop: %w", err)
	}
	return w, nil
}

// ListWorkshops returns all workshops ordered by name.
func ListWorkshops(ctx context.Context, db *sql.DB) ([]model.Workshop, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, created_at FROM workshops ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing workshops: %w", err)
	}
	defer rows.Close()

	var workshops []model.Workshop
	for rows.Next() {
		var w model.Workshop
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning workshop: %w", err)
		}
		workshops = append(workshops, w)
	}
	return workshops, rows.Err()
}
