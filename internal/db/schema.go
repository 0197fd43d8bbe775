package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. UUIDs are stored as TEXT; quantity
// rows keep a CHECK so the zero floor holds even if a writer misbehaves.
const schema = `
CREATE TABLE IF NOT EXISTS workshops (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    workshop_id   TEXT REFERENCES workshops(id) ON DELETE SET NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id               TEXT PRIMARY KEY,
    workshop_id      TEXT REFERENCES workshops(id) ON DELETE CASCADE,
    name             TEXT NOT NULL,
    item_description TEXT,
    photo            BLOB,
    photo_mime       TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sizes (
    id         TEXT PRIMARY KEY,
    item_id    TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    size_label TEXT NOT NULL,
    quantity   INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    barcode    TEXT,
    UNIQUE (item_id, size_label)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sizes_barcode
    ON sizes(barcode) WHERE barcode IS NOT NULL AND barcode != '';

CREATE TABLE IF NOT EXISTS inventory_changes (
    id          TEXT PRIMARY KEY,
    item_id     TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    date        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    change_type TEXT NOT NULL CHECK (change_type IN ('manual_adjust', 'in', 'out')),
    amount      INTEGER NOT NULL,
    size_label  TEXT NOT NULL,
    note        TEXT
);

CREATE INDEX IF NOT EXISTS idx_inventory_changes_item
    ON inventory_changes(item_id, date);

CREATE TABLE IF NOT EXISTS supplies (
    id          TEXT PRIMARY KEY,
    workshop_id TEXT REFERENCES workshops(id) ON DELETE CASCADE,
    number      INTEGER NOT NULL,
    date        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    type        TEXT NOT NULL CHECK (type IN ('in', 'out')),
    created_by  INTEGER REFERENCES users(id) ON DELETE SET NULL
);

-- item_id is intentionally not a foreign key: supply history outlives the
-- items it references, and a dangling reference is acceptable.
CREATE TABLE IF NOT EXISTS supply_line_items (
    id         TEXT PRIMARY KEY,
    supply_id  TEXT NOT NULL REFERENCES supplies(id) ON DELETE CASCADE,
    item_id    TEXT NOT NULL,
    size_label TEXT NOT NULL,
    quantity   INTEGER NOT NULL CHECK (quantity > 0)
);

CREATE TABLE IF NOT EXISTS orders (
    id               TEXT PRIMARY KEY,
    workshop_id      TEXT REFERENCES workshops(id) ON DELETE CASCADE,
    source           TEXT NOT NULL DEFAULT '',
    delivery_address TEXT NOT NULL DEFAULT '',
    client_phone     TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'new'
        CHECK (status IN ('new', 'shipped', 'in_transit', 'ready', 'delivered', 'cancelled')),
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_line_items (
    id         TEXT PRIMARY KEY,
    order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    item_id    TEXT NOT NULL,
    size_label TEXT NOT NULL,
    quantity   INTEGER NOT NULL CHECK (quantity > 0)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    jti        TEXT PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: barcode uniqueness used to be a hard column constraint,
	// which broke clearing a barcode on more than one size. Replaced with a
	// partial index that ignores empty values.
	`DROP INDEX IF EXISTS idx_sizes_barcode_old`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sizes_barcode
	     ON sizes(barcode) WHERE barcode IS NOT NULL AND barcode != ''`,
}

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
