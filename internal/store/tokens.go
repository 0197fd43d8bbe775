package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveRefreshToken records a refresh token's JTI so it can later be
// redeemed exactly once.
func SaveRefreshToken(ctx context.Context, db *sql.DB, jti string, userID int64, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO refresh_tokens (jti, user_id, expires_at) VALUES (?, ?, ?)`,
		jti, userID, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}

	// Opportunistically clean up expired tokens.
	_, _ = db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, time.Now(),
	)

	return nil
}

// ConsumeRefreshToken deletes a refresh token's JTI and reports whether it
// was still outstanding. A second redemption of the same token returns false.
func ConsumeRefreshToken(ctx context.Context, db *sql.DB, jti string, userID int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE jti = ? AND user_id = ? AND expires_at >= ?`,
		jti, userID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("consuming refresh token: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking refresh token: %w", err)
	}
	return n > 0, nil
}

// RevokeUserTokens invalidates all outstanding refresh tokens for a user.
func RevokeUserTokens(ctx context.Context, db *sql.DB, userID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = ?`, userID,
	)
	if err != nil {
		return fmt.Errorf("revoking user tokens: %w", err)
	}
	return nil
}
