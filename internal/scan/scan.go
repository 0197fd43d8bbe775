// Package scan resolves decoded barcode strings into catalog positions.
// The camera itself is an external collaborator; this package only sees
// the decoded string.
package scan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"sklad/internal/ledger"
)

// ErrDuplicateScan is returned when the same code arrives again within the
// cooldown window. Barcode readers fire several times per second while a
// code stays in frame.
var ErrDuplicateScan = errors.New("duplicate scan")

// DefaultCooldown is the window within which a repeated code is dropped.
const DefaultCooldown = 2 * time.Second

// Resolver maps scanned codes to (item id, size label) through the store.
// It is stateful: it remembers the last accepted code to drop rapid-fire
// duplicates. Not safe for concurrent use; a scanner is a single stream.
type Resolver struct {
	store    ledger.Store
	cooldown time.Duration
	now      func() time.Time

	lastCode string
	lastSeen time.Time
}

// NewResolver creates a resolver with the default cooldown.
func NewResolver(store ledger.Store) *Resolver {
	return &Resolver{store: store, cooldown: DefaultCooldown, now: time.Now}
}

// Resolve looks up a scanned code. The same code within the cooldown
// window returns ErrDuplicateScan; an unregistered code returns
// ledger.ErrNotFound. Neither mutates anything.
func (r *Resolver) Resolve(ctx context.Context, code string) (uuid.UUID, string, error) {
	now := r.now()
	if code == r.lastCode && now.Sub(r.lastSeen) < r.cooldown {
		r.lastSeen = now
		return uuid.Nil, "", ErrDuplicateScan
	}

	itemID, label, err := r.store.ResolveBarcode(ctx, code)
	if err != nil {
		return uuid.Nil, "", err
	}

	r.lastCode = code
	r.lastSeen = now
	return itemID, label, nil
}

// Reset clears the duplicate-suppression state, e.g. when the user
// switches drafts.
func (r *Resolver) Reset() {
	r.lastCode = ""
	r.lastSeen = time.Time{}
}
