package remote

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"sklad/internal/ledger"
	"sklad/internal/model"
)

// Mirror caches the remote view of the catalog for one client session.
// Every mutation refreshes the cache with a full list replace; there is no
// incremental patching. Readers may call the accessors concurrently, but
// only one goroutine should drive mutations.
type Mirror struct {
	store ledger.Store

	mu           sync.RWMutex
	items        []model.Item
	supplies     []model.Supply
	errorMessage string
}

// NewMirror creates a mirror over the given store, usually a *Client.
func NewMirror(store ledger.Store) *Mirror {
	return &Mirror{store: store}
}

// Items returns the cached item list.
func (m *Mirror) Items() []model.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Item, len(m.items))
	copy(out, m.items)
	return out
}

// Supplies returns the cached supply list.
func (m *Mirror) Supplies() []model.Supply {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Supply, len(m.supplies))
	copy(out, m.supplies)
	return out
}

// ErrorMessage returns the last attached error message, empty when there
// is none.
func (m *Mirror) ErrorMessage() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorMessage
}

// ClearError dismisses the attached error message.
func (m *Mirror) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMessage = ""
}

// LoadItems refreshes the cached item list from the server, replacing it
// wholesale. A cancelled load leaves both the cache and the error message
// untouched.
func (m *Mirror) LoadItems(ctx context.Context) error {
	items, err := m.store.ListItems(ctx)
	if err != nil {
		m.attachError(err)
		return err
	}

	m.mu.Lock()
	m.items = items
	m.mu.Unlock()
	return nil
}

// LoadSupplies refreshes the cached supply list, optionally filtered by
// item.
func (m *Mirror) LoadSupplies(ctx context.Context, itemID uuid.UUID) error {
	supplies, err := m.store.ListSupplies(ctx, itemID)
	if err != nil {
		m.attachError(err)
		return err
	}

	m.mu.Lock()
	m.supplies = supplies
	m.mu.Unlock()
	return nil
}

// Availability returns a lookup over the cached items, for use as a
// draft's availability source.
func (m *Mirror) Availability() ledger.AvailabilityFunc {
	return func(itemID uuid.UUID, sizeLabel string) int {
		m.mu.RLock()
		defer m.mu.RUnlock()
		for i := range m.items {
			if m.items[i].ID == itemID {
				return m.items[i].AvailableQuantity(sizeLabel)
			}
		}
		return 0
	}
}

// CreateItem creates an item and refreshes the cache.
func (m *Mirror) CreateItem(ctx context.Context, name, description string) (*model.Item, error) {
	item, err := m.store.CreateItem(ctx, name, description)
	if err != nil {
		m.attachError(err)
		return nil, err
	}
	m.LoadItems(ctx)
	return item, nil
}

// UpdateItem updates an item and refreshes the cache.
func (m *Mirror) UpdateItem(ctx context.Context, id uuid.UUID, name, description string) (*model.Item, error) {
	item, err := m.store.UpdateItem(ctx, id, name, description)
	if err != nil {
		m.attachError(err)
		return nil, err
	}
	m.LoadItems(ctx)
	return item, nil
}

// DeleteItem deletes an item and refreshes the cache.
func (m *Mirror) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := m.store.DeleteItem(ctx, id); err != nil {
		m.attachError(err)
		return err
	}
	return m.LoadItems(ctx)
}

// CreateSize creates a size and refreshes the cache.
func (m *Mirror) CreateSize(ctx context.Context, itemID uuid.UUID, label, barcode string) (*model.Size, error) {
	size, err := m.store.CreateSize(ctx, itemID, label, barcode)
	if err != nil {
		m.attachError(err)
		return nil, err
	}
	m.LoadItems(ctx)
	return size, nil
}

// UpdateSize updates a size and refreshes the cache.
func (m *Mirror) UpdateSize(ctx context.Context, itemID, sizeID uuid.UUID, label, barcode string) (*model.Size, error) {
	size, err := m.store.UpdateSize(ctx, itemID, sizeID, label, barcode)
	if err != nil {
		m.attachError(err)
		return nil, err
	}
	m.LoadItems(ctx)
	return size, nil
}

// DeleteSize deletes a size and refreshes the cache.
func (m *Mirror) DeleteSize(ctx context.Context, itemID, sizeID uuid.UUID) error {
	if err := m.store.DeleteSize(ctx, itemID, sizeID); err != nil {
		m.attachError(err)
		return err
	}
	return m.LoadItems(ctx)
}

// Adjust applies a manual quantity adjustment and refreshes the cache.
func (m *Mirror) Adjust(ctx context.Context, itemID uuid.UUID, sizeLabel string, delta int, note string) error {
	if err := m.store.ApplyChange(ctx, itemID, sizeLabel, delta, note, model.ChangeManualAdjust); err != nil {
		m.attachError(err)
		return err
	}
	return m.LoadItems(ctx)
}

// CommitDraft commits a movement draft through the store and refreshes
// the cache. Validation failures (empty draft) never reach the network
// and never attach an error message.
func (m *Mirror) CommitDraft(ctx context.Context, d *ledger.Draft) (*model.Supply, error) {
	supply, err := d.Commit(ctx, m.store)
	if err != nil {
		if !errors.Is(err, ledger.ErrNothingToSave) && !errors.Is(err, ledger.ErrDraftClosed) {
			m.attachError(err)
		}
		return nil, err
	}
	m.LoadItems(ctx)
	return supply, nil
}

// attachError records err as the user-visible error message. Cancellation
// is suppressed entirely.
func (m *Mirror) attachError(err error) {
	if errors.Is(err, ErrCanceled) {
		return
	}
	m.mu.Lock()
	m.errorMessage = err.Error()
	m.mu.Unlock()
}
