package scan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sklad/internal/ledger"
)

// barcodeTable is a Store stub serving only ResolveBarcode.
type barcodeTable struct {
	ledger.Store
	codes map[string]struct {
		itemID uuid.UUID
		label  string
	}
	lookups int
}

func (b *barcodeTable) ResolveBarcode(ctx context.Context, code string) (uuid.UUID, string, error) {
	b.lookups++
	if hit, ok := b.codes[code]; ok {
		return hit.itemID, hit.label, nil
	}
	return uuid.Nil, "", ledger.ErrNotFound
}

func newBarcodeTable(code string, itemID uuid.UUID, label string) *barcodeTable {
	return &barcodeTable{codes: map[string]struct {
		itemID uuid.UUID
		label  string
	}{code: {itemID, label}}}
}

func newTestResolver(store ledger.Store, clock *time.Time) *Resolver {
	r := NewResolver(store)
	r.now = func() time.Time { return *clock }
	return r
}

func TestResolveRegisteredCode(t *testing.T) {
	itemID := uuid.New()
	table := newBarcodeTable("4006381333931", itemID, "M")
	clock := time.Now()
	r := newTestResolver(table, &clock)

	gotID, label, err := r.Resolve(context.Background(), "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, itemID, gotID)
	assert.Equal(t, "M", label)
}

func TestResolveUnknownCode(t *testing.T) {
	clock := time.Now()
	r := newTestResolver(&barcodeTable{}, &clock)

	_, _, err := r.Resolve(context.Background(), "0000000000000")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDuplicateWithinCooldownDropped(t *testing.T) {
	itemID := uuid.New()
	table := newBarcodeTable("4006381333931", itemID, "M")
	clock := time.Now()
	r := newTestResolver(table, &clock)

	_, _, err := r.Resolve(context.Background(), "4006381333931")
	require.NoError(t, err)

	clock = clock.Add(500 * time.Millisecond)
	_, _, err = r.Resolve(context.Background(), "4006381333931")
	assert.ErrorIs(t, err, ErrDuplicateScan)
	assert.Equal(t, 1, table.lookups, "duplicate must not hit the store")
}

func TestDuplicateWhileInFrameStaysSuppressed(t *testing.T) {
	itemID := uuid.New()
	table := newBarcodeTable("4006381333931", itemID, "M")
	clock := time.Now()
	r := newTestResolver(table, &clock)

	r.Resolve(context.Background(), "4006381333931")

	// Rapid-fire reads keep refreshing the window.
	for i := 0; i < 5; i++ {
		clock = clock.Add(DefaultCooldown - time.Millisecond)
		_, _, err := r.Resolve(context.Background(), "4006381333931")
		assert.ErrorIs(t, err, ErrDuplicateScan)
	}
}

func TestSameCodeAfterCooldownResolvesAgain(t *testing.T) {
	itemID := uuid.New()
	table := newBarcodeTable("4006381333931", itemID, "M")
	clock := time.Now()
	r := newTestResolver(table, &clock)

	r.Resolve(context.Background(), "4006381333931")

	clock = clock.Add(DefaultCooldown + time.Second)
	_, _, err := r.Resolve(context.Background(), "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, 2, table.lookups)
}

func TestDifferentCodeBypassesCooldown(t *testing.T) {
	itemID := uuid.New()
	otherID := uuid.New()
	table := newBarcodeTable("111", itemID, "M")
	table.codes["222"] = struct {
		itemID uuid.UUID
		label  string
	}{otherID, "L"}
	clock := time.Now()
	r := newTestResolver(table, &clock)

	r.Resolve(context.Background(), "111")

	gotID, label, err := r.Resolve(context.Background(), "222")
	require.NoError(t, err)
	assert.Equal(t, otherID, gotID)
	assert.Equal(t, "L", label)
}

func TestResetClearsSuppression(t *testing.T) {
	itemID := uuid.New()
	table := newBarcodeTable("111", itemID, "M")
	clock := time.Now()
	r := newTestResolver(table, &clock)

	r.Resolve(context.Background(), "111")
	r.Reset()

	_, _, err := r.Resolve(context.Background(), "111")
	require.NoError(t, err)
}

func TestUnknownCodeDoesNotStartCooldown(t *testing.T) {
	itemID := uuid.New()
	table := newBarcodeTable("111", itemID, "M")
	clock := time.Now()
	r := newTestResolver(table, &clock)

	_, _, err := r.Resolve(context.Background(), "999")
	require.ErrorIs(t, err, ledger.ErrNotFound)

	// The same unknown code scans again immediately.
	_, _, err = r.Resolve(context.Background(), "999")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.Equal(t, 2, table.lookups)
}
