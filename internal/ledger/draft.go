package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sklad/internal/model"
)

// Draft errors.
var (
	// ErrNothingToSave is returned when committing a draft with no
	// positive-quantity lines.
	ErrNothingToSave = errors.New("nothing to save")

	// ErrDraftClosed is returned when editing or committing a draft that
	// has already been committed or discarded.
	ErrDraftClosed = errors.New("draft already closed")
)

// DraftState is the lifecycle state of a movement draft.
type DraftState int

const (
	DraftEmpty DraftState = iota
	DraftEditing
	DraftConfirming
	DraftCommitted
	DraftDiscarded
)

func (s DraftState) String() string {
	switch s {
	case DraftEmpty:
		return "empty"
	case DraftEditing:
		return "editing"
	case DraftConfirming:
		return "confirming"
	case DraftCommitted:
		return "committed"
	case DraftDiscarded:
		return "discarded"
	}
	return fmt.Sprintf("DraftState(%d)", int(s))
}

// DraftLine is one candidate movement line, keyed by (item, size label).
type DraftLine struct {
	Item      model.Item
	SizeLabel string
	Quantity  int
}

// AvailabilityFunc reports the current stock for (item, size label). For
// outbound drafts it is consulted on every merge so that a draft line never
// exceeds what is actually on hand at merge time.
type AvailabilityFunc func(itemID uuid.UUID, sizeLabel string) int

// Draft assembles a stock movement in memory before it is committed as a
// supply. Nothing touches the ledger until Commit. Drafts follow the
// single mutation stream of a device session and are not safe for
// concurrent use.
type Draft struct {
	typ   string
	avail AvailabilityFunc
	lines []DraftLine
	state DraftState
}

// NewDraft creates an empty draft for the given movement type
// (model.SupplyIn or model.SupplyOut).
func NewDraft(typ string, avail AvailabilityFunc) *Draft {
	return &Draft{typ: typ, avail: avail, state: DraftEmpty}
}

// Type returns the movement type the draft was created for.
func (d *Draft) Type() string { return d.typ }

// State returns the current lifecycle state.
func (d *Draft) State() DraftState { return d.state }

// Lines returns a copy of the current draft lines in insertion order.
func (d *Draft) Lines() []DraftLine {
	out := make([]DraftLine, len(d.lines))
	copy(out, d.lines)
	return out
}

// AddOrMergeLine adds quantity for (item, size label), merging into an
// existing line if present. Inbound quantities accumulate freely. Outbound
// quantities are clamped to the available stock; if the clamp leaves the
// line with no increase the merge fails with ErrInsufficientStock and the
// draft is unchanged.
func (d *Draft) AddOrMergeLine(item model.Item, sizeLabel string, quantity int) error {
	if err := d.editable(); err != nil {
		return err
	}
	if quantity <= 0 {
		return errors.New("quantity must be positive")
	}

	if d.typ == model.SupplyOut {
		avail := d.avail(item.ID, sizeLabel)
		if idx := d.index(item.ID, sizeLabel); idx >= 0 {
			old := d.lines[idx].Quantity
			merged := min(old+quantity, avail)
			if merged <= old {
				return ErrInsufficientStock
			}
			d.lines[idx].Quantity = merged
			return nil
		}
		if quantity > avail {
			quantity = avail
		}
		if quantity <= 0 {
			return ErrInsufficientStock
		}
	} else if idx := d.index(item.ID, sizeLabel); idx >= 0 {
		d.lines[idx].Quantity += quantity
		return nil
	}

	d.lines = append(d.lines, DraftLine{Item: item, SizeLabel: sizeLabel, Quantity: quantity})
	d.state = DraftEditing
	return nil
}

// SetLineQuantity overwrites the quantity of an existing line. Outbound
// lines are clamped to availability; setting zero keeps the line but it is
// filtered out at commit.
func (d *Draft) SetLineQuantity(itemID uuid.UUID, sizeLabel string, quantity int) error {
	if err := d.editable(); err != nil {
		return err
	}
	idx := d.index(itemID, sizeLabel)
	if idx < 0 {
		return fmt.Errorf("no draft line for size %q: %w", sizeLabel, ErrNotFound)
	}
	if quantity < 0 {
		quantity = 0
	}
	if d.typ == model.SupplyOut {
		if avail := d.avail(itemID, sizeLabel); quantity > avail {
			quantity = avail
		}
	}
	d.lines[idx].Quantity = quantity
	return nil
}

// RemoveLine deletes the line for (item, size label), if present.
func (d *Draft) RemoveLine(itemID uuid.UUID, sizeLabel string) {
	if d.editable() != nil {
		return
	}
	if idx := d.index(itemID, sizeLabel); idx >= 0 {
		d.lines = append(d.lines[:idx], d.lines[idx+1:]...)
	}
	if len(d.lines) == 0 {
		d.state = DraftEmpty
	}
}

// Discard abandons the draft with no side effects. Terminal.
func (d *Draft) Discard() {
	if d.state == DraftCommitted {
		return
	}
	d.state = DraftDiscarded
}

// Commit filters out zero-quantity lines and records the movement through
// the store: one supply, one line item per draft line, one signed quantity
// application per line. On failure the draft returns to the editing state
// with its lines intact so the caller can retry.
func (d *Draft) Commit(ctx context.Context, store Store) (*model.Supply, error) {
	if d.state == DraftCommitted || d.state == DraftDiscarded {
		return nil, ErrDraftClosed
	}

	var lines []model.SupplyLine
	for _, l := range d.lines {
		if l.Quantity > 0 {
			lines = append(lines, model.SupplyLine{
				ItemID:    l.Item.ID,
				SizeLabel: l.SizeLabel,
				Quantity:  l.Quantity,
			})
		}
	}
	if len(lines) == 0 {
		return nil, ErrNothingToSave
	}

	d.state = DraftConfirming
	supply, err := store.CreateSupply(ctx, d.typ, lines)
	if err != nil {
		d.state = DraftEditing
		return nil, fmt.Errorf("committing draft: %w", err)
	}

	d.state = DraftCommitted
	return supply, nil
}

func (d *Draft) editable() error {
	if d.state == DraftCommitted || d.state == DraftDiscarded || d.state == DraftConfirming {
		return ErrDraftClosed
	}
	return nil
}

func (d *Draft) index(itemID uuid.UUID, sizeLabel string) int {
	for i, l := range d.lines {
		if l.Item.ID == itemID && l.SizeLabel == sizeLabel {
			return i
		}
	}
	return -1
}
