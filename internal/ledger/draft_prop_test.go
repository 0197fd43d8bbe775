package ledger

import (
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"sklad/internal/model"
)

// An outbound draft line must never exceed availability, no matter what
// sequence of merges and overwrites produced it.
func TestOutboundLineNeverExceedsAvailability(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		item := model.Item{ID: uuid.New(), Name: "Jacket"}
		avail := rapid.IntRange(0, 50).Draw(t, "avail")
		stock := stockMap{item.ID.String() + "/M": avail}
		d := NewDraft(model.SupplyOut, stock.avail)

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "overwrite") {
				d.SetLineQuantity(item.ID, "M", rapid.IntRange(-5, 60).Draw(t, "qty"))
			} else {
				d.AddOrMergeLine(item, "M", rapid.IntRange(1, 60).Draw(t, "add"))
			}

			for _, l := range d.Lines() {
				if l.Quantity > avail {
					t.Fatalf("line quantity %d exceeds availability %d", l.Quantity, avail)
				}
				if l.Quantity < 0 {
					t.Fatalf("line quantity %d is negative", l.Quantity)
				}
			}
		}
	})
}

// Inbound merges sum exactly: the draft total equals the sum of accepted
// quantities.
func TestInboundTotalsMatchAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := []model.Item{
			{ID: uuid.New(), Name: "Jacket"},
			{ID: uuid.New(), Name: "Trousers"},
		}
		labels := []string{"S", "M", "L"}
		d := NewDraft(model.SupplyIn, nil)

		accepted := 0
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			item := items[rapid.IntRange(0, len(items)-1).Draw(t, "item")]
			label := labels[rapid.IntRange(0, len(labels)-1).Draw(t, "label")]
			qty := rapid.IntRange(1, 10).Draw(t, "qty")

			if err := d.AddOrMergeLine(item, label, qty); err == nil {
				accepted += qty
			}
		}

		total := 0
		for _, l := range d.Lines() {
			total += l.Quantity
		}
		if total != accepted {
			t.Fatalf("draft total %d, accepted %d", total, accepted)
		}
	})
}
