package store

import (
	"context"
	"errors"
	"testing"

	"sklad/internal/db"
	"sklad/internal/ledger"
	"sklad/internal/model"
)

func TestCreateOrderDeductsStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")
	ApplyChange(ctx, database, item.ID, "M", 10, "", model.ChangeManualAdjust)

	order, err := CreateOrder(ctx, database, nil, "phone", "Main St 1", "555-0100",
		[]OrderLine{{ItemID: item.ID, SizeLabel: "M", Quantity: 3}})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != model.OrderStatusNew {
		t.Errorf("expected status new, got %q", order.Status)
	}

	qty, _ := AvailableQuantity(ctx, database, item.ID, "M")
	if qty != 7 {
		t.Errorf("expected quantity 7, got %d", qty)
	}
}

func TestCreateOrderRejectsInsufficientStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")
	ApplyChange(ctx, database, item.ID, "M", 2, "", model.ChangeManualAdjust)

	_, err := CreateOrder(ctx, database, nil, "", "", "",
		[]OrderLine{{ItemID: item.ID, SizeLabel: "M", Quantity: 5}})
	if !errors.Is(err, ledger.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	orders, _ := ListOrders(ctx, database, nil)
	if len(orders) != 0 {
		t.Errorf("expected no orders after rollback, got %d", len(orders))
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")
	ApplyChange(ctx, database, item.ID, "M", 10, "", model.ChangeManualAdjust)

	order, _ := CreateOrder(ctx, database, nil, "", "", "",
		[]OrderLine{{ItemID: item.ID, SizeLabel: "M", Quantity: 4}})

	updated, err := SetOrderStatus(ctx, database, order.ID, model.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("SetOrderStatus: %v", err)
	}
	if updated.Status != model.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %q", updated.Status)
	}

	qty, _ := AvailableQuantity(ctx, database, item.ID, "M")
	if qty != 10 {
		t.Errorf("expected quantity restored to 10, got %d", qty)
	}
}

func TestReinstateCancelledOrderDeductsAgain(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")
	ApplyChange(ctx, database, item.ID, "M", 5, "", model.ChangeManualAdjust)

	order, _ := CreateOrder(ctx, database, nil, "", "", "",
		[]OrderLine{{ItemID: item.ID, SizeLabel: "M", Quantity: 5}})
	SetOrderStatus(ctx, database, order.ID, model.OrderStatusCancelled)

	// Stock is back at 5; taking it elsewhere makes reinstating fail.
	CreateSupply(ctx, database, nil, nil, model.SupplyOut,
		[]model.SupplyLine{{ItemID: item.ID, SizeLabel: "M", Quantity: 3}})

	_, err := SetOrderStatus(ctx, database, order.ID, model.OrderStatusNew)
	if !errors.Is(err, ledger.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got, _ := GetOrder(ctx, database, order.ID)
	if got.Status != model.OrderStatusCancelled {
		t.Errorf("expected status unchanged after failed transition, got %q", got.Status)
	}
}

func TestSetOrderStatusSameStatusIsNoop(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")
	ApplyChange(ctx, database, item.ID, "M", 10, "", model.ChangeManualAdjust)

	order, _ := CreateOrder(ctx, database, nil, "", "", "",
		[]OrderLine{{ItemID: item.ID, SizeLabel: "M", Quantity: 2}})
	SetOrderStatus(ctx, database, order.ID, model.OrderStatusCancelled)
	SetOrderStatus(ctx, database, order.ID, model.OrderStatusCancelled)

	// Restoring twice would overshoot.
	qty, _ := AvailableQuantity(ctx, database, item.ID, "M")
	if qty != 10 {
		t.Errorf("expected quantity 10 after repeated cancel, got %d", qty)
	}
}

func TestSetOrderStatusRejectsUnknown(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")
	ApplyChange(ctx, database, item.ID, "M", 1, "", model.ChangeManualAdjust)
	order, _ := CreateOrder(ctx, database, nil, "", "", "",
		[]OrderLine{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}})

	if _, err := SetOrderStatus(ctx, database, order.ID, "lost"); err == nil {
		t.Error("expected error for unknown status")
	}
}
