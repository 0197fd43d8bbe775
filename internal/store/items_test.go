package store

import (
	"context"
	"testing"

	"sklad/internal/db"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, nil, "Jacket", "winter line")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got == nil {
		t.Fatal("expected item, got nil")
	}
	if got.Name != "Jacket" || got.Description != "winter line" {
		t.Errorf("unexpected item: %+v", got)
	}
	if len(got.Sizes) != 0 {
		t.Errorf("expected no sizes, got %d", len(got.Sizes))
	}
}

func TestGetItemNotFound(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, nil, "Jacket", "")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for deleted item, got %+v", got)
	}
}

func TestListItemsScopedToWorkshop(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	workshop, err := CreateWorkshop(ctx, database, "Main")
	if err != nil {
		t.Fatalf("CreateWorkshop: %v", err)
	}

	CreateItem(ctx, database, &workshop.ID, "Jacket", "")
	CreateItem(ctx, database, &workshop.ID, "Trousers", "")
	CreateItem(ctx, database, nil, "Unscoped", "")

	items, err := ListItems(ctx, database, &workshop.ID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items in workshop, got %d", len(items))
	}

	global, err := ListItems(ctx, database, nil)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(global) != 1 || global[0].Name != "Unscoped" {
		t.Errorf("unexpected unscoped items: %+v", global)
	}
}

func TestListItemsNestsSizes(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")
	CreateSize(ctx, database, item.ID, "M", "")
	CreateSize(ctx, database, item.ID, "L", "")

	items, err := ListItems(ctx, database, nil)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if len(items[0].Sizes) != 2 {
		t.Fatalf("expected 2 sizes, got %d", len(items[0].Sizes))
	}
	// Ordered by label.
	if items[0].Sizes[0].Label != "L" || items[0].Sizes[1].Label != "M" {
		t.Errorf("unexpected size order: %+v", items[0].Sizes)
	}
}

func TestUpdateItemStampsUpdatedAt(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")

	if err := UpdateItem(ctx, database, item.ID, "Coat", "renamed"); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Name != "Coat" || got.Description != "renamed" {
		t.Errorf("unexpected item after update: %+v", got)
	}
}

func TestDeleteItemCascades(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")
	CreateSize(ctx, database, item.ID, "M", "")
	ApplyChange(ctx, database, item.ID, "M", 5, "", "manual_adjust")

	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	changes, err := ListChanges(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("ListChanges: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("expected history to cascade, got %d entries", len(changes))
	}
}

func TestItemPhotoRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, nil, "Jacket", "")

	if err := SetItemPhoto(ctx, database, item.ID, []byte{0xff, 0xd8, 0xff}, "image/jpeg"); err != nil {
		t.Fatalf("SetItemPhoto: %v", err)
	}

	photo, mime, err := GetItemPhoto(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemPhoto: %v", err)
	}
	if len(photo) != 3 || mime != "image/jpeg" {
		t.Errorf("unexpected photo: %d bytes, mime %q", len(photo), mime)
	}
}
