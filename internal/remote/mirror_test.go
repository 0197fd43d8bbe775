package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sklad/internal/ledger"
	"sklad/internal/model"
)

func TestMirrorLoadItemsReplacesWholeList(t *testing.T) {
	var generation atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if generation.Load() == 0 {
			json.NewEncoder(w).Encode([]model.Item{
				{ID: uuid.New(), Name: "Jacket"},
				{ID: uuid.New(), Name: "Trousers"},
			})
			return
		}
		json.NewEncoder(w).Encode([]model.Item{
			{ID: uuid.New(), Name: "Cap"},
		})
	}))
	defer server.Close()

	mirror := NewMirror(NewClient(server.URL, StaticToken("t")))
	ctx := context.Background()

	require.NoError(t, mirror.LoadItems(ctx))
	assert.Len(t, mirror.Items(), 2)

	generation.Store(1)
	require.NoError(t, mirror.LoadItems(ctx))

	items := mirror.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Cap", items[0].Name)
}

func TestMirrorLoadFailureAttachesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "database is on fire"})
	}))
	defer server.Close()

	mirror := NewMirror(NewClient(server.URL, StaticToken("t")))

	err := mirror.LoadItems(context.Background())
	require.Error(t, err)
	assert.Equal(t, "database is on fire", mirror.ErrorMessage())

	mirror.ClearError()
	assert.Empty(t, mirror.ErrorMessage())
}

func TestMirrorCancelledLoadStaysSilent(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	mirror := NewMirror(NewClient(server.URL, StaticToken("t")))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := mirror.LoadItems(ctx)
	require.ErrorIs(t, err, ErrCanceled)
	assert.Empty(t, mirror.ErrorMessage(), "cancellation must never surface as an error message")
}

func TestMirrorMutationRefreshesItems(t *testing.T) {
	itemID := uuid.New()
	var created atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			created.Store(true)
			json.NewEncoder(w).Encode(model.Item{ID: itemID, Name: "Jacket"})
			return
		}
		var items []model.Item
		if created.Load() {
			items = append(items, model.Item{ID: itemID, Name: "Jacket"})
		}
		json.NewEncoder(w).Encode(items)
	}))
	defer server.Close()

	mirror := NewMirror(NewClient(server.URL, StaticToken("t")))
	ctx := context.Background()

	require.NoError(t, mirror.LoadItems(ctx))
	assert.Empty(t, mirror.Items())

	_, err := mirror.CreateItem(ctx, "Jacket", "")
	require.NoError(t, err)
	assert.Len(t, mirror.Items(), 1)
}

func TestMirrorAvailabilityReadsCache(t *testing.T) {
	itemID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Item{{
			ID:   itemID,
			Name: "Jacket",
			Sizes: []model.Size{
				{ID: uuid.New(), Label: "M", Quantity: 7},
			},
		}})
	}))
	defer server.Close()

	mirror := NewMirror(NewClient(server.URL, StaticToken("t")))
	require.NoError(t, mirror.LoadItems(context.Background()))

	avail := mirror.Availability()
	assert.Equal(t, 7, avail(itemID, "M"))
	assert.Equal(t, 0, avail(itemID, "XXL"))
	assert.Equal(t, 0, avail(uuid.New(), "M"))
}

func TestMirrorCommitDraftEmptyStaysSilent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty draft must not reach the network")
	}))
	defer server.Close()

	mirror := NewMirror(NewClient(server.URL, StaticToken("t")))
	draft := ledger.NewDraft(model.SupplyIn, mirror.Availability())

	_, err := mirror.CommitDraft(context.Background(), draft)
	require.ErrorIs(t, err, ledger.ErrNothingToSave)
	assert.Empty(t, mirror.ErrorMessage())
}

func TestMirrorCommitDraftRecordsSupply(t *testing.T) {
	itemID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(model.Supply{ID: uuid.New(), Number: 1, Type: model.SupplyIn})
		default:
			json.NewEncoder(w).Encode([]model.Item{{ID: itemID, Name: "Jacket"}})
		}
	}))
	defer server.Close()

	mirror := NewMirror(NewClient(server.URL, StaticToken("t")))
	draft := ledger.NewDraft(model.SupplyIn, mirror.Availability())
	require.NoError(t, draft.AddOrMergeLine(model.Item{ID: itemID, Name: "Jacket"}, "M", 3))

	supply, err := mirror.CommitDraft(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, 1, supply.Number)
	assert.Equal(t, ledger.DraftCommitted, draft.State())
	assert.Len(t, mirror.Items(), 1)
}
