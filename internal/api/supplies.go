package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"sklad/internal/ledger"
	"sklad/internal/model"
	"sklad/internal/store"
)

// SuppliesHandler handles supply (stock movement) endpoints.
type SuppliesHandler struct {
	DB *sql.DB
}

type createSupplyRequest struct {
	Type  string             `json:"type"`
	Lines []model.SupplyLine `json:"lines"`
}

// List handles GET /api/supplies?item_id=, scoped to the user's workshop.
func (h *SuppliesHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())

	var itemFilter *uuid.UUID
	if raw := r.URL.Query().Get("item_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid item_id")
			return
		}
		itemFilter = &id
	}

	supplies, err := store.ListSupplies(r.Context(), h.DB, user.WorkshopID, itemFilter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list supplies")
		return
	}
	if supplies == nil {
		supplies = []model.Supply{}
	}
	jsonResponse(w, http.StatusOK, supplies)
}

// Get handles GET /api/supplies/{id}.
func (h *SuppliesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid supply id")
		return
	}

	supply, err := store.GetSupply(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get supply")
		return
	}
	if supply == nil {
		jsonError(w, http.StatusNotFound, "supply not found")
		return
	}
	jsonResponse(w, http.StatusOK, supply)
}

// Create handles POST /api/supplies. Outbound lines exceeding current
// stock reject the whole movement with 409.
func (h *SuppliesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSupplyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type != model.SupplyIn && req.Type != model.SupplyOut {
		jsonError(w, http.StatusBadRequest, "type must be 'in' or 'out'")
		return
	}
	if len(req.Lines) == 0 {
		jsonError(w, http.StatusBadRequest, "at least one line required")
		return
	}

	user := GetUser(r.Context())
	supply, err := store.CreateSupply(r.Context(), h.DB, user.WorkshopID, &user.ID, req.Type, req.Lines)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientStock) {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("creating supply", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create supply")
		return
	}

	slog.Info("supply recorded",
		"number", supply.Number, "type", supply.Type,
		"lines", len(supply.LineItems), "user", user.Username)
	jsonResponse(w, http.StatusCreated, supply)
}

// Delete handles DELETE /api/supplies/{id}. Quantities are not reversed.
func (h *SuppliesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid supply id")
		return
	}

	if err := store.DeleteSupply(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete supply")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "supply deleted"})
}
