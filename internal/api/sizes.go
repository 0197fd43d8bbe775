package api

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"sklad/internal/store"
)

// SizesHandler handles the per-item size subresource and barcode lookups.
type SizesHandler struct {
	DB *sql.DB
}

type sizeRequest struct {
	Label   string `json:"size_label"`
	Barcode string `json:"barcode"`
}

// Create handles POST /api/items/{id}/sizes. Creating an existing label
// updates its barcode instead of failing.
func (h *SizesHandler) Create(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req sizeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Label == "" {
		jsonError(w, http.StatusBadRequest, "size_label required")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, itemID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	size, err := store.CreateSize(r.Context(), h.DB, itemID, req.Label, req.Barcode)
	if err != nil {
		if isUniqueViolation(err) {
			jsonError(w, http.StatusBadRequest, "barcode already registered")
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to create size")
		return
	}
	jsonResponse(w, http.StatusCreated, size)
}

// Update handles PATCH /api/items/{id}/sizes/{sizeId}. The barcode field
// is always applied; an empty string clears it.
func (h *SizesHandler) Update(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	sizeID, err := pathUUID(r, "sizeId")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid size id")
		return
	}

	var req sizeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Label == "" {
		jsonError(w, http.StatusBadRequest, "size_label required")
		return
	}

	size, err := store.UpdateSize(r.Context(), h.DB, itemID, sizeID, req.Label, req.Barcode)
	if err != nil {
		if isUniqueViolation(err) {
			jsonError(w, http.StatusBadRequest, "barcode already registered")
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to update size")
		return
	}
	if size == nil {
		jsonError(w, http.StatusNotFound, "size not found")
		return
	}
	jsonResponse(w, http.StatusOK, size)
}

// Delete handles DELETE /api/items/{id}/sizes/{sizeId}.
func (h *SizesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	sizeID, err := pathUUID(r, "sizeId")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid size id")
		return
	}

	if err := store.DeleteSize(r.Context(), h.DB, itemID, sizeID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete size")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "size deleted"})
}

// ByBarcode handles GET /api/sizes/by_barcode?barcode=, scoped to the
// user's workshop.
func (h *SizesHandler) ByBarcode(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		jsonError(w, http.StatusBadRequest, "barcode required")
		return
	}

	user := GetUser(r.Context())
	itemID, label, err := store.GetSizeByBarcode(r.Context(), h.DB, user.WorkshopID, barcode)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to resolve barcode")
		return
	}
	if itemID == uuid.Nil {
		jsonError(w, http.StatusNotFound, "barcode not registered")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"item_id":    itemID,
		"size_label": label,
	})
}

// isUniqueViolation reports whether err is a SQLite uniqueness failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
