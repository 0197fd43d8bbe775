package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sklad/internal/imaging"
	"sklad/internal/model"
	"sklad/internal/store"
)

// ItemsHandler handles item CRUD, photos and change history.
type ItemsHandler struct {
	DB     *sql.DB
	Thumbs *imaging.ThumbnailCache
}

type updateItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"item_description"`
}

type adjustRequest struct {
	SizeLabel string `json:"size_label"`
	Amount    int    `json:"amount"`
	Note      string `json:"note"`
	Kind      string `json:"change_type"`
}

// pathUUID parses a UUID path value.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

// List handles GET /api/items, scoped to the user's workshop.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())
	items, err := store.ListItems(r.Context(), h.DB, user.WorkshopID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items. The body is a multipart form with name,
// item_description and an optional photo.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	user := GetUser(r.Context())
	item, err := store.CreateItem(r.Context(), h.DB, user.WorkshopID, name, r.FormValue("item_description"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	if done := h.savePhotoFromForm(w, r, item.ID); done {
		return
	}

	item, _ = store.GetItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PATCH /api/items/{id}. JSON normally; multipart when a
// new photo rides along.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var name, description string
	multipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
	if multipart {
		r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		name = r.FormValue("name")
		description = r.FormValue("item_description")
	} else {
		var req updateItemRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		name = req.Name
		description = req.Description
	}

	if name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, id, name, description); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	if multipart {
		if done := h.savePhotoFromForm(w, r, id); done {
			return
		}
	}

	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	h.Thumbs.Invalidate(id.String())

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// GetPhoto handles GET /api/items/{id}/photo. With ?thumbnail=1 the photo
// is served from the bounded thumbnail cache.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemPhoto(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	if thumb, _ := strconv.ParseBool(r.URL.Query().Get("thumbnail")); thumb {
		photo, err := h.Thumbs.Get(id.String(), data)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to build thumbnail")
			return
		}
		data, mime = photo.Data, photo.MIME
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// GetHistory handles GET /api/items/{id}/history.
func (h *ItemsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	history, err := store.ListChanges(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item history")
		return
	}
	if history == nil {
		history = []model.InventoryChange{}
	}
	jsonResponse(w, http.StatusOK, history)
}

// Adjust handles POST /api/items/{id}/adjust, applying a signed quantity
// delta to one size.
func (h *ItemsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SizeLabel == "" {
		jsonError(w, http.StatusBadRequest, "size_label required")
		return
	}
	if req.Kind == "" {
		req.Kind = model.ChangeManualAdjust
	}
	if req.Kind != model.ChangeManualAdjust && req.Kind != model.ChangeIn && req.Kind != model.ChangeOut {
		jsonError(w, http.StatusBadRequest, "invalid change_type")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := store.ApplyChange(r.Context(), h.DB, id, req.SizeLabel, req.Amount, req.Note, req.Kind); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to apply change")
		return
	}

	item, _ = store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// savePhotoFromForm processes and stores an uploaded photo, if the form
// has one. It reports true when it already wrote an error response.
func (h *ItemsHandler) savePhotoFromForm(w http.ResponseWriter, r *http.Request, itemID uuid.UUID) bool {
	file, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return false
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid photo upload")
		return true
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return true
	}

	if err := store.SetItemPhoto(r.Context(), h.DB, itemID, photo.Data, photo.MIME); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save photo")
		return true
	}
	h.Thumbs.Invalidate(itemID.String())
	return false
}
