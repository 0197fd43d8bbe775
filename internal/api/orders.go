package api

import (
	"database/sql"
	"errors"
	"net/http"

	"sklad/internal/ledger"
	"sklad/internal/model"
	"sklad/internal/store"
)

// OrdersHandler handles customer order endpoints.
type OrdersHandler struct {
	DB *sql.DB
}

type createOrderRequest struct {
	Source          string            `json:"source"`
	DeliveryAddress string            `json:"delivery_address"`
	ClientPhone     string            `json:"client_phone"`
	Lines           []store.OrderLine `json:"lines"`
}

type setOrderStatusRequest struct {
	Status string `json:"status"`
}

// List handles GET /api/orders, scoped to the user's workshop.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())
	orders, err := store.ListOrders(r.Context(), h.DB, user.WorkshopID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	jsonResponse(w, http.StatusOK, orders)
}

// Get handles GET /api/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if order == nil {
		jsonError(w, http.StatusNotFound, "order not found")
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// Create handles POST /api/orders. Ordered quantities are deducted from
// stock; insufficient stock rejects the whole order with 409.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Lines) == 0 {
		jsonError(w, http.StatusBadRequest, "at least one line required")
		return
	}

	user := GetUser(r.Context())
	order, err := store.CreateOrder(r.Context(), h.DB, user.WorkshopID,
		req.Source, req.DeliveryAddress, req.ClientPhone, req.Lines)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientStock) {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to create order")
		return
	}
	jsonResponse(w, http.StatusCreated, order)
}

// SetStatus handles PATCH /api/orders/{id}. Moving into cancelled restores
// the deducted stock.
func (h *OrdersHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req setOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidOrderStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	order, err := store.SetOrderStatus(r.Context(), h.DB, id, req.Status)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientStock) {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to update order")
		return
	}
	if order == nil {
		jsonError(w, http.StatusNotFound, "order not found")
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// Delete handles DELETE /api/orders/{id}.
func (h *OrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := store.DeleteOrder(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "order deleted"})
}
