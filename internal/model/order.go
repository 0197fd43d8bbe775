package model

import (
	"time"

	"github.com/google/uuid"
)

// Order represents a customer order assembled from stock. Creating an
// order deducts the ordered quantities; cancelling it restores them.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	WorkshopID      *uuid.UUID      `json:"workshop_id,omitempty"`
	Source          string          `json:"source,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	ClientPhone     string          `json:"client_phone,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	LineItems       []OrderLineItem `json:"line_items"`
}

// Order statuses.
const (
	OrderStatusNew       = "new"
	OrderStatusShipped   = "shipped"
	OrderStatusInTransit = "in_transit"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusNew, OrderStatusShipped, OrderStatusInTransit,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderLineItem is one (item, size) position within an order.
type OrderLineItem struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	ItemName  string    `json:"item_name,omitempty"`
	SizeLabel string    `json:"size_label"`
	Quantity  int       `json:"quantity"`
}
