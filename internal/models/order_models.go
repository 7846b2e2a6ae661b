package models

import (
	"time"
)

// Order statuses. An order is created CONFIRMED because payment and the
// compliance record happen before persistence; failures upstream mean no
// order row is ever written.
const (
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// Order represents a confirmed delivery order.
type Order struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Status         string         `json:"status"`
	Items          []PurchaseItem `json:"items"`
	DeliveryWindow string         `json:"delivery_window"` // zone ETA at confirmation time
	Address        string         `json:"address"`
	ZoneID         string         `json:"zone_id"`
	ZoneName       string         `json:"zone_name"`
	Subtotal       float64        `json:"subtotal"`
	DeliveryFee    float64        `json:"delivery_fee"`
	Total          float64        `json:"total"`
	PaymentID      string         `json:"payment_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CreateOrderRequest is the checkout payload. The address is geocoded and
// zone-matched server side; the subtotal comes from the commerce backend's
// cart and is re-checked against the zone minimum here.
type CreateOrderRequest struct {
	Address         string         `json:"address" validate:"required"`
	Items           []PurchaseItem `json:"items" validate:"required,min=1,dive"`
	Subtotal        float64        `json:"subtotal" validate:"gt=0"`
	PaymentMethodID string         `json:"payment_method_id" validate:"required"`
}
