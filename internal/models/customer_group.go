package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomerGroup is a named discount tier users qualify for by order history.
type CustomerGroup struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	DiscountPercentage float64   `json:"discount_percentage"`
	MinOrders          int       `json:"min_orders"`
	MinSpent           float64   `json:"min_spent"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// Qualifies reports whether a customer with the given totals meets both thresholds.
func (g CustomerGroup) Qualifies(orders int, spent float64) bool {
	return g.IsActive && orders >= g.MinOrders && spent >= g.MinSpent
}
