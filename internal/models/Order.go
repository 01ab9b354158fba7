package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func init() {
	// Prices and totals go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	StatusPending   = "pending"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
	StatusPaid      = "paid"
)

// ValidStatus reports whether s is one of the order lifecycle states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusPaid:
		return true
	}
	return false
}

// LineItem is one entry of an order's item list, stored inside the items JSON column.
type LineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Subtotal is price × quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CustomerSnapshot is the customer's contact details copied onto the order at creation.
type CustomerSnapshot struct {
	Phone string `json:"phone" gorm:"size:32;index"`
	Email string `json:"email" gorm:"size:191;index"`
}

type Order struct {
	ID        string                        `json:"id" gorm:"primaryKey;size:12"`
	Customer  CustomerSnapshot              `json:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	TableNo   string                        `json:"table_no" gorm:"size:16;index"`
	Items     datatypes.JSONSlice[LineItem] `json:"items"`
	Total     decimal.Decimal               `json:"total" gorm:"type:decimal(10,2);not null"`
	Status    string                        `json:"status" gorm:"size:16;index;not null;default:pending"`
	CreatedAt time.Time                     `json:"created_at" gorm:"index"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// ComputeTotal returns Σ price × quantity over items.
func ComputeTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
