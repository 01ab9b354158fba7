package models

import "github.com/shopspring/decimal"

type MenuItem struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	Name        string          `json:"name" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Description string          `json:"description"`
	Category    string          `json:"category" gorm:"size:64;index"`
	Image       string          `json:"image"`
}
