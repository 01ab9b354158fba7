package models

import (
	"strconv"
	"strings"
	"time"
)

type Table struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TableNo   string    `json:"table_no" gorm:"size:16;uniqueIndex;not null"`
	Hash      string    `json:"hash" gorm:"size:32;not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableNumber formats n as a table label, e.g. 7 -> "T7".
func TableNumber(n int) string {
	return "T" + strconv.Itoa(n)
}

// Number extracts the numeric suffix of a "T<n>" label. Labels without a
// numeric suffix count as 0.
func (t *Table) Number() int {
	n, err := strconv.Atoi(strings.TrimPrefix(t.TableNo, "T"))
	if err != nil || !strings.HasPrefix(t.TableNo, "T") {
		return 0
	}
	return n
}
