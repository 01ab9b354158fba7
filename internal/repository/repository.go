package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"food_crm/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
}

// OTPStore keeps at most one live passcode per email.
type OTPStore interface {
	// Replace atomically drops any passcode for otp.Email and stores otp.
	Replace(ctx context.Context, otp *models.OTP) error
	// Latest returns the current passcode for email or ErrNotFound.
	Latest(ctx context.Context, email string) (*models.OTP, error)
	// Delete removes otp if it is still the stored one. It returns
	// ErrNotFound when otp was already consumed or replaced, so at most one
	// caller ever deletes a given passcode.
	Delete(ctx context.Context, otp *models.OTP) error
}

// OrderFilter narrows List. Empty fields do not filter.
type OrderFilter struct {
	CustomerPhone string
	CustomerEmail string
	ExcludeStatus string
}

// BillResult summarises a settled table.
type BillResult struct {
	TotalBill   decimal.Decimal `json:"total_bill"`
	OrdersCount int             `json:"orders_count"`
	OrderIDs    []string        `json:"order_ids"`
}

type OrderRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	// Create returns ErrAlreadyExists when the id is taken.
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
	// MarkTablePaid flips every unpaid order of tableNo to paid in one
	// transaction, returning ErrNotFound when there is nothing to bill.
	MarkTablePaid(ctx context.Context, tableNo string) (*BillResult, error)
}

type TableRepository interface {
	FindByTableNo(ctx context.Context, tableNo string) (*models.Table, error)
	// Upsert creates tableNo with hash, or rotates the hash of an existing row.
	Upsert(ctx context.Context, tableNo, hash string) (*models.Table, error)
	MaxNumber(ctx context.Context) (int, error)
	Delete(ctx context.Context, tableNo string) error
	ListActive(ctx context.Context) ([]models.Table, error)
}

type MenuRepository interface {
	List(ctx context.Context) ([]models.MenuItem, error)
	Count(ctx context.Context) (int64, error)
	CreateBatch(ctx context.Context, items []models.MenuItem) error
}
