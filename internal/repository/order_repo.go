package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"food_crm/internal/models"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check order %s: %w", id, err)
	}
	return count > 0, nil
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.CustomerPhone != "" {
		q = q.Where("customer_phone = ?", filter.CustomerPhone)
	}
	if filter.CustomerEmail != "" {
		q = q.Where("customer_email = ?", filter.CustomerEmail)
	}
	if filter.ExcludeStatus != "" {
		q = q.Where("status <> ?", filter.ExcludeStatus)
	}

	var orders []models.Order
	if err := q.Order("created_at desc").Order("id desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Save overwrites every column of an existing order. It never inserts, so an
// order deleted in the meantime stays deleted and ErrNotFound is returned.
func (r *orderRepository) Save(ctx context.Context, order *models.Order) error {
	res := r.db.WithContext(ctx).Model(order).Select("*").Updates(order)
	if res.Error != nil {
		return fmt.Errorf("failed to save order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) MarkTablePaid(ctx context.Context, tableNo string) (*BillResult, error) {
	var result *BillResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("table_no = ? AND status <> ?", tableNo, models.StatusPaid)
		// sqlite has no row locks; its single writer already serialises this.
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var orders []models.Order
		if err := q.Order("created_at asc").Find(&orders).Error; err != nil {
			return fmt.Errorf("failed to load unpaid orders for %s: %w", tableNo, err)
		}
		if len(orders) == 0 {
			return ErrNotFound
		}

		ids := make([]string, 0, len(orders))
		total := decimal.Zero
		for _, o := range orders {
			ids = append(ids, o.ID)
			total = total.Add(o.Total)
		}

		err := tx.Model(&models.Order{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": models.StatusPaid, "updated_at": time.Now().UTC()}).Error
		if err != nil {
			return fmt.Errorf("failed to mark orders paid for %s: %w", tableNo, err)
		}

		result = &BillResult{TotalBill: total, OrdersCount: len(ids), OrderIDs: ids}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
