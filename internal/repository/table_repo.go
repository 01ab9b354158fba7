package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"food_crm/internal/models"
)

type tableRepository struct {
	db *gorm.DB
}

func NewTableRepository(db *gorm.DB) TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) FindByTableNo(ctx context.Context, tableNo string) (*models.Table, error) {
	var table models.Table
	if err := r.db.WithContext(ctx).Where("table_no = ?", tableNo).First(&table).Error; err != nil {
		return nil, notFound(err)
	}
	return &table, nil
}

func (r *tableRepository) Upsert(ctx context.Context, tableNo, hash string) (*models.Table, error) {
	var table models.Table
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("table_no = ?", tableNo).First(&table).Error
		switch {
		case err == nil:
			table.Hash = hash
			return tx.Save(&table).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			table = models.Table{TableNo: tableNo, Hash: hash, IsActive: true}
			return tx.Create(&table).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to provision table %s: %w", tableNo, err)
	}
	return &table, nil
}

func (r *tableRepository) MaxNumber(ctx context.Context) (int, error) {
	var labels []string
	if err := r.db.WithContext(ctx).Model(&models.Table{}).Pluck("table_no", &labels).Error; err != nil {
		return 0, fmt.Errorf("failed to read table numbers: %w", err)
	}
	highest := 0
	for _, label := range labels {
		t := models.Table{TableNo: label}
		if n := t.Number(); n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (r *tableRepository) Delete(ctx context.Context, tableNo string) error {
	res := r.db.WithContext(ctx).Where("table_no = ?", tableNo).Delete(&models.Table{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete table %s: %w", tableNo, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tableRepository) ListActive(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}
