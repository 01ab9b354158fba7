package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"food_crm/internal/models"
)

type otpRepository struct {
	db *gorm.DB
}

// NewOTPRepository returns the relational OTPStore.
func NewOTPRepository(db *gorm.DB) OTPStore {
	return &otpRepository{db: db}
}

func (r *otpRepository) Replace(ctx context.Context, otp *models.OTP) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", otp.Email).Delete(&models.OTP{}).Error; err != nil {
			return fmt.Errorf("failed to clear otp for %s: %w", otp.Email, err)
		}
		if err := tx.Create(otp).Error; err != nil {
			return fmt.Errorf("failed to store otp for %s: %w", otp.Email, err)
		}
		return nil
	})
}

func (r *otpRepository) Latest(ctx context.Context, email string) (*models.OTP, error) {
	var otp models.OTP
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at desc").Order("id desc").
		First(&otp).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &otp, nil
}

func (r *otpRepository) Delete(ctx context.Context, otp *models.OTP) error {
	res := r.db.WithContext(ctx).Where("id = ?", otp.ID).Delete(&models.OTP{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete otp %d: %w", otp.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
