package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"food_crm/internal/config"
	"food_crm/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, config.Migrate(db))
	return db
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm", gorm.ErrDuplicatedKey, true},
		{"pgx", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pgx other", &pgconn.PgError{Code: "23503"}, false},
		{"pq", &pq.Error{Code: "23505"}, true},
		{"pq other", &pq.Error{Code: "42P01"}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: orders.id"), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isUniqueViolation(tc.err), tc.name)
	}
}

func TestUserRepositoryAllowsManyMissingPhones(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "a", Email: "a@x.com", Role: models.RoleCustomer}))
	require.NoError(t, repo.Create(ctx, &models.User{Username: "b", Email: "b@x.com", Role: models.RoleCustomer}))

	phone := "5551234"
	require.NoError(t, repo.Create(ctx, &models.User{Username: "c", Email: "c@x.com", Phone: &phone}))
	err := repo.Create(ctx, &models.User{Username: "d", Email: "d@x.com", Phone: &phone})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = repo.Create(ctx, &models.User{Username: "a", Email: "other@x.com"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err := repo.FindByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, "c", got.Username)

	_, err = repo.FindByEmail(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOTPRepositoryKeepsOneRowPerEmail(t *testing.T) {
	db := newTestDB(t)
	store := NewOTPRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, code := range []string{"111111", "222222", "333333"} {
		created := now.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Replace(ctx, &models.OTP{
			Email: "a@x.com", Code: code, CreatedAt: created, ExpiresAt: created.Add(models.OTPValidity),
		}))
	}
	require.NoError(t, store.Replace(ctx, &models.OTP{
		Email: "b@x.com", Code: "999999", CreatedAt: now, ExpiresAt: now.Add(models.OTPValidity),
	}))

	var count int64
	require.NoError(t, db.Model(&models.OTP{}).Where("email = ?", "a@x.com").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	latest, err := store.Latest(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "333333", latest.Code)

	require.NoError(t, store.Delete(ctx, latest))
	_, err = store.Latest(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, latest), ErrNotFound, "a consumed passcode cannot be deleted twice")

	_, err = store.Latest(ctx, "b@x.com")
	assert.NoError(t, err)
}

func newOrder(id, tableNo, total, status string, created time.Time) *models.Order {
	return &models.Order{
		ID:        id,
		TableNo:   tableNo,
		Items:     []models.LineItem{{ID: "m1", Price: decimal.RequireFromString(total), Quantity: 1}},
		Total:     decimal.RequireFromString(total),
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestOrderRepositoryCreateDuplicate(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newOrder("ord_dup00000", "T1", "5", models.StatusPending, now)))
	err := repo.Create(ctx, newOrder("ord_dup00000", "T1", "6", models.StatusPending, now))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	exists, err := repo.Exists(ctx, "ord_dup00000")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.ErrorIs(t, repo.Delete(ctx, "ord_missing0"), ErrNotFound)
}

func TestOrderRepositorySaveDoesNotResurrect(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newOrder("ord_save0000", "T1", "5", models.StatusPending, now)))
	order, err := repo.FindByID(ctx, "ord_save0000")
	require.NoError(t, err)

	order.Status = models.StatusReady
	require.NoError(t, repo.Save(ctx, order))
	got, err := repo.FindByID(ctx, "ord_save0000")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, got.Status)

	require.NoError(t, repo.Delete(ctx, "ord_save0000"))
	order.Status = models.StatusPaid
	assert.ErrorIs(t, repo.Save(ctx, order), ErrNotFound)

	_, err = repo.FindByID(ctx, "ord_save0000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderRepositoryMarkTablePaid(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newOrder("ord_a0000000", "T1", "10.50", models.StatusPending, base)))
	require.NoError(t, repo.Create(ctx, newOrder("ord_b0000000", "T1", "4.25", models.StatusReady, base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newOrder("ord_c0000000", "T1", "100", models.StatusPaid, base.Add(2*time.Minute))))
	require.NoError(t, repo.Create(ctx, newOrder("ord_d0000000", "T2", "7", models.StatusPending, base)))

	res, err := repo.MarkTablePaid(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "14.75", res.TotalBill.StringFixed(2))
	assert.Equal(t, 2, res.OrdersCount)
	assert.Equal(t, []string{"ord_a0000000", "ord_b0000000"}, res.OrderIDs)

	_, err = repo.MarkTablePaid(ctx, "T1")
	assert.ErrorIs(t, err, ErrNotFound)

	other, err := repo.FindByID(ctx, "ord_d0000000")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, other.Status)

	unpaid, err := repo.List(ctx, OrderFilter{ExcludeStatus: models.StatusPaid})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
}

func TestTableRepository(t *testing.T) {
	repo := NewTableRepository(newTestDB(t))
	ctx := context.Background()

	highest, err := repo.MaxNumber(ctx)
	require.NoError(t, err)
	assert.Zero(t, highest)

	for _, label := range []string{"T2", "T10", "VIP", "T3"} {
		_, err := repo.Upsert(ctx, label, "00000000000000000000000000000000")
		require.NoError(t, err)
	}
	highest, err = repo.MaxNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, highest)

	rotated, err := repo.Upsert(ctx, "T2", "11111111111111111111111111111111")
	require.NoError(t, err)
	got, err := repo.FindByTableNo(ctx, "T2")
	require.NoError(t, err)
	assert.Equal(t, rotated.ID, got.ID)
	assert.Equal(t, "11111111111111111111111111111111", got.Hash)

	require.NoError(t, repo.Delete(ctx, "VIP"))
	assert.ErrorIs(t, repo.Delete(ctx, "VIP"), ErrNotFound)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestMenuRepository(t *testing.T) {
	repo := NewMenuRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateBatch(ctx, nil))
	items := []models.MenuItem{
		{ID: "x2", Name: "Soup", Price: decimal.RequireFromString("3"), Category: "Starter"},
		{ID: "x1", Name: "Steak", Price: decimal.RequireFromString("20"), Category: "Main"},
	}
	require.NoError(t, repo.CreateBatch(ctx, items))
	assert.ErrorIs(t, repo.CreateBatch(ctx, items[:1]), ErrAlreadyExists)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "x1", list[0].ID)
}
