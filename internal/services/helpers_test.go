package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"food_crm/internal/config"
	"food_crm/internal/events"
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

// clock returns a time source starting at start and advancing by step on every call.
func clock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeTokens struct{}

func (fakeTokens) GenerateToken(userID uint, role string) (string, error) {
	b, _ := json.Marshal(map[string]interface{}{"user_id": userID, "role": role})
	return string(b), nil
}

func strPtr(s string) *string { return &s }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func num(s string) *json.Number {
	n := json.Number(s)
	return &n
}

func customer(id uint, email, phone string) *models.User {
	u := &models.User{ID: id, Email: email, Role: models.RoleCustomer, IsActive: true}
	if phone != "" {
		u.Phone = strPtr(phone)
	}
	return u
}

var (
	chef  = &models.User{ID: 900, Username: "chef", Role: models.RoleChef, IsStaff: true, IsActive: true}
	admin = &models.User{ID: 901, Username: "admin", Role: models.RoleAdmin, IsStaff: true, IsSuperuser: true, IsActive: true}
)
