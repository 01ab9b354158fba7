package services

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"food_crm/internal/events"
	"food_crm/internal/models"
	"food_crm/internal/repository"
)

var orderIDPattern = regexp.MustCompile(`^ord_[a-z0-9]{8}$`)

type orderFixture struct {
	db   *gorm.DB
	repo repository.OrderRepository
	svc  *OrderService
	pub  *recordingPublisher
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := newTestDB(t)
	f := &orderFixture{db: db, repo: repository.NewOrderRepository(db), pub: &recordingPublisher{}}
	f.svc = NewOrderService(f.repo, f.pub, nil)
	f.svc.now = clock(t0, time.Minute)
	return f
}

func (f *orderFixture) place(t *testing.T, user *models.User, tableNo string, price string, qty string) *models.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), user, []ItemInput{
		{ID: "m1", Price: dec(price), Quantity: num(qty)},
	}, tableNo)
	require.NoError(t, err)
	return order
}

func TestCreateOrderComputesTotal(t *testing.T) {
	f := newOrderFixture(t)
	alice := customer(1, "a@x.com", "5551234")

	order, err := f.svc.CreateOrder(context.Background(), alice, []ItemInput{
		{ID: "1", Price: dec("10"), Quantity: num("2")},
	}, "T1")
	require.NoError(t, err)

	assert.Regexp(t, orderIDPattern, order.ID)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(20)), order.Total.String())
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, "5551234", order.Customer.Phone)
	assert.Equal(t, "a@x.com", order.Customer.Email)
	assert.Equal(t, "T1", order.TableNo)
	assert.Equal(t, []string{events.OrderCreated}, f.pub.types())

	stored, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(20)))
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 2, stored.Items[0].Quantity)
}

func TestCreateOrderFromClientJSON(t *testing.T) {
	f := newOrderFixture(t)
	alice := customer(1, "a@x.com", "5551234")

	var items []ItemInput
	body := `[
		{"id": 1, "name": "Margherita Pizza", "price": 8.50, "qty": 2},
		{"id": "m2", "price": "7.00"},
		{"id": "m3", "price": 9.25, "quantity": 2.0}
	]`
	require.NoError(t, json.Unmarshal([]byte(body), &items))

	order, err := f.svc.CreateOrder(context.Background(), alice, items, "T4")
	require.NoError(t, err)

	require.Len(t, order.Items, 3)
	assert.Equal(t, "1", order.Items[0].ID)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 1, order.Items[1].Quantity, "quantity defaults to 1")
	assert.Equal(t, 2, order.Items[2].Quantity)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("42.50")), order.Total.String())
}

func TestCreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t)
	alice := customer(1, "a@x.com", "5551234")

	cases := []struct {
		name  string
		items []ItemInput
	}{
		{"no items", nil},
		{"missing id", []ItemInput{{Price: dec("1"), Quantity: num("1")}}},
		{"missing price", []ItemInput{{ID: "m1", Quantity: num("1")}}},
		{"negative price", []ItemInput{{ID: "m1", Price: dec("-1"), Quantity: num("1")}}},
		{"zero quantity", []ItemInput{{ID: "m1", Price: dec("1"), Quantity: num("0")}}},
		{"negative quantity", []ItemInput{{ID: "m1", Price: dec("1"), Quantity: num("-3")}}},
		{"fractional quantity", []ItemInput{{ID: "m1", Price: dec("1"), Quantity: num("1.5")}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(context.Background(), alice, tc.items, "T1")
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	orders, err := f.repo.List(context.Background(), repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders, "rejected orders must not be written")
}

func TestCreateOrderOnlyCustomers(t *testing.T) {
	f := newOrderFixture(t)
	items := []ItemInput{{ID: "m1", Price: dec("1")}}

	for _, u := range []*models.User{chef, admin, {ID: 5, Role: "guest"}} {
		_, err := f.svc.CreateOrder(context.Background(), u, items, "T1")
		assert.ErrorIs(t, err, ErrForbidden, u.Role)
	}
}

func TestCreateOrderRegeneratesTakenID(t *testing.T) {
	f := newOrderFixture(t)
	alice := customer(1, "a@x.com", "5551234")
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, &models.Order{ID: "ord_aaaaaaaa", Total: decimal.Zero, Status: models.StatusPending}))

	ids := []string{"ord_aaaaaaaa", "ord_bbbbbbbb"}
	f.svc.newID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}

	order, err := f.svc.CreateOrder(ctx, alice, []ItemInput{{ID: "m1", Price: dec("3")}}, "T1")
	require.NoError(t, err)
	assert.Equal(t, "ord_bbbbbbbb", order.ID)
}

// existsBlind hides existing ids so the insert itself hits the primary key.
type existsBlind struct {
	repository.OrderRepository
}

func (existsBlind) Exists(context.Context, string) (bool, error) { return false, nil }

func TestCreateOrderRetriesOnInsertCollision(t *testing.T) {
	f := newOrderFixture(t)
	alice := customer(1, "a@x.com", "5551234")
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, &models.Order{ID: "ord_taken000", Total: decimal.Zero, Status: models.StatusPending}))

	svc := NewOrderService(existsBlind{f.repo}, nil, nil)
	calls := 0
	svc.newID = func() (string, error) {
		calls++
		if calls == 1 {
			return "ord_taken000", nil
		}
		return "ord_fresh000", nil
	}

	order, err := svc.CreateOrder(ctx, alice, []ItemInput{{ID: "m1", Price: dec("3")}}, "T1")
	require.NoError(t, err)
	assert.Equal(t, "ord_fresh000", order.ID)
	assert.Equal(t, 2, calls)
}

func TestCreateOrderGivesUpAfterBoundedRetries(t *testing.T) {
	f := newOrderFixture(t)
	alice := customer(1, "a@x.com", "5551234")
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, &models.Order{ID: "ord_stuck000", Total: decimal.Zero, Status: models.StatusPending}))

	calls := 0
	f.svc.newID = func() (string, error) {
		calls++
		return "ord_stuck000", nil
	}

	_, err := f.svc.CreateOrder(ctx, alice, []ItemInput{{ID: "m1", Price: dec("3")}}, "T1")
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, maxOrderIDAttempts, calls)
}

func TestListOrdersVisibility(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	alice := customer(1, "a@x.com", "5551234")
	bob := customer(2, "b@x.com", "5559999")
	carol := customer(3, "c@x.com", "")

	first := f.place(t, alice, "T1", "5", "1")
	second := f.place(t, alice, "T1", "6", "1")
	f.place(t, bob, "T2", "7", "1")
	carols := f.place(t, carol, "T3", "8", "1")

	got, err := f.svc.ListOrdersFor(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "newest first")
	assert.Equal(t, first.ID, got[1].ID)

	got, err = f.svc.ListOrdersFor(ctx, carol)
	require.NoError(t, err)
	require.Len(t, got, 1, "phoneless customers match on email")
	assert.Equal(t, carols.ID, got[0].ID)

	got, err = f.svc.ListOrdersFor(ctx, chef)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	got, err = f.svc.ListOrdersFor(ctx, &models.User{ID: 7, Role: "guest"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetOrderFor(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	alice := customer(1, "a@x.com", "5551234")
	bob := customer(2, "b@x.com", "5559999")
	order := f.place(t, alice, "T1", "5", "1")

	got, err := f.svc.GetOrderFor(ctx, alice, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.GetOrderFor(ctx, bob, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.GetOrderFor(ctx, admin, order.ID)
	assert.NoError(t, err)

	_, err = f.svc.GetOrderFor(ctx, admin, "ord_missing0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func patch(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var p map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func TestChefMayOnlyChangeStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t, customer(1, "a@x.com", "5551234"), "T1", "5", "1")

	_, err := f.svc.UpdateOrder(ctx, chef, order.ID, patch(t, `{"status":"ready","table_no":"T2"}`))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateOrder(ctx, chef, order.ID, patch(t, `{"table_no":"T2"}`))
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.svc.UpdateOrder(ctx, chef, order.ID, patch(t, `{"status":"ready"}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, updated.Status)
	assert.Equal(t, "T1", updated.TableNo)

	stored, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, stored.Status)
}

func TestAdminUpdateRecomputesTotal(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t, customer(1, "a@x.com", "5551234"), "T1", "5", "1")

	updated, err := f.svc.UpdateOrder(ctx, admin, order.ID, patch(t,
		`{"items":[{"id":"m1","price":4,"quantity":3},{"id":"m2","price":"1.25"}],"table_no":"T9","status":"preparing"}`))
	require.NoError(t, err)

	assert.True(t, updated.Total.Equal(decimal.RequireFromString("13.25")), updated.Total.String())
	assert.Equal(t, "T9", updated.TableNo)
	assert.Equal(t, models.StatusPreparing, updated.Status)
	assert.Contains(t, f.pub.types(), events.OrderUpdated)
}

func TestUpdateOrderRejections(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	alice := customer(1, "a@x.com", "5551234")
	order := f.place(t, alice, "T1", "5", "1")

	cases := []struct {
		name string
		user *models.User
		body string
		want error
	}{
		{"customer", alice, `{"status":"ready"}`, ErrForbidden},
		{"unknown role", &models.User{ID: 8, Role: "guest"}, `{"status":"ready"}`, ErrForbidden},
		{"admin unknown field", admin, `{"total":1}`, ErrValidation},
		{"admin empty patch", admin, `{}`, ErrValidation},
		{"chef empty patch", chef, `{}`, ErrValidation},
		{"bad status", chef, `{"status":"burnt"}`, ErrValidation},
		{"status not a string", admin, `{"status":3}`, ErrValidation},
		{"bad items", admin, `{"items":[]}`, ErrValidation},
		{"missing order", admin, `{"status":"ready"}`, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := order.ID
			if tc.want == ErrNotFound {
				id = "ord_missing0"
			}
			_, err := f.svc.UpdateOrder(ctx, tc.user, id, patch(t, tc.body))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// deletedBeforeSave removes the order just before the update is written.
type deletedBeforeSave struct {
	repository.OrderRepository
}

func (r deletedBeforeSave) Save(ctx context.Context, order *models.Order) error {
	if err := r.OrderRepository.Delete(ctx, order.ID); err != nil {
		return err
	}
	return r.OrderRepository.Save(ctx, order)
}

func TestUpdateOrderDeletedConcurrently(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t, customer(1, "a@x.com", "5551234"), "T1", "5", "1")

	svc := NewOrderService(deletedBeforeSave{f.repo}, f.pub, nil)
	_, err := svc.UpdateOrder(ctx, chef, order.ID, patch(t, `{"status":"ready"}`))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NotContains(t, f.pub.types(), events.OrderUpdated)
}

func TestDeleteOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t, customer(1, "a@x.com", "5551234"), "T1", "5", "1")

	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, chef, order.ID), ErrForbidden)
	require.NoError(t, f.svc.DeleteOrder(ctx, admin, order.ID))
	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, admin, order.ID), ErrNotFound)
}

func TestCurrentOrdersFor(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	alice := customer(1, "a@x.com", "5551234")

	res, err := f.svc.CurrentOrdersFor(ctx, "5551234")
	require.NoError(t, err)
	assert.Equal(t, noCurrentOrders, res.Message)
	assert.Nil(t, res.Order)
	assert.Empty(t, res.Orders)

	paid := f.place(t, alice, "T1", "5", "1")
	older := f.place(t, alice, "T1", "6", "1")
	newer := f.place(t, alice, "T1", "7", "1")
	_, err = f.svc.UpdateOrder(ctx, admin, paid.ID, patch(t, `{"status":"paid"}`))
	require.NoError(t, err)

	res, err = f.svc.CurrentOrdersFor(ctx, "5551234")
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Equal(t, newer.ID, res.Order.ID)
	require.Len(t, res.Orders, 2)
	assert.Equal(t, older.ID, res.Orders[1].ID)

	_, err = f.svc.CurrentOrdersFor(ctx, "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBillTable(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	alice := customer(1, "a@x.com", "5551234")
	bob := customer(2, "b@x.com", "5559999")

	f.place(t, alice, "T1", "10", "1")
	f.place(t, bob, "T1", "20", "1")
	f.place(t, alice, "T1", "15", "1")
	other := f.place(t, bob, "T2", "99", "1")

	_, err := f.svc.BillTable(ctx, chef, "T1")
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := f.svc.BillTable(ctx, admin, "T1")
	require.NoError(t, err)
	assert.True(t, res.TotalBill.Equal(decimal.NewFromInt(45)), res.TotalBill.String())
	assert.Equal(t, 3, res.OrdersCount)
	assert.Len(t, res.OrderIDs, 3)

	unpaid, err := f.repo.List(ctx, repository.OrderFilter{ExcludeStatus: models.StatusPaid})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, other.ID, unpaid[0].ID)

	_, err = f.svc.BillTable(ctx, admin, "T1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Contains(t, f.pub.types(), events.TableBilled)
}

func TestBillTableRequiresTable(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.svc.BillTable(context.Background(), admin, "")
	assert.ErrorIs(t, err, ErrValidation)
}
