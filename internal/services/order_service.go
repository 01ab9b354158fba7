package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"food_crm/internal/events"
	"food_crm/internal/metrics"
	"food_crm/internal/models"
	"food_crm/internal/repository"
)

// maxOrderIDAttempts bounds id regeneration after collisions.
const maxOrderIDAttempts = 5

// ItemID accepts either a JSON string or a JSON number.
type ItemID string

func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or a number")
	}
	*id = ItemID(n.String())
	return nil
}

// ItemInput is an order line as submitted by a client.
type ItemInput struct {
	ID       ItemID           `json:"id"`
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *json.Number     `json:"quantity"`
	Qty      *json.Number     `json:"qty"`
}

func parseQuantity(n *json.Number) (int, bool) {
	if n == nil {
		return 1, true
	}
	if v, err := n.Int64(); err == nil {
		if v < 1 || v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// NormalizeItems validates client items and converts them to stored line items.
func NormalizeItems(inputs []ItemInput) ([]models.LineItem, error) {
	if len(inputs) == 0 {
		return nil, invalid("items", "must not be empty")
	}
	items := make([]models.LineItem, 0, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("items[%d]", i)
		id := strings.TrimSpace(string(in.ID))
		if id == "" {
			return nil, invalid(field+".id", "is required")
		}
		if in.Price == nil {
			return nil, invalid(field+".price", "is required")
		}
		if in.Price.IsNegative() {
			return nil, invalid(field+".price", "must not be negative")
		}
		q := in.Quantity
		if q == nil {
			q = in.Qty
		}
		qty, ok := parseQuantity(q)
		if !ok {
			return nil, invalid(field+".quantity", "must be a positive integer")
		}
		items = append(items, models.LineItem{
			ID:       id,
			Name:     strings.TrimSpace(in.Name),
			Price:    *in.Price,
			Quantity: qty,
		})
	}
	return items, nil
}

// CurrentOrders is the answer to a current-orders lookup. Order is the most
// recent unpaid order; Orders lists all of them.
type CurrentOrders struct {
	Message string         `json:"message,omitempty"`
	Order   *models.Order  `json:"order"`
	Orders  []models.Order `json:"orders"`
}

const noCurrentOrders = "no current orders"

type OrderService struct {
	orders  repository.OrderRepository
	events  events.Publisher
	metrics *metrics.Manager
	now     func() time.Time
	newID   func() (string, error)
}

func NewOrderService(orders repository.OrderRepository, pub events.Publisher, mm *metrics.Manager) *OrderService {
	if pub == nil {
		pub = events.NewNoopPublisher()
	}
	return &OrderService{
		orders:  orders,
		events:  pub,
		metrics: mm,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   GenerateOrderID,
	}
}

func (s *OrderService) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := s.events.Publish(ctx, events.New(eventType, payload)); err != nil {
		logrus.WithError(err).WithField("event", eventType).Warn("failed to publish order event")
	}
}

func customerFilter(user *models.User) repository.OrderFilter {
	if phone := user.PhoneValue(); phone != "" {
		return repository.OrderFilter{CustomerPhone: phone}
	}
	return repository.OrderFilter{CustomerEmail: user.Email}
}

func canSee(user *models.User, order *models.Order) bool {
	switch user.Role {
	case models.RoleChef, models.RoleAdmin:
		return true
	case models.RoleCustomer:
		if phone := user.PhoneValue(); phone != "" {
			return order.Customer.Phone == phone
		}
		return order.Customer.Email == user.Email
	default:
		return false
	}
}

// ListOrdersFor returns the orders user may see, newest first.
func (s *OrderService) ListOrdersFor(ctx context.Context, user *models.User) ([]models.Order, error) {
	var filter repository.OrderFilter
	switch user.Role {
	case models.RoleCustomer:
		filter = customerFilter(user)
	case models.RoleChef, models.RoleAdmin:
	default:
		return []models.Order{}, nil
	}

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to list orders")
		return nil, ErrInternal
	}
	return orders, nil
}

func (s *OrderService) GetOrderFor(ctx context.Context, user *models.User, id string) (*models.Order, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(user, order) {
		return nil, ErrNotFound
	}
	return order, nil
}

func (s *OrderService) find(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		logrus.WithError(err).WithField("order_id", id).Error("failed to load order")
		return nil, ErrInternal
	}
	return order, nil
}

// CreateOrder places an order for a customer. The total is always computed
// here; client totals are ignored.
func (s *OrderService) CreateOrder(ctx context.Context, user *models.User, inputs []ItemInput, tableNo string) (*models.Order, error) {
	if !CanCreateOrder(user.Role) {
		return nil, ErrForbidden
	}
	items, err := NormalizeItems(inputs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		Customer:  models.CustomerSnapshot{Phone: user.PhoneValue(), Email: user.Email},
		TableNo:   strings.TrimSpace(tableNo),
		Items:     items,
		Total:     models.ComputeTotal(items),
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for attempt := 1; attempt <= maxOrderIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			logrus.WithError(err).Error("failed to generate order id")
			return nil, ErrInternal
		}

		exists, err := s.orders.Exists(ctx, id)
		if err != nil {
			logrus.WithError(err).Error("failed to check order id")
			return nil, ErrInternal
		}
		if exists {
			continue
		}

		order.ID = id
		err = s.orders.Create(ctx, order)
		if errors.Is(err, repository.ErrAlreadyExists) {
			logrus.WithField("order_id", id).Warn("order id collision on insert, regenerating")
			continue
		}
		if err != nil {
			logrus.WithError(err).Error("failed to create order")
			return nil, ErrInternal
		}

		s.metrics.OrderCreated()
		s.publish(ctx, events.OrderCreated, order)
		logrus.WithFields(logrus.Fields{"order_id": order.ID, "table_no": order.TableNo}).Info("order created")
		return order, nil
	}

	logrus.WithField("attempts", maxOrderIDAttempts).Error("could not allocate a unique order id")
	return nil, ErrInternal
}

// UpdateOrder applies patch to the order after the role policy allows the
// set of touched fields.
func (s *OrderService) UpdateOrder(ctx context.Context, user *models.User, id string, patch map[string]json.RawMessage) (*models.Order, error) {
	fields := make([]string, 0, len(patch))
	for k := range patch {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	if !CanUpdateOrder(user.Role, fields) {
		return nil, ErrForbidden
	}
	if len(fields) == 0 {
		return nil, invalid("", "no fields to update")
	}
	for _, f := range fields {
		if !adminPatchable[f] {
			return nil, invalid(f, "cannot be updated")
		}
	}

	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, ok := patch[FieldStatus]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err != nil || !models.ValidStatus(status) {
			return nil, invalid(FieldStatus, "must be one of pending, preparing, ready, completed, paid")
		}
		order.Status = status
	}
	if raw, ok := patch[FieldTableNo]; ok {
		var tableNo string
		if err := json.Unmarshal(raw, &tableNo); err != nil {
			return nil, invalid(FieldTableNo, "must be a string")
		}
		order.TableNo = strings.TrimSpace(tableNo)
	}
	if raw, ok := patch[FieldItems]; ok {
		var inputs []ItemInput
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return nil, invalid(FieldItems, "must be a list of items")
		}
		items, err := NormalizeItems(inputs)
		if err != nil {
			return nil, err
		}
		order.Items = items
		order.Total = models.ComputeTotal(items)
	}

	order.UpdatedAt = s.now()
	if err := s.orders.Save(ctx, order); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		logrus.WithError(err).WithField("order_id", id).Error("failed to update order")
		return nil, ErrInternal
	}

	s.publish(ctx, events.OrderUpdated, order)
	logrus.WithFields(logrus.Fields{"order_id": id, "fields": fields, "role": user.Role}).Info("order updated")
	return order, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, user *models.User, id string) error {
	if !CanDeleteOrder(user.Role) {
		return ErrForbidden
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		logrus.WithError(err).WithField("order_id", id).Error("failed to delete order")
		return ErrInternal
	}
	s.publish(ctx, events.OrderDeleted, map[string]string{"id": id})
	return nil
}

// CurrentOrdersFor returns the unpaid orders placed from phone.
func (s *OrderService) CurrentOrdersFor(ctx context.Context, phone string) (*CurrentOrders, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, invalid("phone", "is required")
	}

	orders, err := s.orders.List(ctx, repository.OrderFilter{
		CustomerPhone: phone,
		ExcludeStatus: models.StatusPaid,
	})
	if err != nil {
		logrus.WithError(err).Error("failed to list current orders")
		return nil, ErrInternal
	}
	if len(orders) == 0 {
		return &CurrentOrders{Message: noCurrentOrders, Orders: []models.Order{}}, nil
	}
	return &CurrentOrders{Order: &orders[0], Orders: orders}, nil
}

// BillTable settles every unpaid order of tableNo.
func (s *OrderService) BillTable(ctx context.Context, user *models.User, tableNo string) (*repository.BillResult, error) {
	if user.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	tableNo = strings.TrimSpace(tableNo)
	if tableNo == "" {
		return nil, invalid("table_no", "is required")
	}

	result, err := s.orders.MarkTablePaid(ctx, tableNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		logrus.WithError(err).WithField("table_no", tableNo).Error("failed to bill table")
		return nil, ErrInternal
	}

	s.metrics.OrdersSettled(result.OrdersCount)
	s.publish(ctx, events.TableBilled, map[string]interface{}{
		"table_no":   tableNo,
		"total_bill": result.TotalBill,
		"order_ids":  result.OrderIDs,
	})
	logrus.WithFields(logrus.Fields{
		"table_no":     tableNo,
		"orders_count": result.OrdersCount,
		"total_bill":   result.TotalBill.StringFixed(2),
	}).Info("table billed")
	return result, nil
}
