package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"food_crm/internal/models"
	"food_crm/internal/repository"
)

// DefaultMenu is loaded into an empty menu on first boot.
var DefaultMenu = []models.MenuItem{
	{ID: "m1", Name: "Margherita Pizza", Price: decimal.RequireFromString("8.50"), Description: "Classic pizza with tomato, mozzarella and basil.", Category: "Pizza", Image: "/margherita-pizza.png"},
	{ID: "m2", Name: "Chicken Burger", Price: decimal.RequireFromString("7.00"), Description: "Crispy chicken patty with lettuce and mayo.", Category: "Burger", Image: "/chicken-burger.jpg"},
	{ID: "m3", Name: "Pasta Alfredo", Price: decimal.RequireFromString("9.25"), Description: "Creamy alfredo sauce with parmesan.", Category: "Pasta", Image: "/pasta-alfredo.jpg"},
	{ID: "m4", Name: "Caesar Salad", Price: decimal.RequireFromString("6.00"), Description: "Romaine, croutons and caesar dressing.", Category: "Salad", Image: "/caesar-salad.png"},
}

type MenuService struct {
	menu repository.MenuRepository
}

func NewMenuService(menu repository.MenuRepository) *MenuService {
	return &MenuService{menu: menu}
}

func (s *MenuService) List(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.menu.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to list menu")
		return nil, ErrInternal
	}
	return items, nil
}

// SeedDefaults inserts DefaultMenu when the menu is empty. It returns the
// number of items inserted.
func (s *MenuService) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.menu.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	items := make([]models.MenuItem, len(DefaultMenu))
	copy(items, DefaultMenu)
	if err := s.menu.CreateBatch(ctx, items); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, nil
		}
		return 0, err
	}
	logrus.WithField("count", len(items)).Info("default menu seeded")
	return len(items), nil
}
