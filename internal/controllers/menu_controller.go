package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"food_crm/internal/services"
)

type MenuController struct {
	menu *services.MenuService
}

func NewMenuController(menu *services.MenuService) *MenuController {
	return &MenuController{menu: menu}
}

func (m *MenuController) ListMenu(c *gin.Context) {
	items, err := m.menu.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
