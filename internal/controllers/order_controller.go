package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"food_crm/internal/services"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func (o *OrderController) ListOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	orders, err := o.orders.ListOrdersFor(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type createOrderInput struct {
	Items   []services.ItemInput `json:"items"`
	TableNo string               `json:"table_no"`
}

// CreateOrder places an order. Any client-sent total is ignored.
func (o *OrderController) CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var input createOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := o.orders.CreateOrder(c.Request.Context(), user, input.Items, input.TableNo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (o *OrderController) GetOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	order, err := o.orders.GetOrderFor(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		if !respondNotFound(c, err, "Order not found") {
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

func (o *OrderController) UpdateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var patch map[string]json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return
	}

	order, err := o.orders.UpdateOrder(c.Request.Context(), user, c.Param("id"), patch)
	if err != nil {
		if !respondNotFound(c, err, "Order not found") {
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

func (o *OrderController) DeleteOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := o.orders.DeleteOrder(c.Request.Context(), user, id); err != nil {
		if !respondNotFound(c, err, "Order not found") {
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted", "id": id})
}

// CurrentOrders lists the unpaid orders placed from a phone number.
func (o *OrderController) CurrentOrders(c *gin.Context) {
	result, err := o.orders.CurrentOrdersFor(c.Request.Context(), c.Query("phone"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type billInput struct {
	TableNo string `json:"table_no" binding:"required"`
}

func (o *OrderController) BillTable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var input billInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := o.orders.BillTable(c.Request.Context(), user, input.TableNo)
	if err != nil {
		if !respondNotFound(c, err, "No unpaid orders for this table") {
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, result)
}
