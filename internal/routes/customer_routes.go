package routes

import (
	"github.com/gin-gonic/gin"

	"food_crm/internal/controllers"
)

// CustomerRoutes are the public endpoints a customer hits before logging in.
func CustomerRoutes(r *gin.Engine, mc *controllers.MenuController, oc *controllers.OrderController) {
	r.GET("/menu", mc.ListMenu)
	r.GET("/orders/current", oc.CurrentOrders)
}
