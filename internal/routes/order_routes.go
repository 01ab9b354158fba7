package routes

import (
	"github.com/gin-gonic/gin"

	"food_crm/internal/controllers"
)

// OrderRoutes need a bearer token; what each role may do is decided by the order policy.
func OrderRoutes(r *gin.Engine, auth gin.HandlerFunc, oc *controllers.OrderController) {
	orders := r.Group("/orders")
	orders.Use(auth)
	{
		orders.GET("", oc.ListOrders)
		orders.POST("", oc.CreateOrder)
		orders.GET("/:id", oc.GetOrder)
		orders.PATCH("/:id", oc.UpdateOrder)
		orders.DELETE("/:id", oc.DeleteOrder)
	}
}
