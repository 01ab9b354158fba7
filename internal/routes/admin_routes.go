package routes

import (
	"github.com/gin-gonic/gin"

	"food_crm/internal/controllers"
	"food_crm/internal/middleware"
	"food_crm/internal/models"
)

func AdminRoutes(r *gin.Engine, auth gin.HandlerFunc, tc *controllers.TableController, oc *controllers.OrderController) {
	admin := r.Group("/tables")
	admin.Use(auth, middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("", tc.ListTables)
		admin.POST("/generate", tc.GenerateTables)
		admin.DELETE("/:table_no", tc.DeleteTable)
		admin.POST("/bill", oc.BillTable)
	}
}
