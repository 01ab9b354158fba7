package routes

import (
	"github.com/gin-gonic/gin"

	"food_crm/internal/controllers"
)

// TableRoutes holds the public QR scan check.
func TableRoutes(r *gin.Engine, tc *controllers.TableController) {
	r.GET("/tables/verify", tc.VerifyTable)
}
