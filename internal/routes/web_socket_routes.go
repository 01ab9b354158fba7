package routes

import (
	"github.com/gin-gonic/gin"

	"food_crm/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, wc *controllers.WebSocketController) {
	wsRoutes := r.Group("/ws")
	{
		wsRoutes.GET("/orders", wc.HandleOrderFeed)
	}
}
