package routes

import (
	"github.com/gin-gonic/gin"

	"food_crm/internal/controllers"
)

func AuthRoutes(r *gin.Engine, ac *controllers.AuthController) {
	auth := r.Group("/auth")
	{
		auth.POST("/customer/register", ac.RegisterCustomer)
		auth.POST("/customer/verify", ac.VerifyCustomer)
		auth.POST("/customer/login", ac.CustomerLogin)
		auth.POST("/staff/login", ac.StaffLogin)
		auth.POST("/send-otp", ac.SendOTP)
		auth.POST("/verify-otp", ac.VerifyOTP)
	}
}
