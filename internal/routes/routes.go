package routes

import (
	"io"
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"food_crm/internal/controllers"
	"food_crm/internal/metrics"
	"food_crm/internal/middleware"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	DB        *gorm.DB
	JWT       *middleware.JWT
	Users     middleware.UserLoader
	Metrics   *metrics.Manager
	AccessLog io.Writer

	Auth   *controllers.AuthController
	Orders *controllers.OrderController
	Tables *controllers.TableController
	Menu   *controllers.MenuController
	Feed   *controllers.WebSocketController
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())

	if d.AccessLog != nil {
		r.Use(ginlog.SetLogger(
			ginlog.WithWriter(d.AccessLog),
			ginlog.WithUTC(true),
			ginlog.WithSkipPath([]string{"/health", "/metrics"}),
		))
	}
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/health", health(d.DB))

	auth := d.JWT.RequireAuth(d.Users)

	AuthRoutes(r, d.Auth)
	CustomerRoutes(r, d.Menu, d.Orders)
	OrderRoutes(r, auth, d.Orders)
	TableRoutes(r, d.Tables)
	AdminRoutes(r, auth, d.Tables, d.Orders)
	WebSocketRoutes(r, d.Feed)

	return r
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
