package app

import (
	"context"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"food_crm/internal/config"
	"food_crm/internal/controllers"
	"food_crm/internal/events"
	"food_crm/internal/mailer"
	"food_crm/internal/metrics"
	"food_crm/internal/middleware"
	"food_crm/internal/repository"
	"food_crm/internal/routes"
	"food_crm/internal/services"
)

// Options overrides collaborators that are otherwise built from config.
type Options struct {
	Mailer    mailer.Mailer
	OTPStore  repository.OTPStore
	AccessLog io.Writer
}

// App is the fully wired service.
type App struct {
	Router   *gin.Engine
	Hub      *events.Hub
	Metrics  *metrics.Manager
	Identity *services.IdentityService
	Menu     *services.MenuService

	redis *redis.Client
	nats  *nats.Conn
}

// New wires repositories, services and HTTP handlers around db.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) (*App, error) {
	a := &App{}

	otpStore := opts.OTPStore
	if otpStore == nil {
		switch cfg.OTP.Store {
		case "", "db":
			otpStore = repository.NewOTPRepository(db)
		case "redis":
			client, err := repository.NewRedisClient(ctx, cfg.Redis)
			if err != nil {
				return nil, err
			}
			a.redis = client
			otpStore = repository.NewRedisOTPStore(client)
		default:
			return nil, fmt.Errorf("unsupported OTP_STORE %q", cfg.OTP.Store)
		}
	}

	mail := opts.Mailer
	if mail == nil {
		var err error
		if mail, err = mailer.New(cfg.SMTP, cfg.Env); err != nil {
			a.Close()
			return nil, err
		}
		if cfg.SMTP.Host == "" {
			logrus.Warn("SMTP_HOST not set, OTP emails will only be logged")
		}
	}

	a.Metrics = metrics.NewManager("food_crm")
	a.Hub = events.NewHub()
	publishers := []events.Publisher{a.Hub}
	if cfg.NATS.URL != "" {
		nc, err := events.NewNATSConnection(cfg.NATS)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.nats = nc
		pub, err := events.NewNATSPublisher(nc, cfg.NATS.Subject)
		if err != nil {
			a.Close()
			return nil, err
		}
		publishers = append(publishers, pub)
	}
	fanout := events.NewFanout(publishers...)

	jwt := middleware.NewJWT(cfg.JWT)

	users := repository.NewUserRepository(db)
	a.Identity = services.NewIdentityService(users, jwt)
	otp := services.NewOTPService(otpStore, mail, a.Metrics)
	orders := services.NewOrderService(repository.NewOrderRepository(db), fanout, a.Metrics)
	tables := services.NewTableService(repository.NewTableRepository(db), cfg.Tables.BaseURL)
	a.Menu = services.NewMenuService(repository.NewMenuRepository(db))

	a.Router = routes.SetupRouter(routes.Deps{
		DB:        db,
		JWT:       jwt,
		Users:     a.Identity,
		Metrics:   a.Metrics,
		AccessLog: opts.AccessLog,
		Auth:      controllers.NewAuthController(a.Identity, otp),
		Orders:    controllers.NewOrderController(orders),
		Tables:    controllers.NewTableController(tables),
		Menu:      controllers.NewMenuController(a.Menu),
		Feed:      controllers.NewWebSocketController(jwt, a.Identity, a.Hub),
	})
	return a, nil
}

// Seed loads the default menu and the configured admin account.
func (a *App) Seed(ctx context.Context, admin config.AdminConfig) error {
	if _, err := a.Menu.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed menu: %w", err)
	}
	if admin.Username == "" || admin.Password == "" {
		return nil
	}
	if _, err := a.Identity.CreateStaff(ctx, admin.Username, admin.Email, admin.Password, true); err != nil {
		return fmt.Errorf("failed to seed admin %s: %w", admin.Username, err)
	}
	logrus.WithField("username", admin.Username).Info("admin account ensured")
	return nil
}

func (a *App) Close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close redis client")
		}
	}
}
