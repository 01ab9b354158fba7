package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"food_crm/internal/app"
	"food_crm/internal/config"
	"food_crm/internal/logger"
	"food_crm/internal/middleware"
)

func main() {
	cfg := config.MustLoad()

	// Structured logging to a rotating file
	accessLog := logger.Setup(cfg.Log)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg.Database, logger.GormLogger())
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, db, app.Options{AccessLog: accessLog})
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer application.Close()

	if err := application.Seed(ctx, cfg.Admin); err != nil {
		log.Fatalf("seed: %v", err)
	}

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      middleware.EnableCORS(application.Router),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logrus.Infof("Server running at %s", srv.Addr)
		log.Printf("🚀 Server running at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
}
