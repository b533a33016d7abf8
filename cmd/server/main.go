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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/denteo/clinic-auth/internal/audit"
	"github.com/denteo/clinic-auth/internal/config"
	"github.com/denteo/clinic-auth/internal/events"
	"github.com/denteo/clinic-auth/internal/httpserver"
	"github.com/denteo/clinic-auth/internal/httpx"
	"github.com/denteo/clinic-auth/internal/middleware"
	"github.com/denteo/clinic-auth/internal/repo"
	"github.com/denteo/clinic-auth/internal/service"
	"github.com/denteo/clinic-auth/internal/tokens"
	"github.com/denteo/clinic-auth/pkg/db"
	"github.com/denteo/clinic-auth/pkg/logging"
)

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		logger.Warn("KAFKA_BROKERS not set, auth events disabled")
	}

	var trail *audit.Trail
	if cfg.ESURL != "" {
		esClient, err := audit.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		trail = &audit.Trail{ES: esClient, Index: cfg.AuditIndex}
	} else {
		logger.Warn("ES_URL not set, audit trail disabled")
	}

	issuer := &tokens.Issuer{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	gormRepo := repo.GormRepo{DB: database}

	authSvc := &service.AuthService{
		Repo:     gormRepo,
		Issuer:   issuer,
		Producer: producer,
		Audit:    trail,
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(httpx.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:  &httpserver.AuthHTTP{Svc: authSvc},
		AuditHandler: &httpserver.AuditHTTP{Trail: trail},
		Auth:         middleware.NewAuthenticator(issuer, gormRepo),
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "addr", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := db.Close(database); err != nil {
		logger.Error("db close error", "error", err)
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
