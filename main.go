package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"weddingmemories/config"
	"weddingmemories/internal/adapters/auth"
	"weddingmemories/internal/adapters/bus"
	"weddingmemories/internal/adapters/email"
	"weddingmemories/internal/adapters/storage"
	"weddingmemories/internal/broker"
	httpdelivery "weddingmemories/internal/delivery/http"
	"weddingmemories/internal/delivery/http/controllers"
	"weddingmemories/internal/delivery/http/middleware"
	"weddingmemories/internal/repository/postgres"
	"weddingmemories/internal/services"
)

// @title Wedding Memories API
// @version 1.0
// @description Backend for shared wedding pages: guest wishes, photo uploads, RSVPs, and a live feed for the couple's dashboard.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "error", err)
		os.Exit(1)
	}

	objectStorage, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Error("init object storage", "error", err)
		os.Exit(1)
	}
	mailer, err := email.NewMailer(cfg.Mailer)
	if err != nil {
		logger.Error("init mailer", "error", err)
		os.Exit(1)
	}

	eventRepo := postgres.NewEventRepository(db)
	wishRepo := postgres.NewWishRepository(db)
	photoRepo := postgres.NewPhotoRepository(db)
	responseRepo := postgres.NewRSVPResponseRepository(db)
	settingsRepo := postgres.NewRSVPSettingsRepository(db)
	statsRepo := postgres.NewStatsRepository(db)

	loader := services.NewSnapshotLoader(eventRepo, wishRepo, photoRepo, responseRepo, settingsRepo, statsRepo)

	feedBroker := broker.New(loader, bus.NoopBus{}, logger)
	if cfg.AMQPUrl != "" {
		amqpBus, err := bus.New(cfg.AMQPUrl)
		if err != nil {
			logger.Error("connect rabbitmq", "error", err)
			os.Exit(1)
		}
		defer amqpBus.Close()
		feedBroker = broker.New(loader, amqpBus, logger)
	}

	admitter := services.NewAdmissionService(eventRepo, settingsRepo, cfg.Admission)
	renderer := email.NewTemplateRenderer()

	eventService := services.NewEventService(eventRepo, statsRepo, settingsRepo, photoRepo, objectStorage, feedBroker, cfg.PublicBaseURL, logger)
	contributionService := services.NewContributionService(eventRepo, wishRepo, responseRepo, settingsRepo, statsRepo, admitter, feedBroker, mailer, renderer, logger)
	mediaService := services.NewMediaService(eventRepo, photoRepo, statsRepo, objectStorage, admitter, feedBroker, cfg.Media, logger)

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	eventController := controllers.NewEventController(logger, eventService, contributionService, mediaService)
	guestController := controllers.NewGuestController(logger, contributionService, mediaService)
	feedController := controllers.NewFeedController(logger, feedBroker)

	router := httpdelivery.NewRouter(eventController, guestController, feedController, verifier)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.LoggingMiddleware(logger, router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
