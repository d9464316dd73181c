package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/clinicore/scale-service/internal/cache"
	"github.com/clinicore/scale-service/internal/config"
	"github.com/clinicore/scale-service/internal/handlers"
	"github.com/clinicore/scale-service/internal/repositories/postgres"
	"github.com/clinicore/scale-service/internal/services"
	"github.com/clinicore/scale-service/internal/utils"
	"github.com/clinicore/scale-service/internal/validator"
	"github.com/clinicore/scale-service/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(slogger)

	cfg, err := config.LoadConfig()
	if err != nil {
		slogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		slogger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := pkg.AutoMigrate(db); err != nil {
		slogger.Error("Failed to migrate schema", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		slogger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		slogger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	defer repo.Close()

	v := validator.New()
	cacheService := cache.NewRedisCache(redisClient, slogger)

	scaleService := services.NewScaleService(repo, slogger, v, cacheService)
	administrationService := services.NewAdministrationService(repo, slogger, v, scaleService, publisher)
	sessionService := services.NewSessionService(repo, slogger, v, scaleService, publisher)
	reportService := services.NewReportService(repo, slogger, administrationService, sessionService)

	logger := utils.NewSlogLogger(slogger)

	var authMiddleware gin.HandlerFunc
	if cfg.Casdoor.Enabled() {
		casdoorClient := casdoorsdk.NewClient(
			cfg.Casdoor.Endpoint,
			cfg.Casdoor.ClientID,
			cfg.Casdoor.ClientSecret,
			cfg.Casdoor.Certificate,
			cfg.Casdoor.OrganizationName,
			cfg.Casdoor.ApplicationName,
		)
		authMiddleware = handlers.AuthMiddleware(casdoorClient, logger)
	} else {
		slogger.Warn("Identity provider not configured, requests run as dev actor")
		authMiddleware = handlers.StaticActorMiddleware("dev")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(scaleService, sessionService, administrationService, reportService, logger)
	handlerManager.SetupRoutes(router, authMiddleware)

	// Background sweep for administrations that went quiet.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runStaleSweeper(sweepCtx, sessionService, cfg, slogger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slogger.Info("Starting scale service", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("Shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slogger.Error("Forced shutdown", "error", err)
	}
}

func runStaleSweeper(ctx context.Context, sessions services.SessionService, cfg *config.Config, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.StaleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.AbandonStale(ctx, cfg.StaleAdministrationAfter); err != nil {
				logger.Error("Stale administration sweep failed", "error", err)
			}
		}
	}
}
