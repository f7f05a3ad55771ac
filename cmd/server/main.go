// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brazaops/stockcast/internal/api"
	"github.com/brazaops/stockcast/internal/cache"
	"github.com/brazaops/stockcast/internal/config"
	"github.com/brazaops/stockcast/internal/pipeline"
	"github.com/brazaops/stockcast/internal/repository/postgres"
	"github.com/brazaops/stockcast/internal/service"
	"github.com/brazaops/stockcast/internal/storage"
	"github.com/brazaops/stockcast/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize services
	repo := postgres.NewForecastRepository(db)
	runner := pipeline.NewRunner(repo,
		pipeline.WithWorkers(cfg.App.WorkerCount),
		pipeline.WithHorizon(cfg.App.HorizonDays),
	)
	forecastCache := cache.NewRedisCache(ctx, &cfg.Cache)
	archiver, err := storage.NewArchiver(ctx, &cfg.Archive)
	if err != nil {
		log.Fatalf("Failed to initialize archive storage: %v", err)
	}
	forecastService := service.NewForecastService(repo, runner, forecastCache, archiver)

	// Initialize HTTP server
	router := api.NewRouter(forecastService, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
