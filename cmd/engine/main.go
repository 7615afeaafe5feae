package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gator-overflow/internal/config"
	"gator-overflow/internal/database"
	"gator-overflow/internal/engine"
	"gator-overflow/internal/handlers"
	"gator-overflow/internal/middleware"
	"gator-overflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gator-overflow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize components
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}()

	metrics := utils.NewMetricsCollector()

	// Initialize actor system
	system := actor.NewActorSystem()
	gatorEngine := engine.NewEngine(system, store, metrics, logger, engine.Options{
		PoolSize:         cfg.Server.WorkerPoolSize,
		OperationTimeout: cfg.Server.OperationTimeout(),
		MaxImageSize:     cfg.Server.MaxImageSize,
	})
	defer gatorEngine.Stop(system)

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, logger)
	if !auth.Enabled() {
		logger.Warn("JWT_SECRET not set, identity checks are disabled")
	}

	server := handlers.NewServer(system, gatorEngine, metrics, auth, logger,
		cfg.Server.RequestTimeout, cfg.Server.MaxImageSize)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           server.NewRouter(cfg.AllowedOrigins, cfg.Server.MetricsEnabled),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server",
			zap.String("addr", httpServer.Addr),
			zap.String("dbType", cfg.Database.Type),
			zap.Int("workerPoolSize", cfg.Server.WorkerPoolSize))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore builds the DBAdapter selected by DB_TYPE.
func openStore(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (database.DBAdapter, error) {
	switch cfg.Type {
	case config.DBTypeMemory:
		logger.Warn("Using in-memory store, data is lost on exit")
		return database.NewMemoryStore(), nil
	default:
		mongodb, err := database.NewMongoDB(ctx, cfg.URI, cfg.Name, cfg.ConnectTimeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		return mongodb, nil
	}
}
