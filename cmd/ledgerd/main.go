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

	"github.com/spf13/pflag"

	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/api"
	"machine-ledger-backend/internal/auth"
	"machine-ledger-backend/internal/ledger"
	"machine-ledger-backend/internal/logging"
	"machine-ledger-backend/internal/observe"
	"machine-ledger-backend/internal/store"
)

func main() {
	logger := logging.Subsystem("Main")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}
	pflag.StringVarP(&configPath, "config", "c", configPath, "path to the YAML configuration file")
	pflag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logging.Setup(cfg.Log.Level)
	logger.Infof("configuration loaded successfully from %s", configPath)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observe.InitTracing(ctx, &cfg.Tracing)
	if err != nil {
		logger.Fatalf("failed to initialize tracing: %v", err)
	}

	rangeStore, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Store.Driver, err)
	}
	logger.Infof("%s range store initialized", cfg.Store.Driver)

	var authenticator *auth.Authenticator
	if cfg.Auth.Enabled {
		users, err := auth.LoadUsers(cfg.Auth.UsersFile)
		if err != nil {
			logger.Fatalf("failed to load users: %v", err)
		}
		if authenticator, err = auth.New(&cfg.Auth, users, nil); err != nil {
			logger.Fatalf("failed to initialize authentication: %v", err)
		}
		logger.Infof("authentication enabled with %d users", len(users))
	} else {
		logger.Warn("authentication disabled, movements are recorded as System")
	}

	l := ledger.New(rangeStore, &cfg.Ledger, nil)

	// Initialize router
	router := api.NewRouter(cfg, l, authenticator)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Info("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warnf("tracing shutdown: %v", err)
	}

	logger.Info("Server gracefully stopped")
}
