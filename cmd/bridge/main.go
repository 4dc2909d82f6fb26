package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftsignal/crashbridge/internal/analytics"
	"github.com/driftsignal/crashbridge/internal/bridge"
	"github.com/driftsignal/crashbridge/internal/config"
	"github.com/driftsignal/crashbridge/internal/connection"
	"github.com/driftsignal/crashbridge/internal/database"
	"github.com/driftsignal/crashbridge/internal/model"
	"github.com/driftsignal/crashbridge/internal/router"
	"github.com/driftsignal/crashbridge/internal/version"
	"github.com/driftsignal/crashbridge/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/bridge.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting bridge",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"feed_url", cfg.Feed.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	db, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database connected")

	// Routing buffers and writers
	crumbBuf := router.NewGrowableBuffer[model.Breadcrumb](cfg.Buffers.BreadcrumbSize)
	crashBuf := router.NewGrowableBuffer[model.CrashEvent](cfg.Buffers.CrashEventSize)

	writerCfg := writer.WriterConfig{
		BatchSize:     cfg.Writers.BatchSize,
		FlushInterval: cfg.Writers.FlushInterval,
	}
	crumbWriter := writer.NewBreadcrumbWriter(writerCfg, crumbBuf, db, logger)
	crashWriter := writer.NewCrashEventWriter(writerCfg, crashBuf, db, logger)

	// Event router with persistence receivers
	eventRouter := router.NewEventRouter(logger)
	eventRouter.SetBreadcrumbEventReceiver(bridge.NewBreadcrumbReceiver(crumbBuf))
	eventRouter.SetCrashOriginEventReceiver(bridge.NewCrashEventReceiver(crashBuf))

	// Feed connection
	mgr := connection.NewManager(connection.ManagerConfig{
		URL:               cfg.Feed.URL,
		Token:             cfg.Feed.Token,
		Channels:          cfg.Feed.Channels,
		PingTimeout:       cfg.Feed.PingTimeout,
		WriteTimeout:      cfg.Feed.WriteTimeout,
		ReconnectBaseWait: cfg.Feed.ReconnectBaseWait,
		ReconnectMaxWait:  cfg.Feed.ReconnectMaxWait,
		MessageBufferSize: cfg.Feed.MessageBufferSize,
	}, logger)

	// Connector over the feed, resolved by the deferred proxy once the
	// link is up. The proxy registers the event router as the connector
	// listener, so decoded frames flow into routing.
	connector := bridge.NewStreamConnector(mgr, logger)
	provider := analytics.Deferred(func(whenAvailable func(analytics.ConnectorSupplier)) {
		go func() {
			select {
			case <-ctx.Done():
			case <-mgr.Connected():
				whenAvailable(func() analytics.Connector { return connector })
			}
		}()
	})

	proxy := analytics.NewDeferredProxy(
		provider,
		analytics.NewDisabledBreadcrumbSource(logger),
		analytics.NewLogOnlyEventLogger(logger),
		analytics.WithConnectorListener(eventRouter),
		analytics.WithProxyLogger(logger),
	)

	// Bridge: feed frames -> connector dispatch -> router
	feedBridge := bridge.New(mgr.Messages(), connector, logger)

	// Start components, innermost first
	if err := crumbWriter.Start(ctx); err != nil {
		logger.Error("failed to start breadcrumb writer", "error", err)
		os.Exit(1)
	}
	if err := crashWriter.Start(ctx); err != nil {
		logger.Error("failed to start crash event writer", "error", err)
		os.Exit(1)
	}
	if err := feedBridge.Start(ctx); err != nil {
		logger.Error("failed to start bridge", "error", err)
		os.Exit(1)
	}
	if err := mgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(db, mgr, eventRouter, feedBridge, proxy, logger),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("bridge running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	healthServer.Shutdown(shutdownCtx)
	mgr.Stop(shutdownCtx)
	feedBridge.Stop(shutdownCtx)

	// Close buffers so writers drain, then stop writers
	crumbBuf.Close()
	crashBuf.Close()
	crumbWriter.Stop(shutdownCtx)
	crashWriter.Stop(shutdownCtx)

	logger.Info("bridge stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(
	db *pgxpool.Pool,
	mgr connection.Manager,
	eventRouter *router.EventRouter,
	feedBridge *bridge.Bridge,
	proxy *analytics.DeferredProxy,
	logger *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Check database
		if err := db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		// Check feed link
		if mgr.IsConnected() {
			health.Components["feed"] = "connected"
		} else {
			health.Components["feed"] = "disconnected"
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
		}

		health.Components["connector_resolved"] = proxy.Resolved()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"router":     eventRouter.Stats(),
			"bridge":     feedBridge.Stats(),
			"connection": mgr.Stats(),
		})
	})

	return mux
}
