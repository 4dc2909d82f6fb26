// feedtail connects to the analytics feed and prints routed events to the
// console. Usage: go run ./cmd/feedtail --config configs/bridge.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftsignal/crashbridge/internal/analytics"
	"github.com/driftsignal/crashbridge/internal/bridge"
	"github.com/driftsignal/crashbridge/internal/config"
	"github.com/driftsignal/crashbridge/internal/connection"
	"github.com/driftsignal/crashbridge/internal/router"
)

func main() {
	configPath := flag.String("config", "configs/bridge.local.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full event params")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	eventRouter := router.NewEventRouter(logger)
	eventRouter.SetBreadcrumbEventReceiver(printReceiver("breadcrumb", *verbose))
	eventRouter.SetCrashOriginEventReceiver(printReceiver("crash", *verbose))

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

	feedBridge := bridge.New(mgr.Messages(), eventRouter, logger)

	if err := feedBridge.Start(ctx); err != nil {
		logger.Error("failed to start bridge", "error", err)
		os.Exit(1)
	}
	if err := mgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "tailing %s (ctrl-c to stop)\n", cfg.Feed.URL)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	mgr.Stop(shutdownCtx)
	feedBridge.Stop(shutdownCtx)

	stats := eventRouter.Stats()
	fmt.Fprintf(os.Stderr, "received=%d breadcrumbs=%d crash=%d dropped=%d\n",
		stats.Received, stats.BreadcrumbRouted, stats.CrashRouted, stats.Dropped)
}

// printReceiver prints one line per routed event.
func printReceiver(kind string, verbose bool) analytics.EventReceiver {
	return analytics.EventReceiverFunc(func(name string, params analytics.Envelope) {
		if verbose {
			data, _ := json.Marshal(params)
			fmt.Printf("%s %-10s %s %s\n", time.Now().Format(time.RFC3339), kind, name, data)
			return
		}
		fmt.Printf("%s %-10s %s (%d params)\n", time.Now().Format(time.RFC3339), kind, name, len(params))
	})
}
