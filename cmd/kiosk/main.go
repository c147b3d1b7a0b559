package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/visitor-kiosk/internal/application"
	"github.com/example/visitor-kiosk/internal/config"
	"github.com/example/visitor-kiosk/internal/directory"
	httptransport "github.com/example/visitor-kiosk/internal/http"
	"github.com/example/visitor-kiosk/internal/logging"
	"github.com/example/visitor-kiosk/internal/notify"
	"github.com/example/visitor-kiosk/internal/persistence/sqlite"
	"github.com/example/visitor-kiosk/internal/remotestore"
)

func main() {
	logger := logging.New(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.CacheDSN)
	if err != nil {
		logger.Error("failed to open session cache storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close session cache storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply cache migrations", "error", err)
		os.Exit(1)
	}

	cache := application.NewSessionCache(storage, cfg.CacheRetention, logger)
	cache.Load(context.Background())
	cache.SweepExpired(context.Background(), time.Now())

	records := remotestore.New(cfg.RecordStoreURL, cfg.RecordStoreKey, nil)

	var roster application.RecipientDirectory
	if notify.IsBotToken(cfg.SlackBotToken) {
		roster = directory.NewSlackDirectory(cfg.SlackBotToken, logger)
	}

	notifier := buildNotifier(cfg, logger)

	service := application.NewVisitServiceWithLogger(records, cache, roster, notifier, time.Now, logger)

	visitHandler := httptransport.NewVisitHandler(service, logger)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Visits:     visitHandler,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	go sweepLoop(ctx, cache, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("visitor kiosk API listening", "addr", server.Addr, "location", cfg.Location)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// buildNotifier assembles the delivery channels the device is configured for.
// The direct-message channel is preferred; the webhook is the fallback. A
// device with neither gets a nil notifier and check-ins report the skipped
// status.
func buildNotifier(cfg config.Config, logger *slog.Logger) application.Notifier {
	var channels []notify.Channel
	if notify.IsBotToken(cfg.SlackBotToken) {
		channels = append(channels, notify.NewDirectMessageChannel(cfg.SlackBotToken))
	}
	if notify.IsWebhookURL(cfg.SlackWebhookURL) {
		channels = append(channels, notify.NewWebhookChannel(cfg.SlackWebhookURL))
	}
	if len(channels) == 0 {
		logger.Warn("no notification channels configured, visitor alerts disabled")
		return nil
	}
	return notify.NewDispatcher(channels, cfg.Location, logger)
}

// sweepLoop prunes expired cache records every hour until shutdown.
func sweepLoop(ctx context.Context, cache *application.SessionCache, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cache.SweepExpired(ctx, now)
			logger.Debug("session cache sweep completed")
		}
	}
}
