package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	cosmiccreator "github.com/set-night/cosmiccreator"
	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/handler"
	"github.com/set-night/cosmiccreator/internal/localstore"
	"github.com/set-night/cosmiccreator/internal/repository"
	"github.com/set-night/cosmiccreator/internal/service"
	"github.com/set-night/cosmiccreator/internal/storage"
	"github.com/set-night/cosmiccreator/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(cosmiccreator.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	queries := repository.New(pool)

	// Local media stores
	store, err := localstore.Open(ctx, cfg.LocalStorePath)
	if err != nil {
		slog.Error("failed to open local store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Telegram ops channel
	var notifier service.Notifier = service.NopNotifier{}
	if cfg.BotToken != "" && cfg.LogTelegramChatID != 0 {
		b, err := bot.New(cfg.BotToken)
		if err != nil {
			slog.Error("failed to create bot, ops logging disabled", "error", err)
		} else {
			notifier = telegram.NewOpsLogger(b, cfg)
			slog.Info("telegram ops logging enabled", "chat", cfg.LogTelegramChatID)
		}
	}

	// Cloud storage
	var (
		imageCloud *storage.CloudStore
		videoCloud *storage.CloudStore
		gallery    *service.GalleryService
	)
	if cfg.CloudEnabled() {
		images := storage.NewSupabaseBucket(cfg.StorageEndpoint(), cfg.SupabaseServiceKey, cfg.ImagesBucket)
		videos := storage.NewSupabaseBucket(cfg.StorageEndpoint(), cfg.SupabaseServiceKey, cfg.VideosBucket)
		imageCloud = storage.NewCloudStore(images)
		videoCloud = storage.NewCloudStore(videos)
		gallery = service.NewGalleryService(images, videos, service.NewGalleryCache(config.GalleryCacheDuration))
		slog.Info("cloud storage enabled", "images", cfg.ImagesBucket, "videos", cfg.VideosBucket)
	}

	// Initialize services
	gemini, err := service.NewGeminiService(ctx, cfg.GeminiAPIKey)
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}

	creators := service.NewCreatorService(queries, notifier)
	sanctuary := service.NewSanctuary(store.Links(), store.Blobs(), imageCloud)
	animator := service.NewAnimator(gemini, store.Blobs(), videoCloud, sanctuary, notifier)

	var payments *service.PaymentService
	if cfg.StripeEnabled {
		payments = service.NewPaymentService(creators, queries, service.NewStripeGateway(cfg.StripeSecretKey), cfg.StripePriceID, notifier)
		slog.Info("stripe payments enabled")
	}

	h := handler.New(handler.Deps{
		Cfg:         cfg,
		Creators:    creators,
		Sanctuary:   sanctuary,
		Chambers:    service.NewChambers(gemini),
		Animator:    animator,
		Oracle:      service.NewOracle(gemini),
		Gallery:     gallery,
		Payments:    payments,
		Blobs:       store.Blobs(),
		RateCounter: queries,
		DB:          pool,
	})

	go animator.RunJanitor(ctx)

	// Start rate limit cleanup goroutine
	go func() {
		ticker := time.NewTicker(config.RateLimitCleanupPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := queries.CleanupRateLimits(context.Background()); err != nil {
					slog.Error("cleanup rate limits", "error", err)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	if err := animator.Shutdown(shutdownCtx); err != nil {
		slog.Error("animator shutdown", "error", err)
	}
	slog.Info("server stopped gracefully")
}
