package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blaisecz/vitalsim/internal/api"
	"github.com/blaisecz/vitalsim/internal/api/handler"
	"github.com/blaisecz/vitalsim/internal/config"
	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/executor"
	"github.com/blaisecz/vitalsim/internal/healthstore"
	"github.com/blaisecz/vitalsim/internal/insights"
	"github.com/blaisecz/vitalsim/internal/notify"
	"github.com/blaisecz/vitalsim/internal/planner"
	"github.com/blaisecz/vitalsim/internal/planstore"
	"github.com/blaisecz/vitalsim/internal/scheduler"
	"github.com/blaisecz/vitalsim/internal/telemetry"
	"github.com/blaisecz/vitalsim/internal/validation"
	"github.com/blaisecz/vitalsim/pkg/clock"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op when OTLP_ENDPOINT is unset)
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg, "vitalsim")
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	profile, err := buildProfile(cfg)
	if err != nil {
		logger.Fatal("Invalid profile configuration", zap.Error(err))
	}
	logger.Info("simulated profile ready",
		zap.String("profile_id", profile.ID.String()),
		zap.String("sleep_archetype", string(profile.SleepArchetype)),
		zap.String("activity_archetype", string(profile.ActivityArchetype)))

	mode := domain.FidelityMode(cfg.Mode)
	if mode != domain.ModePlain && mode != domain.ModeDetailed {
		logger.Fatal("Invalid fidelity mode", zap.String("mode", cfg.Mode))
	}

	// Plan cache
	db, err := config.NewDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to open plan cache database", zap.Error(err))
	}
	store, err := planstore.NewGormStore(db)
	if err != nil {
		logger.Fatal("Failed to migrate plan cache", zap.Error(err))
	}

	// Health store: HTTP gateway, or in-memory sink for dry runs
	var health healthstore.Store
	if httpStore := healthstore.NewHTTPClient(healthstore.Config{
		BaseURL:  cfg.HealthStoreURL,
		APIToken: cfg.HealthStoreToken,
	}); httpStore != nil && !cfg.DryRun {
		health = httpStore
		logger.Info("using health store gateway", zap.String("url", cfg.HealthStoreURL))
	} else {
		health = healthstore.NewMemoryStore()
		logger.Warn("no health store gateway configured, writing to in-memory sink")
	}

	// OpenAI narrative client (may be nil if not configured)
	summarizer := insights.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIWeeklySummaryModel)
	if summarizer == nil {
		logger.Warn("OpenAI API key not configured, weekly summaries will be unavailable")
	}

	// Planning and delivery
	clk := clock.Real{}
	plans := planner.NewManager(planner.New(logger), store, profile, mode, logger)
	sched := scheduler.New(clk, logger)
	exec := executor.New(executor.Config{}, sched, health, plans, notify.LogNotifier{Log: logger}, clk, logger)

	if err := exec.Start(ctx); err != nil {
		logger.Fatal("Failed to start executor", zap.Error(err))
	}

	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	// HTTP status surface
	statusHandler := handler.NewStatusHandler(exec, plans, profile)
	summaryHandler := handler.NewSummaryHandler(plans, summarizer)
	router := api.NewRouter(statusHandler, summaryHandler, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.Setup(),
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildProfile(cfg *config.Config) (*domain.Profile, error) {
	req := &domain.CreateProfileRequest{
		Age:      cfg.ProfileAge,
		Sex:      domain.Sex(cfg.ProfileSex),
		HeightCM: cfg.ProfileHeightCM,
		WeightKG: cfg.ProfileWeightKG,
	}
	if errs := validation.Validate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProfile, validation.Join(errs))
	}
	return domain.NewProfile(req)
}
