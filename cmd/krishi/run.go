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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/dnscache"

	"github.com/krishihq/krishi/internal/app"
	"github.com/krishihq/krishi/internal/auth"
	"github.com/krishihq/krishi/internal/cache"
	"github.com/krishihq/krishi/internal/config"
	"github.com/krishihq/krishi/internal/ratelimit"
	"github.com/krishihq/krishi/internal/server"
	"github.com/krishihq/krishi/internal/storage/sqlite"
	"github.com/krishihq/krishi/internal/telemetry"
	"github.com/krishihq/krishi/internal/upstream"
	"github.com/krishihq/krishi/internal/upstream/agmarknet"
	"github.com/krishihq/krishi/internal/upstream/openrouter"
	"github.com/krishihq/krishi/internal/upstream/openweather"
	"github.com/krishihq/krishi/internal/worker"
)

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	slog.Info("starting krishi", "version", version, "addr", cfg.Server.Addr)

	// Open database
	store, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	// Telemetry
	var metrics *telemetry.Metrics
	var metricsPage http.Handler
	var observer cache.Observer
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		metrics = telemetry.NewMetrics(reg)
		metricsPage = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		observer = metrics
	}
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(context.Background(),
			cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate, version)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				slog.Warn("tracer shutdown", "error", err)
			}
		}()
	}

	// External-data cache gateway
	gw, err := cache.New(cache.Options{
		MaxSize: cfg.Cache.MaxSize,
		TTLs: map[string]time.Duration{
			app.SourceWeather:  cfg.Cache.WeatherTTL,
			app.SourceForecast: cfg.Cache.ForecastTTL,
			app.SourcePrice:    cfg.Cache.PriceTTL,
			app.SourceInsight:  cfg.Cache.InsightTTL,
		},
		MaxStale: cfg.Cache.MaxStale,
		Observer: observer,
	})
	if err != nil {
		return err
	}

	// Upstream clients share one transport with cached DNS. A provider
	// without an API key is left nil, putting its service in offline mode.
	resolver := &dnscache.Resolver{}
	transport := upstream.NewTransport(resolver)

	var weatherClient app.WeatherClient
	if cfg.Upstream.OpenWeather.Configured() {
		weatherClient = openweather.New(cfg.Upstream.OpenWeather.APIKey, cfg.Upstream.OpenWeather.BaseURL,
			&http.Client{Transport: transport, Timeout: cfg.Upstream.OpenWeather.Timeout})
	} else {
		slog.Warn("openweather api key not set, weather runs offline")
	}

	var priceClient app.PriceClient
	if cfg.Upstream.Agmarknet.Configured() {
		priceClient = agmarknet.New(cfg.Upstream.Agmarknet.APIKey, cfg.Upstream.Agmarknet.BaseURL,
			&http.Client{Transport: transport, Timeout: cfg.Upstream.Agmarknet.Timeout})
	} else {
		slog.Warn("agmarknet api key not set, prices run offline")
	}

	var llmClient app.LLMClient
	if cfg.Upstream.OpenRouter.Configured() {
		llmClient = openrouter.New(cfg.Upstream.OpenRouter.APIKey, cfg.Upstream.OpenRouter.BaseURL,
			cfg.Upstream.OpenRouter.Model,
			&http.Client{Transport: transport, Timeout: cfg.Upstream.OpenRouter.Timeout})
	} else {
		slog.Warn("openrouter api key not set, advisor runs offline")
	}

	// Wire services
	sessionAuth, err := auth.New(store, store, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}

	weatherSvc := app.NewWeather(gw, weatherClient, cfg.Defaults.City)
	marketSvc := app.NewMarket(gw, priceClient, cfg.Defaults.State, cfg.Defaults.Crop)
	advisorSvc := app.NewAdvisor(gw, llmClient, weatherSvc, marketSvc, cfg.Defaults.City, cfg.Defaults.Crop, log)
	dashboardSvc := app.NewDashboard(weatherSvc, marketSvc, advisorSvc, store, store, cfg.Defaults.City, cfg.Defaults.Crop, log)

	limiters := ratelimit.NewRegistry()

	// Create HTTP server
	handler := server.New(server.Deps{
		Auth:        sessionAuth,
		Store:       store,
		Weather:     weatherSvc,
		Market:      marketSvc,
		Advisor:     advisorSvc,
		Dashboard:   dashboardSvc,
		ReadyCheck:  store.Ping,
		RateLimiter: limiters,
		RateLimit:   cfg.RateLimits.PerMinute,
		CORSOrigin:  cfg.Server.CORSOrigin,
		Metrics:     metrics,
		MetricsPage: metricsPage,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	runner := worker.NewRunner(worker.NewSweeper(store, limiters))
	workerErrCh := make(chan error, 1)
	go func() {
		workerErrCh <- runner.Run(workerCtx)
	}()

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("krishi ready", "addr", cfg.Server.Addr)

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		return err
	}

	// Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	stopWorkers()
	if err := <-workerErrCh; err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("worker exit", "error", err)
	}

	slog.Info("krishi stopped")
	return nil
}
