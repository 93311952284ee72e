package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/activity"
	"github.com/venuedesk/bookingengine/config"
	"github.com/venuedesk/bookingengine/detection"
	"github.com/venuedesk/bookingengine/httpserver"
	"github.com/venuedesk/bookingengine/logger"
	"github.com/venuedesk/bookingengine/metrics"
	"github.com/venuedesk/bookingengine/provider"
	"github.com/venuedesk/bookingengine/redisclient"
	"github.com/venuedesk/bookingengine/store"
	"github.com/venuedesk/bookingengine/tracebus"
	"github.com/venuedesk/bookingengine/verbalizer"
	"github.com/venuedesk/bookingengine/workflow"
)

func main() {
	cfgStore := config.NewStore()
	cfg := cfgStore.Current()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Str("venue", cfg.Venue.Name).Msg("booking engine starting")

	rc, err := redisclient.New(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis init failed — active-conversations cache disabled")
		rc = nil
	} else if err := rc.Ping(); err != nil {
		log.Warn().Err(err).Msg("redis ping failed — active-conversations cache disabled")
		rc = nil
	} else {
		log.Info().Msg("redis connected")
	}

	registry := provider.NewRegistry()
	connPool := provider.DefaultConnectionPool()
	registerProviders(cfg, registry, connPool, log)

	healthPoller := provider.NewHealthPoller(registry, log, 30*time.Second)
	healthPoller.OnStatusChange(func(name string, healthy bool, status provider.HealthStatus) {
		if healthy {
			log.Info().Str("provider", name).Msg("provider recovered")
		} else {
			log.Error().Str("provider", name).Str("error", status.Error).Msg("provider degraded")
		}
	})
	healthPoller.Start()

	st := store.New(cfg)
	bus := tracebus.New(log)
	metricsReg := metrics.New(log)

	activitySink := store.NewActivitySink(st)
	activityTx := activity.New(log, activitySink)
	ctx, cancel := context.WithCancel(context.Background())
	activityTx.Start(ctx)

	verb := verbalizer.New(registry, log)
	detector := detection.New(registry, detection.Mode(cfg.DetectionMode))

	router := workflow.New(st, cfgStore, detector, bus, metricsReg, activityTx, verb, log)
	if rc != nil {
		router.SetActiveConversations(rc)
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      httpserver.New(cfg, log, router, metricsReg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("booking engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	healthPoller.Stop()
	cancel()
	activityTx.Stop()
	connPool.Close()
	if rc != nil {
		_ = rc.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("booking engine stopped gracefully")
	}
}

// registerProviders wires the two real LLM connectors into the
// {primary, fallback} routes this engine's config.LLMProviderRouting
// refers to, plus a stub that always answers deterministically so the
// pipeline degrades gracefully with no API keys configured at all. Both
// connectors share pool's transports so detection and verbalization
// calls reuse connections instead of each dialing its own.
func registerProviders(cfg *config.Config, registry *provider.Registry, pool *provider.ConnectionPool, log zerolog.Logger) {
	registry.Register(provider.NewStubProvider())

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		anthropic := provider.NewAnthropicProvider(provider.ProviderConfig{
			Name:    "anthropic",
			APIKey:  key,
			Timeout: cfg.DefaultTimeout,
		}, pool)
		registry.Register(provider.AsRoute(anthropic, "primary"))
		log.Info().Msg("registered anthropic as primary route")
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		openai := provider.NewOpenAIProvider(provider.ProviderConfig{
			Name:    "openai",
			APIKey:  key,
			Timeout: cfg.DefaultTimeout,
		}, pool)
		registry.Register(provider.AsRoute(openai, "fallback"))
		log.Info().Msg("registered openai as fallback route")
	}

	if len(registry.List()) == 1 {
		registry.Register(provider.AsRoute(provider.NewStubProvider(), "primary"))
		log.Warn().Msg("no LLM API keys configured — running on the stub provider only")
	}
}
