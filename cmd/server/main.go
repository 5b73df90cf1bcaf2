package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kevichi7/bench-sort/internal/auth"
	"github.com/kevichi7/bench-sort/internal/config"
	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/engine/shell"
	"github.com/kevichi7/bench-sort/internal/httpapi"
	"github.com/kevichi7/bench-sort/internal/job"
	"github.com/kevichi7/bench-sort/internal/lifecycle"
	"github.com/kevichi7/bench-sort/internal/logging"
	"github.com/kevichi7/bench-sort/internal/metrics"
	"github.com/kevichi7/bench-sort/internal/plugin"
	"github.com/kevichi7/bench-sort/internal/ratelimit"
	"github.com/kevichi7/bench-sort/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(&cfg.Logging)
	logger.Info().Msg("starting bench-sort server")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	runner, mode := buildRunner(cfg, logger)

	var store job.Store
	var pool lifecycle.Stoppable

	if cfg.Durable() {
		pg, err := job.Open(cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open durable job store")
		}
		store = pg

		defaultTimeout := time.Duration(cfg.Limits.DefaultMs) * time.Millisecond
		pool = worker.New(pg, runner, cfg.Limits.Workers, defaultTimeout, m, logger)
		logger.Info().Int("workers", cfg.Limits.Workers).Msg("durable mode: worker pool configured")
	} else {
		defaultTimeout := time.Duration(cfg.Limits.DefaultMs) * time.Millisecond
		store = job.NewMemStore(runner, defaultTimeout, m, logger)
		logger.Info().Msg("in-memory job store configured")
	}
	defer store.Close()

	keySet, err := auth.Load(cfg.Auth.Keys, cfg.Auth.KeysFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load API keys")
	}

	limiter := ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, cfg.RateLimit.TrustXFF)
	go sweepLoop(limiter)

	router := httpapi.NewRouter(&httpapi.Deps{
		Limits:      cfg.Limits,
		Logger:      logger,
		Metrics:     m,
		Registry:    reg,
		Runner:      runner,
		Store:       store,
		RateLimiter: limiter,
		Auth:        keySet,
		Mode:        mode,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := lifecycle.Run(context.Background(), srv, store, pool, cfg.Server.ShutdownTimeout, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

// buildRunner selects the engine execution mode from cfg.Engine.Mode.
// If inprocess is requested but the plugin loader isn't usable on this
// platform, the in-process engine still runs (plugins are optional);
// a genuinely missing shell binary is the only forced fallback, per
// spec.md's Design Notes.
func buildRunner(cfg *config.Config, logger zerolog.Logger) (engine.Runner, string) {
	if cfg.Engine.Mode == "shell" {
		if cfg.Engine.Bin == "" {
			logger.Warn().Msg("engine.mode=shell but engine.bin is unset; falling back to inprocess")
		} else {
			return shell.New(cfg.Engine.Bin), "shell"
		}
	}

	loader := plugin.NewLoader()
	return engine.New(loader), "inprocess"
}

func sweepLoop(limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		limiter.Sweep(15 * time.Minute)
	}
}
