package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"goal-conditioned-hrl/internal/config"
	"goal-conditioned-hrl/internal/envs"
	"goal-conditioned-hrl/internal/metrics"
	"goal-conditioned-hrl/internal/trainer"
)

func main() {
	var (
		configPath     = flag.String("config", "", "path to YAML training config (defaults apply when empty)")
		totalTimesteps = flag.Int("total-timesteps", 1_000_000, "environment steps to train for")
		envDim         = flag.Int("env-dim", 2, "point-mass environment dimensionality")
		metricsAddr    = flag.String("metrics-addr", "", "address for the Prometheus /metrics endpoint (disabled when empty)")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("configuration error: %v", err)
		}
	}

	logger, err := newLogger(cfg.Algorithm.Verbose)
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer logger.Sync()

	collector := metrics.NewCollector("hrl", prometheus.DefaultRegisterer)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	env := envs.NewPointMass(*envDim, rand.New(rand.NewSource(cfg.Algorithm.Seed)))
	evalEnv := envs.NewPointMass(*envDim, rand.New(rand.NewSource(cfg.Algorithm.Seed+1)))

	algo, err := trainer.New(cfg, env, trainer.Options{
		EvalEnv: evalEnv,
		Logger:  logger,
		Metrics: collector,
	})
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := algo.Learn(ctx, *totalTimesteps); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("training failed", zap.Error(err))
	}
	logger.Info("training finished")
}

func newLogger(verbose int) (*zap.Logger, error) {
	if verbose == 0 {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	if verbose >= 2 {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
