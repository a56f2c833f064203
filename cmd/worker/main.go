package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-jastip/internal/config"
	"github.com/noah-isme/backend-jastip/internal/country"
	"github.com/noah-isme/backend-jastip/internal/currency"
	"github.com/noah-isme/backend-jastip/internal/lock"
	"github.com/noah-isme/backend-jastip/internal/obs"
	"github.com/noah-isme/backend-jastip/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "jastip"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.QueryTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	refresher := &currency.Refresher{
		Provider: &currency.HTTPProvider{
			BaseURL:   cfg.RatesBaseURL,
			APIKey:    cfg.RatesAPIKey,
			Breaker:   resilience.NewBreaker(5, 30*time.Second).WithTarget("rates-api").WithLogger(logger),
			RetryBase: cfg.RetryBase,
			Jitter:    0.2,
			Logger:    &logger,
		},
		Table:       currency.NewTable("openrates"),
		R:           redisClient,
		Source:      "openrates",
		SnapshotTTL: cfg.RatesSnapshotTTL,
		Logger:      &logger,
	}
	warmer := &country.Warmer{
		Store:  country.NewStore(pool),
		Cached: country.Cached{Next: country.NewStore(pool), R: redisClient, TTL: cfg.CountryCacheTTL},
		Logger: &logger,
	}

	connOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for asynq")
	}

	locker := lock.Locker{R: redisClient}

	mux := asynq.NewServeMux()
	mux.HandleFunc(currency.TaskRatesRefresh, func(ctx context.Context, task *asynq.Task) error {
		// Single-flight across worker replicas; a concurrent tick is skipped,
		// not queued.
		err := locker.TryWithLock(ctx, "lock:rates:refresh", time.Minute, func(ctx context.Context) error {
			return refresher.HandleRefresh(ctx, task)
		})
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil
		}
		recordRefresh(err)
		return err
	})
	mux.HandleFunc(country.TaskWarmSettings, warmer.HandleWarm)

	srv := asynq.NewServer(connOpt, asynq.Config{
		Concurrency: 5,
		Logger:      asynqLogger{logger: logger},
	})

	scheduler := asynq.NewScheduler(connOpt, &asynq.SchedulerOpts{})
	refreshSpec := fmt.Sprintf("@every %s", cfg.RatesRefreshInterval)
	if _, err := scheduler.Register(refreshSpec, currency.NewRefreshTask()); err != nil {
		logger.Fatal().Err(err).Msg("register rates refresh schedule")
	}
	if _, err := scheduler.Register("@every 30m", country.NewWarmTask()); err != nil {
		logger.Fatal().Err(err).Msg("register country warm schedule")
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	// Refresh immediately so a fresh deployment serves conversions without
	// waiting for the first scheduled tick.
	if cfg.RatesBaseURL != "" {
		if err := refresher.HandleRefresh(ctx, currency.NewRefreshTask()); err != nil {
			logger.Warn().Err(err).Msg("initial rates refresh failed")
		}
	}

	go func() {
		<-ctx.Done()
		scheduler.Shutdown()
		srv.Shutdown()
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func recordRefresh(err error) {
	if obs.RatesRefreshTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.RatesRefreshTotal.WithLabelValues(result).Inc()
}

// asynqLogger adapts zerolog to asynq's logging interface.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
