package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TaskRatesRefresh is the asynq task type handled by the worker.
const TaskRatesRefresh = "rates:refresh"

const snapshotKey = "currency:rates:usd"

// Refresher pulls the external rates provider and publishes the result to
// the in-process table and a Redis snapshot so API replicas can warm up
// without hitting the provider.
type Refresher struct {
	Provider    *HTTPProvider
	Table       *Table
	R           *redis.Client
	Source      string
	SnapshotTTL time.Duration
	Logger      *zerolog.Logger
}

// NewRefreshTask builds the periodic task registered with the scheduler.
func NewRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskRatesRefresh, nil)
}

// HandleRefresh implements the asynq handler for TaskRatesRefresh.
func (r *Refresher) HandleRefresh(ctx context.Context, _ *asynq.Task) error {
	if r == nil || r.Provider == nil || r.Table == nil {
		return fmt.Errorf("rates refresher not configured")
	}
	rates, err := r.Provider.FetchRates(ctx)
	if err != nil {
		return fmt.Errorf("refreshing rates: %w", err)
	}
	r.Table.Replace(rates, r.Source)
	r.snapshot(ctx, rates)
	if r.Logger != nil {
		r.Logger.Info().Int("currencies", len(rates)).Msg("rates_refreshed")
	}
	return nil
}

// WarmFromSnapshot seeds the table from the last published Redis snapshot.
// Used at API startup so conversions work before the first refresh lands.
func (r *Refresher) WarmFromSnapshot(ctx context.Context) bool {
	if r == nil || r.R == nil || r.Table == nil {
		return false
	}
	data, err := r.R.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return false
	}
	var rates map[string]decimal.Decimal
	if err := json.Unmarshal(data, &rates); err != nil || len(rates) == 0 {
		return false
	}
	r.Table.Replace(rates, r.Source)
	return true
}

func (r *Refresher) snapshot(ctx context.Context, rates map[string]decimal.Decimal) {
	if r.R == nil {
		return
	}
	data, err := json.Marshal(rates)
	if err != nil {
		return
	}
	ttl := r.SnapshotTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := r.R.Set(ctx, snapshotKey, data, ttl).Err(); err != nil && r.Logger != nil {
		r.Logger.Warn().Err(err).Msg("rates_snapshot_store_failed")
	}
}
