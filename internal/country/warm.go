package country

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskWarmSettings is the asynq task type that pre-warms the settings cache.
const TaskWarmSettings = "countries:warm"

// NewWarmTask builds the periodic warm task registered with the scheduler.
func NewWarmTask() *asynq.Task {
	return asynq.NewTask(TaskWarmSettings, nil)
}

// Warmer loads every configured destination through the cached resolver so
// API replicas resolve from Redis instead of the database.
type Warmer struct {
	Store  *Store
	Cached Cached
	Logger *zerolog.Logger
}

// HandleWarm implements the asynq handler for TaskWarmSettings.
func (w *Warmer) HandleWarm(ctx context.Context, _ *asynq.Task) error {
	if w == nil || w.Store == nil {
		return fmt.Errorf("country warmer not configured")
	}
	rows, err := w.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("warming country settings: %w", err)
	}
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		codes = append(codes, row.Code)
	}
	w.Cached.Warm(ctx, codes)
	if w.Logger != nil {
		w.Logger.Info().Int("countries", len(codes)).Msg("country_settings_warmed")
	}
	return nil
}
