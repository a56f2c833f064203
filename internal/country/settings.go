package country

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned when no customs/tax rules exist for the
// requested destination and no fallback applies.
var ErrNotConfigured = errors.New("country: destination not configured")

// Settings is the immutable per-destination rule snapshot used by a single
// calculation. The engine never mutates a Settings value after resolution.
type Settings struct {
	Code                  string          `json:"code"`
	Currency              string          `json:"currency"`
	CustomsPercentDefault decimal.Decimal `json:"customsPercentDefault"`
	VATPercent            decimal.Decimal `json:"vatPercent"`
	RateToUSD             decimal.Decimal `json:"rateToUsd"`
	RateSource            string          `json:"rateSource"`
}

// Resolver looks up destination rules by ISO country code.
type Resolver interface {
	Settings(ctx context.Context, code string) (Settings, error)
}

// Static is an in-memory resolver seeded from configuration. It backs tests
// and development environments where no database is available.
type Static struct {
	mu    sync.RWMutex
	table map[string]Settings
}

// NewStatic builds a resolver from the provided seed rows.
func NewStatic(seed []Settings) *Static {
	s := &Static{table: make(map[string]Settings, len(seed))}
	for _, row := range seed {
		s.table[normalizeCode(row.Code)] = row
	}
	return s
}

// Settings implements Resolver.
func (s *Static) Settings(_ context.Context, code string) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.table[normalizeCode(code)]
	if !ok {
		return Settings{}, ErrNotConfigured
	}
	return row, nil
}

// Upsert adds or replaces a destination row.
func (s *Static) Upsert(row Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[normalizeCode(row.Code)] = row
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
