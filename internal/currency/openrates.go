package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-jastip/internal/resilience"
)

// HTTPProvider fetches USD-pivot exchange rates from an external rates API.
// Calls go through a circuit breaker with bounded jittered retries; a dead
// rates endpoint must not stall the refresh worker.
type HTTPProvider struct {
	BaseURL     string
	APIKey      string
	Client      *http.Client
	Breaker     *resilience.Breaker
	MaxAttempts int
	RetryBase   time.Duration
	Jitter      float64
	Logger      *zerolog.Logger
}

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FetchRates returns the current units-per-USD table.
func (p *HTTPProvider) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	if p == nil || p.BaseURL == "" {
		return nil, fmt.Errorf("%w: rates provider not configured", ErrConversion)
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryBase := p.RetryBase
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if p.Breaker != nil && !p.Breaker.Allow() {
			lastErr = resilience.ErrOpenCircuit
			break
		}
		rates, err := p.fetchOnce(ctx)
		if p.Breaker != nil {
			p.Breaker.Report(err == nil)
		}
		if err == nil {
			return rates, nil
		}
		lastErr = err
		if p.Logger != nil {
			p.Logger.Warn().Err(err).Int("attempt", attempt).Msg("rates_fetch_failed")
		}
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(resilience.Backoff(retryBase, attempt, p.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrConversion, lastErr)
}

func (p *HTTPProvider) fetchOnce(ctx context.Context) (map[string]decimal.Decimal, error) {
	endpoint, err := url.JoinPath(p.BaseURL, "latest")
	if err != nil {
		return nil, err
	}
	endpoint += "?base=USD"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates api returned %s", resp.Status)
	}
	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding rates payload: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rates payload is empty")
	}
	return payload.Rates, nil
}
