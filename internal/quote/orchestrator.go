package quote

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-jastip/internal/country"
	"github.com/noah-isme/backend-jastip/internal/currency"
	"github.com/noah-isme/backend-jastip/internal/fees"
	"github.com/noah-isme/backend-jastip/internal/freight"
	"github.com/noah-isme/backend-jastip/internal/obs"
	"github.com/noah-isme/backend-jastip/internal/resilience"
)

// Orchestrator composes rule resolution, currency conversion and the pure
// calculator into one callable unit. It owns the cache lookup and the
// per-call performance accounting; collaborators are injected interfaces so
// the engine stays free of transport concerns.
type Orchestrator struct {
	Countries country.Resolver
	Rates     currency.Converter
	Freight   freight.Resolver
	Fees      fees.Resolver
	Cache     *Cache
	Metrics   *Metrics

	// Timeout bounds the resolver sub-calls of a single run. Zero applies
	// the 10s default.
	Timeout time.Duration
	// ConversionRetries is the number of extra attempts for a failed rate
	// lookup before the error surfaces.
	ConversionRetries int
	RetryBase         time.Duration
	Logger            *zerolog.Logger
	Now               func() time.Time
}

const defaultTimeout = 10 * time.Second

// Run resolves and computes the breakdown for the given parameters. A cache
// hit bypasses every resolver. Failed attempts are never cached.
func (o *Orchestrator) Run(ctx context.Context, p Params) (Breakdown, error) {
	if o == nil || o.Countries == nil || o.Rates == nil {
		return Breakdown{}, errors.New("quote: orchestrator not configured")
	}
	fp := Fingerprint(p)
	if o.Cache != nil {
		if b, ok := o.Cache.Get(ctx, fp); ok {
			o.Metrics.RecordHit()
			obs.ObserveQuoteCalc("hit", 0)
			return b, nil
		}
	}

	start := time.Now()
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b, err := o.compute(runCtx, p)
	if err != nil {
		elapsed := time.Since(start)
		o.Metrics.RecordMiss(elapsed)
		obs.ObserveQuoteCalc("error", elapsed)
		if o.Logger != nil {
			o.Logger.Warn().Err(err).Str("dest", p.DestCountry).Msg("quote_calculation_failed")
		}
		return Breakdown{}, err
	}

	if o.Cache != nil {
		o.Cache.Put(ctx, fp, b)
	}
	elapsed := time.Since(start)
	o.Metrics.RecordMiss(elapsed)
	obs.ObserveQuoteCalc("miss", elapsed)
	return b, nil
}

func (o *Orchestrator) compute(ctx context.Context, p Params) (Breakdown, error) {
	settings, err := o.Countries.Settings(ctx, p.DestCountry)
	if err != nil {
		return Breakdown{}, o.stageError(StageCountry, err)
	}

	fq := freight.Quote{Currency: settings.Currency}
	if o.Freight != nil {
		fq, err = o.Freight.Cost(ctx, p.ShippingMethod, totalWeight(p.Items), p.OriginCountry, p.DestCountry)
		if err != nil {
			return Breakdown{}, o.stageError(StageFreight, err)
		}
	}
	freightCurrency := fq.Currency
	if freightCurrency == "" {
		freightCurrency = settings.Currency
	}

	// One conversion per calculation: the freight cost moves from the
	// destination's base currency into the selling currency and the rate is
	// stamped into the breakdown. Partial sums are never reconverted.
	conv, err := o.convertWithRetry(ctx, fq.Cost, freightCurrency, p.Currency)
	if err != nil {
		return Breakdown{}, o.stageError(StageConversion, err)
	}

	now := time.Now()
	if o.Now != nil {
		now = o.Now()
	}
	input := CalcInput{
		Params:                p,
		Settings:              settings,
		InternationalShipping: conv.Amount,
		ExchangeRate:          conv.Rate,
		ExchangeRateSource:    conv.Source,
		Now:                   now,
	}

	preliminary, err := Calculate(input)
	if err != nil {
		// Precondition failures surface as-is; they are not calculation
		// failures and must never be retried.
		return Breakdown{}, err
	}

	if o.Fees != nil {
		fee, err := o.Fees.Fee(ctx, p.PaymentMethod, preliminary.SubTotal)
		if err != nil {
			return Breakdown{}, o.stageError(StageFees, err)
		}
		if !fee.IsZero() {
			input.GatewayFee = fee
			return Calculate(input)
		}
	}
	return preliminary, nil
}

func (o *Orchestrator) convertWithRetry(ctx context.Context, amount decimal.Decimal, from, to string) (currency.Conversion, error) {
	attempts := o.ConversionRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	retryBase := o.RetryBase
	if retryBase <= 0 {
		retryBase = 50 * time.Millisecond
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conv, err := o.Rates.Convert(ctx, amount, from, to)
		if err == nil {
			return conv, nil
		}
		lastErr = err
		if !errors.Is(err, currency.ErrConversion) || attempt == attempts {
			break
		}
		timer := time.NewTimer(resilience.Backoff(retryBase, attempt, 0.2))
		select {
		case <-ctx.Done():
			timer.Stop()
			return currency.Conversion{}, ctx.Err()
		case <-timer.C:
		}
	}
	return currency.Conversion{}, lastErr
}

// stageError converts resolver failures into the typed taxonomy. Context
// expiry maps to ErrTimeout so callers can distinguish a slow dependency
// from missing data.
func (o *Orchestrator) stageError(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return calcError(stage, ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return calcError(stage, err)
	}
	return calcError(stage, err)
}

func totalWeight(items []Item) decimal.Decimal {
	var total decimal.Decimal
	for _, it := range items {
		if it.Qty < 1 {
			continue
		}
		total = total.Add(it.WeightKg.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total
}
