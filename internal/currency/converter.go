package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrConversion is returned when a rate for the requested pair cannot be
// resolved. The orchestrator retries this a bounded number of times before
// surfacing the failure.
var ErrConversion = errors.New("currency: rate lookup failed")

// SourceIdentity tags same-currency conversions, which always carry rate 1.
const SourceIdentity = "identity"

// Conversion is the result of converting an amount between two currencies.
// Rate and Source are stamped into the breakdown for auditability.
type Conversion struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
	Source string          `json:"source"`
}

// Converter converts an amount between two currency codes.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (Conversion, error)
}

// Table is an in-memory rate table pivoted on USD: for every currency it
// holds the number of units per 1 USD. Cross rates are derived from the
// pivot. Safe for concurrent use; the refresher replaces rates in place.
type Table struct {
	mu     sync.RWMutex
	perUSD map[string]decimal.Decimal
	source string
}

// NewTable creates a table tagged with the given rate source. USD itself is
// always present with rate 1.
func NewTable(source string) *Table {
	return &Table{
		perUSD: map[string]decimal.Decimal{"USD": decimal.NewFromInt(1)},
		source: source,
	}
}

// SetRate records how many units of code equal 1 USD.
func (t *Table) SetRate(code string, perUSD decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.perUSD[normalize(code)] = perUSD
}

// Replace swaps the whole rate set atomically and updates the source tag.
func (t *Table) Replace(perUSD map[string]decimal.Decimal, source string) {
	next := make(map[string]decimal.Decimal, len(perUSD)+1)
	next["USD"] = decimal.NewFromInt(1)
	for code, rate := range perUSD {
		next[normalize(code)] = rate
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.perUSD = next
	if source != "" {
		t.source = source
	}
}

// Convert implements Converter. Same-currency conversion is the identity
// with rate 1 and the sentinel source.
func (t *Table) Convert(_ context.Context, amount decimal.Decimal, from, to string) (Conversion, error) {
	from, to = normalize(from), normalize(to)
	if from == to {
		return Conversion{Amount: amount, Rate: decimal.NewFromInt(1), Source: SourceIdentity}, nil
	}
	t.mu.RLock()
	fromRate, fromOK := t.perUSD[from]
	toRate, toOK := t.perUSD[to]
	source := t.source
	t.mu.RUnlock()
	if !fromOK || !toOK || fromRate.IsZero() {
		return Conversion{}, fmt.Errorf("%w: %s->%s", ErrConversion, from, to)
	}
	// Multiply before dividing so cross rates stay exact; Div alone rounds
	// to shopspring's default precision and drifts (92 EUR at 0.92 must be
	// exactly 100 USD, not 99.999...).
	converted := amount.Mul(toRate).Div(fromRate)
	return Conversion{Amount: converted, Rate: toRate.Div(fromRate), Source: source}, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
