package freight

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownMethod is returned when a shipping method has no configured rate.
var ErrUnknownMethod = errors.New("freight: unknown shipping method")

// Quote is the resolved cost of carrying a parcel with a given method.
// Costs are quoted in the destination country's base currency; the
// orchestrator converts them into the selling currency.
type Quote struct {
	Method   string          `json:"method"`
	Cost     decimal.Decimal `json:"cost"`
	Currency string          `json:"currency"`
	ETD      string          `json:"etd,omitempty"`
}

// Resolver supplies the international shipping cost for a chosen method.
// The engine never picks a method itself, it only consumes the number.
type Resolver interface {
	Cost(ctx context.Context, method string, weightKg decimal.Decimal, origin, dest string) (Quote, error)
}

type rate struct {
	base  decimal.Decimal
	perKg decimal.Decimal
	etd   string
}

// Table is a static method rate card: cost = base + perKg * weight. An empty
// method resolves to zero cost, matching an unselected shipping option.
type Table struct {
	Currency string
	rates    map[string]rate
}

// NewTable returns a rate card with the standard two-tier service levels.
func NewTable(currency string) *Table {
	return &Table{
		Currency: currency,
		rates: map[string]rate{
			"economy": {base: decimal.NewFromInt(8), perKg: decimal.NewFromFloat(4.5), etd: "10-15"},
			"express": {base: decimal.NewFromInt(18), perKg: decimal.NewFromFloat(7.5), etd: "3-5"},
		},
	}
}

// SetRate adds or replaces a method.
func (t *Table) SetRate(method string, base, perKg decimal.Decimal, etd string) {
	t.rates[normalize(method)] = rate{base: base, perKg: perKg, etd: etd}
}

// Cost implements Resolver.
func (t *Table) Cost(_ context.Context, method string, weightKg decimal.Decimal, _, _ string) (Quote, error) {
	if strings.TrimSpace(method) == "" {
		return Quote{Currency: t.Currency}, nil
	}
	r, ok := t.rates[normalize(method)]
	if !ok {
		return Quote{}, ErrUnknownMethod
	}
	if weightKg.IsNegative() {
		weightKg = decimal.Zero
	}
	return Quote{
		Method:   normalize(method),
		Cost:     r.base.Add(r.perKg.Mul(weightKg)),
		Currency: t.Currency,
		ETD:      r.etd,
	}, nil
}

func normalize(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
