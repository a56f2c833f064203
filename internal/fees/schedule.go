package fees

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownMethod is returned when no fee rule exists for a payment method.
var ErrUnknownMethod = errors.New("fees: unknown payment method")

// Resolver supplies the payment gateway fee for a method and amount.
type Resolver interface {
	Fee(ctx context.Context, method string, amount decimal.Decimal) (decimal.Decimal, error)
}

// Rule is a gateway fee rule: a percentage in basis points plus a fixed part.
type Rule struct {
	Bps   int64
	Fixed decimal.Decimal
}

// Schedule is a static fee card keyed by payment method. An empty method
// carries no fee, matching a quote with no payment option chosen yet.
type Schedule struct {
	rules map[string]Rule
}

// NewSchedule returns the default card/wallet fee card.
func NewSchedule() *Schedule {
	return &Schedule{
		rules: map[string]Rule{
			"card":   {Bps: 290, Fixed: decimal.NewFromFloat(0.30)},
			"paypal": {Bps: 340, Fixed: decimal.NewFromFloat(0.30)},
			"wire":   {Bps: 0, Fixed: decimal.NewFromInt(10)},
		},
	}
}

// SetRule adds or replaces a fee rule.
func (s *Schedule) SetRule(method string, rule Rule) {
	s.rules[normalize(method)] = rule
}

// Fee implements Resolver.
func (s *Schedule) Fee(_ context.Context, method string, amount decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(method) == "" {
		return decimal.Zero, nil
	}
	rule, ok := s.rules[normalize(method)]
	if !ok {
		return decimal.Zero, ErrUnknownMethod
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	pct := amount.Mul(decimal.NewFromInt(rule.Bps)).Div(decimal.NewFromInt(10000))
	return pct.Add(rule.Fixed), nil
}

func normalize(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
