package quote

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-jastip/internal/country"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

var fixedNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func usSettings() country.Settings {
	return country.Settings{
		Code:                  "ID",
		Currency:              "IDR",
		CustomsPercentDefault: dec("6"),
		VATPercent:            dec("0"),
	}
}

func TestCalculateEmptyItems(t *testing.T) {
	out, err := Calculate(CalcInput{
		Params:   Params{Currency: "USD"},
		Settings: usSettings(),
		Now:      fixedNow,
	})
	require.NoError(t, err)
	require.True(t, out.TotalItemPrice.IsZero())
	require.True(t, out.SubTotal.IsZero())
	require.True(t, out.FinalTotal.IsZero())
	require.True(t, out.TotalWeightKg.IsZero())
}

func TestCalculateDefaultCustomsPercent(t *testing.T) {
	out, err := Calculate(CalcInput{
		Params: Params{
			Items:    []Item{{ID: "a", ProductName: "sneakers", UnitPrice: dec("100"), Qty: 1}},
			Currency: "USD",
		},
		Settings: usSettings(),
		Now:      fixedNow,
	})
	require.NoError(t, err)
	require.True(t, out.TotalItemPrice.Equal(dec("100")), "got %s", out.TotalItemPrice)
	require.True(t, out.CustomsAndECS.Equal(dec("6")), "got %s", out.CustomsAndECS)
	require.True(t, out.SubTotal.Equal(dec("106")), "got %s", out.SubTotal)
	require.True(t, out.FinalTotal.Equal(dec("106")), "got %s", out.FinalTotal)
}

func TestCalculateCustomsOverride(t *testing.T) {
	out, err := Calculate(CalcInput{
		Params: Params{
			Items:          []Item{{ID: "a", UnitPrice: dec("100"), Qty: 1}},
			Currency:       "USD",
			CustomsPercent: decPtr("0"),
		},
		Settings: usSettings(),
		Now:      fixedNow,
	})
	require.NoError(t, err)
	require.True(t, out.CustomsAndECS.IsZero())
	require.True(t, out.SubTotal.Equal(dec("100")))
}

func TestCalculateCustomsIncludesInternationalShipping(t *testing.T) {
	out, err := Calculate(CalcInput{
		Params: Params{
			Items:    []Item{{ID: "a", UnitPrice: dec("100"), Qty: 2}},
			Currency: "USD",
		},
		Settings:              usSettings(),
		InternationalShipping: dec("50"),
		Now:                   fixedNow,
	})
	require.NoError(t, err)
	// (200 + 50) * 6%
	require.True(t, out.CustomsAndECS.Equal(dec("15")), "got %s", out.CustomsAndECS)
}

func TestCalculateDiscountClamped(t *testing.T) {
	out, err := Calculate(CalcInput{
		Params: Params{
			Items:    []Item{{ID: "a", UnitPrice: dec("50"), Qty: 1}},
			Currency: "USD",
			Discount: dec("200"),
		},
		Settings: country.Settings{Code: "SG", Currency: "SGD"},
		Now:      fixedNow,
	})
	require.NoError(t, err)
	require.True(t, out.SubTotal.IsZero(), "subtotal clamped to zero, got %s", out.SubTotal)
	require.True(t, out.FinalTotal.IsZero())
	require.True(t, out.Discount.Equal(dec("50")), "discount clamped to pre-discount sum, got %s", out.Discount)
}

func TestCalculateVATAppliedAfterDiscount(t *testing.T) {
	out, err := Calculate(CalcInput{
		Params: Params{
			Items:    []Item{{ID: "a", UnitPrice: dec("110"), Qty: 1}},
			Currency: "EUR",
			Discount: dec("10"),
		},
		Settings: country.Settings{Code: "DE", Currency: "EUR", VATPercent: dec("19")},
		Now:      fixedNow,
	})
	require.NoError(t, err)
	require.True(t, out.SubTotal.Equal(dec("100")))
	require.True(t, out.VAT.Equal(dec("19")))
	require.True(t, out.FinalTotal.Equal(dec("119")))
}

func TestCalculateFinalTotalIsSubTotalPlusVAT(t *testing.T) {
	out, err := Calculate(CalcInput{
		Params: Params{
			Items: []Item{
				{ID: "a", UnitPrice: dec("12.99"), WeightKg: dec("0.4"), Qty: 3},
				{ID: "b", UnitPrice: dec("7.45"), WeightKg: dec("1.1"), Qty: 1},
			},
			Currency:         "USD",
			SalesTax:         dec("3.12"),
			MerchantShipping: dec("4.99"),
			DomesticShipping: dec("2.50"),
			HandlingCharge:   dec("1.00"),
			Insurance:        dec("0.75"),
			Discount:         dec("5"),
		},
		Settings:              country.Settings{Code: "ID", Currency: "IDR", CustomsPercentDefault: dec("7.5"), VATPercent: dec("11")},
		InternationalShipping: dec("21.35"),
		GatewayFee:            dec("1.83"),
		Now:                   fixedNow,
	})
	require.NoError(t, err)
	require.True(t, out.FinalTotal.Equal(out.SubTotal.Add(out.VAT)))
	require.False(t, out.SubTotal.IsNegative())
}

func TestCalculateTotalsInvariantRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(20260831))
	cents := func(max int) decimal.Decimal {
		return decimal.New(int64(rng.Intn(max)), -2)
	}

	for i := 0; i < 300; i++ {
		items := make([]Item, rng.Intn(4))
		for j := range items {
			items[j] = Item{
				ID:        string(rune('a' + j)),
				UnitPrice: cents(50000),
				WeightKg:  cents(1000),
				Qty:       1 + rng.Intn(5),
			}
		}
		in := CalcInput{
			Params: Params{
				Items:            items,
				Currency:         "USD",
				SalesTax:         cents(2000),
				MerchantShipping: cents(3000),
				DomesticShipping: cents(1500),
				HandlingCharge:   cents(1000),
				Insurance:        cents(500),
				Discount:         cents(100000),
			},
			Settings: country.Settings{
				Code:                  "ID",
				Currency:              "IDR",
				CustomsPercentDefault: cents(3000),
				VATPercent:            cents(2500),
			},
			InternationalShipping: cents(10000),
			GatewayFee:            cents(2000),
			Now:                   fixedNow,
		}
		out, err := Calculate(in)
		require.NoError(t, err)
		require.True(t, out.FinalTotal.Equal(out.SubTotal.Add(out.VAT)),
			"case %d: final %s != sub %s + vat %s", i, out.FinalTotal, out.SubTotal, out.VAT)
		require.False(t, out.SubTotal.IsNegative(), "case %d", i)
		require.False(t, out.Discount.GreaterThan(in.Params.Discount), "case %d: reported discount exceeds requested", i)
	}
}

func TestCalculateDeterministic(t *testing.T) {
	in := CalcInput{
		Params: Params{
			Items:    []Item{{ID: "a", UnitPrice: dec("19.99"), WeightKg: dec("0.2"), Qty: 2}},
			Currency: "USD",
			SalesTax: dec("1.60"),
		},
		Settings:              usSettings(),
		InternationalShipping: dec("12.00"),
		ExchangeRate:          dec("1.0845"),
		ExchangeRateSource:    "openexchangerates",
		Now:                   fixedNow,
	}
	first, err := Calculate(in)
	require.NoError(t, err)
	second, err := Calculate(in)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCalculateIdentityRateWhenUnset(t *testing.T) {
	out, err := Calculate(CalcInput{
		Params:   Params{Items: []Item{{ID: "a", UnitPrice: dec("10"), Qty: 1}}, Currency: "USD"},
		Settings: country.Settings{Code: "US", Currency: "USD"},
		Now:      fixedNow,
	})
	require.NoError(t, err)
	require.True(t, out.ExchangeRate.Equal(dec("1")))
	require.Equal(t, "identity", out.ExchangeRateSource)
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		params Params
	}{
		{"zero quantity", Params{Items: []Item{{ID: "a", UnitPrice: dec("10"), Qty: 0}}}},
		{"negative price", Params{Items: []Item{{ID: "a", UnitPrice: dec("-1"), Qty: 1}}}},
		{"negative weight", Params{Items: []Item{{ID: "a", WeightKg: dec("-0.5"), Qty: 1}}}},
		{"negative discount", Params{Discount: dec("-3")}},
		{"negative sales tax", Params{SalesTax: dec("-1")}},
		{"negative customs override", Params{CustomsPercent: decPtr("-6")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(CalcInput{Params: tc.params, Settings: usSettings(), Now: fixedNow})
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRoundedTwoDecimals(t *testing.T) {
	b := Breakdown{
		TotalItemPrice: dec("10.005"),
		SubTotal:       dec("10.004"),
		FinalTotal:     dec("11.1049"),
	}
	r := b.Rounded()
	require.Equal(t, "10.01", r.TotalItemPrice.StringFixed(2))
	require.Equal(t, "10.00", r.SubTotal.StringFixed(2))
	require.Equal(t, "11.10", r.FinalTotal.StringFixed(2))
}
