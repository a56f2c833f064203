package currency

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seededTable() *Table {
	t := NewTable("test-rates")
	t.SetRate("IDR", dec("16000"))
	t.SetRate("EUR", dec("0.92"))
	return t
}

func TestConvertSameCurrencyIsIdentity(t *testing.T) {
	conv, err := seededTable().Convert(context.Background(), dec("123.45"), "USD", "usd")
	require.NoError(t, err)
	require.True(t, conv.Amount.Equal(dec("123.45")))
	require.True(t, conv.Rate.Equal(dec("1")))
	require.Equal(t, SourceIdentity, conv.Source)
}

func TestConvertUSDPivot(t *testing.T) {
	conv, err := seededTable().Convert(context.Background(), dec("10"), "USD", "IDR")
	require.NoError(t, err)
	require.True(t, conv.Amount.Equal(dec("160000")), "got %s", conv.Amount)
	require.True(t, conv.Rate.Equal(dec("16000")))
	require.Equal(t, "test-rates", conv.Source)
}

func TestConvertCrossRate(t *testing.T) {
	conv, err := seededTable().Convert(context.Background(), dec("92"), "EUR", "USD")
	require.NoError(t, err)
	require.True(t, conv.Amount.Equal(dec("100")), "got %s", conv.Amount)
}

func TestConvertUnknownCurrency(t *testing.T) {
	_, err := seededTable().Convert(context.Background(), dec("10"), "USD", "XXX")
	require.ErrorIs(t, err, ErrConversion)
}

func TestReplaceSwapsRates(t *testing.T) {
	table := seededTable()
	table.Replace(map[string]decimal.Decimal{"JPY": dec("150")}, "fresh")

	_, err := table.Convert(context.Background(), dec("1"), "USD", "IDR")
	require.ErrorIs(t, err, ErrConversion, "old rates are gone after Replace")

	conv, err := table.Convert(context.Background(), dec("2"), "USD", "JPY")
	require.NoError(t, err)
	require.True(t, conv.Amount.Equal(dec("300")))
	require.Equal(t, "fresh", conv.Source)
}

func TestReplaceAlwaysKeepsUSD(t *testing.T) {
	table := NewTable("x")
	table.Replace(map[string]decimal.Decimal{"GBP": dec("0.79")}, "")
	conv, err := table.Convert(context.Background(), dec("79"), "GBP", "USD")
	require.NoError(t, err)
	require.True(t, conv.Amount.Equal(dec("100")))
}
