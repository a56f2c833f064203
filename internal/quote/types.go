package quote

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a single purchase line submitted with a quote draft. Items are
// copied into the calculation input, so later edits to the draft never
// mutate an already-computed breakdown.
type Item struct {
	ID          string          `json:"id"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	WeightKg    decimal.Decimal `json:"weightKg"`
	Qty         int             `json:"qty"`
}

// Params is the full input to a quote calculation. All money fields are
// absolute amounts in the selling currency, already entered by the customer;
// CustomsPercent is a rate and overrides the destination default when set.
type Params struct {
	Items            []Item           `json:"items"`
	OriginCountry    string           `json:"originCountry"`
	DestCountry      string           `json:"destCountry"`
	Currency         string           `json:"currency"`
	ShippingMethod   string           `json:"shippingMethod"`
	PaymentMethod    string           `json:"paymentMethod"`
	SalesTax         decimal.Decimal  `json:"salesTax"`
	MerchantShipping decimal.Decimal  `json:"merchantShipping"`
	DomesticShipping decimal.Decimal  `json:"domesticShipping"`
	HandlingCharge   decimal.Decimal  `json:"handlingCharge"`
	Insurance        decimal.Decimal  `json:"insurance"`
	Discount         decimal.Decimal  `json:"discount"`
	CustomsPercent   *decimal.Decimal `json:"customsPercent,omitempty"`
}

// Breakdown is the itemized result of one calculation. Every monetary field
// is expressed in the selling currency; conversions happen before the
// breakdown is composed, never after.
type Breakdown struct {
	TotalItemPrice        decimal.Decimal `json:"totalItemPrice"`
	SalesTax              decimal.Decimal `json:"salesTax"`
	MerchantShipping      decimal.Decimal `json:"merchantShipping"`
	InternationalShipping decimal.Decimal `json:"internationalShipping"`
	CustomsAndECS         decimal.Decimal `json:"customsAndEcs"`
	DomesticShipping      decimal.Decimal `json:"domesticShipping"`
	HandlingCharge        decimal.Decimal `json:"handlingCharge"`
	Insurance             decimal.Decimal `json:"insurance"`
	Discount              decimal.Decimal `json:"discount"`
	GatewayFee            decimal.Decimal `json:"gatewayFee"`
	VAT                   decimal.Decimal `json:"vat"`
	SubTotal              decimal.Decimal `json:"subTotal"`
	FinalTotal            decimal.Decimal `json:"finalTotal"`

	Currency           string          `json:"currency"`
	ExchangeRate       decimal.Decimal `json:"exchangeRate"`
	ExchangeRateSource string          `json:"exchangeRateSource"`
	ShippingMethod     string          `json:"shippingMethod,omitempty"`
	TotalWeightKg      decimal.Decimal `json:"totalWeightKg"`
	CalculatedAt       time.Time       `json:"calculatedAt"`
}

// Rounded returns a copy with every money field rounded to 2 decimal places,
// half up. Internal accumulation keeps full precision; rounding is applied
// once at emission so intermediate steps never compound rounding error.
func (b Breakdown) Rounded() Breakdown {
	r := b
	r.TotalItemPrice = round2(b.TotalItemPrice)
	r.SalesTax = round2(b.SalesTax)
	r.MerchantShipping = round2(b.MerchantShipping)
	r.InternationalShipping = round2(b.InternationalShipping)
	r.CustomsAndECS = round2(b.CustomsAndECS)
	r.DomesticShipping = round2(b.DomesticShipping)
	r.HandlingCharge = round2(b.HandlingCharge)
	r.Insurance = round2(b.Insurance)
	r.Discount = round2(b.Discount)
	r.GatewayFee = round2(b.GatewayFee)
	r.VAT = round2(b.VAT)
	r.SubTotal = round2(b.SubTotal)
	r.FinalTotal = round2(b.FinalTotal)
	return r
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
