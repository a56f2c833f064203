package quote

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-jastip/internal/country"
)

// CalcInput carries the externally-resolved amounts a pure calculation
// needs: the international shipping cost for the chosen method and the
// payment gateway fee, both already converted into the selling currency.
type CalcInput struct {
	Params                Params
	Settings              country.Settings
	InternationalShipping decimal.Decimal
	GatewayFee            decimal.Decimal
	ExchangeRate          decimal.Decimal
	ExchangeRateSource    string
	Now                   time.Time
}

var oneHundred = decimal.NewFromInt(100)

// Calculate composes the itemized breakdown. It performs no I/O and is total
// for valid numeric input; malformed input is rejected with ErrInvalidInput.
func Calculate(in CalcInput) (Breakdown, error) {
	p := in.Params
	if err := validate(p); err != nil {
		return Breakdown{}, err
	}

	var totalItems, totalWeight decimal.Decimal
	for _, it := range p.Items {
		qty := decimal.NewFromInt(int64(it.Qty))
		totalItems = totalItems.Add(it.UnitPrice.Mul(qty))
		totalWeight = totalWeight.Add(it.WeightKg.Mul(qty))
	}

	customsPct := in.Settings.CustomsPercentDefault
	if p.CustomsPercent != nil {
		customsPct = *p.CustomsPercent
	}
	customs := totalItems.Add(in.InternationalShipping).Mul(customsPct).Div(oneHundred)

	preDiscount := totalItems.
		Add(p.SalesTax).
		Add(p.MerchantShipping).
		Add(in.InternationalShipping).
		Add(customs).
		Add(p.DomesticShipping).
		Add(p.HandlingCharge).
		Add(p.Insurance).
		Add(in.GatewayFee)

	// Discount never drives the subtotal negative; it is clamped, not rejected.
	discount := p.Discount
	if discount.GreaterThan(preDiscount) {
		discount = preDiscount
	}
	subTotal := preDiscount.Sub(discount)
	if subTotal.IsNegative() {
		subTotal = decimal.Zero
	}

	vat := subTotal.Mul(in.Settings.VATPercent).Div(oneHundred)
	finalTotal := subTotal.Add(vat)

	rate := in.ExchangeRate
	source := in.ExchangeRateSource
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
		source = "identity"
	}

	return Breakdown{
		TotalItemPrice:        totalItems,
		SalesTax:              p.SalesTax,
		MerchantShipping:      p.MerchantShipping,
		InternationalShipping: in.InternationalShipping,
		CustomsAndECS:         customs,
		DomesticShipping:      p.DomesticShipping,
		HandlingCharge:        p.HandlingCharge,
		Insurance:             p.Insurance,
		Discount:              discount,
		GatewayFee:            in.GatewayFee,
		VAT:                   vat,
		SubTotal:              subTotal,
		FinalTotal:            finalTotal,
		Currency:              p.Currency,
		ExchangeRate:          rate,
		ExchangeRateSource:    source,
		ShippingMethod:        p.ShippingMethod,
		TotalWeightKg:         totalWeight,
		CalculatedAt:          in.Now,
	}, nil
}

func validate(p Params) error {
	for _, it := range p.Items {
		if it.Qty < 1 {
			return fmt.Errorf("%w: item %q quantity must be >= 1", ErrInvalidInput, it.ID)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %q unit price is negative", ErrInvalidInput, it.ID)
		}
		if it.WeightKg.IsNegative() {
			return fmt.Errorf("%w: item %q weight is negative", ErrInvalidInput, it.ID)
		}
	}
	for name, v := range map[string]decimal.Decimal{
		"salesTax":         p.SalesTax,
		"merchantShipping": p.MerchantShipping,
		"domesticShipping": p.DomesticShipping,
		"handlingCharge":   p.HandlingCharge,
		"insurance":        p.Insurance,
		"discount":         p.Discount,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s is negative", ErrInvalidInput, name)
		}
	}
	if p.CustomsPercent != nil && p.CustomsPercent.IsNegative() {
		return fmt.Errorf("%w: customsPercent is negative", ErrInvalidInput)
	}
	return nil
}
