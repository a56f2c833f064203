package quote

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// fingerprintDoc is the canonical form hashed into a cache key. Field order
// is fixed by the struct, item order is normalized by sorting, and decimals
// are rendered through decimal.String so trailing zeros never produce a
// distinct key for a logically identical input.
type fingerprintDoc struct {
	Items          []fingerprintItem `json:"items"`
	Origin         string            `json:"origin"`
	Dest           string            `json:"dest"`
	Currency       string            `json:"currency"`
	ShippingMethod string            `json:"shippingMethod"`
	PaymentMethod  string            `json:"paymentMethod"`
	SalesTax       string            `json:"salesTax"`
	MerchantShip   string            `json:"merchantShipping"`
	DomesticShip   string            `json:"domesticShipping"`
	Handling       string            `json:"handlingCharge"`
	Insurance      string            `json:"insurance"`
	Discount       string            `json:"discount"`
	CustomsPercent string            `json:"customsPercent"`
}

type fingerprintItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	WeightKg  string `json:"weightKg"`
	Qty       int    `json:"qty"`
}

// Fingerprint derives the stable, order-independent cache key for a set of
// calculation parameters. Two logically identical inputs always hash to the
// same key regardless of item ordering or object identity.
func Fingerprint(p Params) string {
	doc := fingerprintDoc{
		Items:          make([]fingerprintItem, 0, len(p.Items)),
		Origin:         strings.ToUpper(strings.TrimSpace(p.OriginCountry)),
		Dest:           strings.ToUpper(strings.TrimSpace(p.DestCountry)),
		Currency:       strings.ToUpper(strings.TrimSpace(p.Currency)),
		ShippingMethod: strings.ToLower(strings.TrimSpace(p.ShippingMethod)),
		PaymentMethod:  strings.ToLower(strings.TrimSpace(p.PaymentMethod)),
		SalesTax:       p.SalesTax.String(),
		MerchantShip:   p.MerchantShipping.String(),
		DomesticShip:   p.DomesticShipping.String(),
		Handling:       p.HandlingCharge.String(),
		Insurance:      p.Insurance.String(),
		Discount:       p.Discount.String(),
		CustomsPercent: customsPercentKey(p.CustomsPercent),
	}
	for _, it := range p.Items {
		doc.Items = append(doc.Items, fingerprintItem{
			ID:        it.ID,
			Name:      it.ProductName,
			UnitPrice: it.UnitPrice.String(),
			WeightKg:  it.WeightKg.String(),
			Qty:       it.Qty,
		})
	}
	sort.Slice(doc.Items, func(i, j int) bool {
		a, b := doc.Items[i], doc.Items[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.UnitPrice != b.UnitPrice {
			return a.UnitPrice < b.UnitPrice
		}
		if a.WeightKg != b.WeightKg {
			return a.WeightKg < b.WeightKg
		}
		return a.Qty < b.Qty
	})
	encoded, err := json.Marshal(doc)
	if err != nil {
		// Params contain only plain values; marshal cannot fail for them.
		return ""
	}
	digest := sha256.Sum256(encoded)
	return hex.EncodeToString(digest[:])
}

func customsPercentKey(pct *decimal.Decimal) string {
	if pct == nil {
		return "default"
	}
	return pct.String()
}
