package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-jastip/internal/common"
	"github.com/noah-isme/backend-jastip/internal/country"
	"github.com/noah-isme/backend-jastip/internal/currency"
	"github.com/noah-isme/backend-jastip/internal/fees"
	"github.com/noah-isme/backend-jastip/internal/freight"
)

// CalculateRequest is the API payload for a quote calculation.
type CalculateRequest struct {
	// An empty item list is a valid draft quote: flat fees still apply and
	// the item subtotal is zero.
	Items            []ItemInput      `json:"items" validate:"dive"`
	OriginCountry    string           `json:"originCountry" validate:"required,len=2"`
	DestCountry      string           `json:"destCountry" validate:"required,len=2"`
	Currency         string           `json:"currency" validate:"required,len=3"`
	ShippingMethod   string           `json:"shippingMethod"`
	PaymentMethod    string           `json:"paymentMethod"`
	SalesTax         decimal.Decimal  `json:"salesTax"`
	MerchantShipping decimal.Decimal  `json:"merchantShipping"`
	DomesticShipping decimal.Decimal  `json:"domesticShipping"`
	HandlingCharge   decimal.Decimal  `json:"handlingCharge"`
	Insurance        decimal.Decimal  `json:"insurance"`
	Discount         decimal.Decimal  `json:"discount"`
	CustomsPercent   *decimal.Decimal `json:"customsPercent"`
}

// ItemInput is a single purchase line in the API payload.
type ItemInput struct {
	ID          string          `json:"id"`
	ProductName string          `json:"productName" validate:"required"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	WeightKg    decimal.Decimal `json:"weightKg"`
	Qty         int             `json:"qty" validate:"required,min=1"`
}

func (req CalculateRequest) params() Params {
	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, Item{
			ID:          it.ID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			WeightKg:    it.WeightKg,
			Qty:         it.Qty,
		})
	}
	return Params{
		Items:            items,
		OriginCountry:    req.OriginCountry,
		DestCountry:      req.DestCountry,
		Currency:         req.Currency,
		ShippingMethod:   req.ShippingMethod,
		PaymentMethod:    req.PaymentMethod,
		SalesTax:         req.SalesTax,
		MerchantShipping: req.MerchantShipping,
		DomesticShipping: req.DomesticShipping,
		HandlingCharge:   req.HandlingCharge,
		Insurance:        req.Insurance,
		Discount:         req.Discount,
		CustomsPercent:   req.CustomsPercent,
	}
}

// Handler exposes the quote engine over HTTP.
type Handler struct {
	Orchestrator *Orchestrator
	Validate     *validator.Validate
	// DebounceWindow is advertised to embedding clients so their reactive
	// controllers quiesce on the server-configured window. Zero applies
	// the controller default.
	DebounceWindow time.Duration
}

// Calculate handles POST /api/v1/quotes/calculate.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.Orchestrator == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote engine not configured", nil)
		return
	}
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid calculation input", validationDetails(err))
			return
		}
	}

	breakdown, err := h.Orchestrator.Run(r.Context(), req.params())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": breakdown.Rounded()})
}

// EngineSettings handles GET /api/v1/quotes/settings.
func (h *Handler) EngineSettings(w http.ResponseWriter, _ *http.Request) {
	debounce := h.DebounceWindow
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"debounceMs": debounce.Milliseconds(),
	}})
}

// MetricsStats handles GET /api/v1/quotes/metrics.
func (h *Handler) MetricsStats(w http.ResponseWriter, _ *http.Request) {
	var stats Stats
	if h.Orchestrator != nil {
		stats = h.Orchestrator.Metrics.Snapshot()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}

// CacheStats handles GET /api/v1/quotes/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	size := 0
	var stats Stats
	if h.Orchestrator != nil {
		size = h.Orchestrator.Cache.Size()
		stats = h.Orchestrator.Metrics.Snapshot()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"entries":      size,
		"maxEntries":   DefaultCacheSize,
		"cacheHits":    stats.CacheHits,
		"cacheMisses":  stats.CacheMisses,
		"cacheHitRate": stats.CacheHitRate,
	}})
}

// ClearCache handles DELETE /api/v1/quotes/cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.Orchestrator != nil && h.Orchestrator.Cache != nil {
		h.Orchestrator.Cache.Clear(r.Context())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, country.ErrNotConfigured):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUNTRY_NOT_CONFIGURED", "destination country has no shipping rules configured", nil)
	case errors.Is(err, ErrTimeout):
		common.JSONError(w, http.StatusGatewayTimeout, "TIMEOUT", "calculation timed out, please retry", nil)
	case errors.Is(err, currency.ErrConversion):
		common.JSONError(w, http.StatusBadGateway, "CONVERSION_FAILED", "exchange rate unavailable", nil)
	case errors.Is(err, freight.ErrUnknownMethod), errors.Is(err, fees.ErrUnknownMethod):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		if appErr, ok := common.AsAppError(err); ok {
			status := appErr.HTTPStatus
			if status == 0 {
				status = http.StatusInternalServerError
			}
			common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "calculation failed", nil)
	}
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
