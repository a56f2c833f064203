package quote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	return &Handler{
		Orchestrator: testOrchestrator(t),
		Validate:     validator.New(),
	}
}

const calculateBody = `{
	"items": [{"id": "a", "productName": "jacket", "unitPrice": "120", "weightKg": "0.8", "qty": 1}],
	"originCountry": "US",
	"destCountry": "ID",
	"currency": "USD",
	"shippingMethod": "economy",
	"paymentMethod": "card"
}`

func TestHandlerCalculate(t *testing.T) {
	h := testHandler(t)
	rr := httptest.NewRecorder()
	h.Calculate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", strings.NewReader(calculateBody)))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Data Breakdown `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Data.FinalTotal.IsPositive())
	require.True(t, resp.Data.GatewayFee.IsPositive())
	require.Equal(t, "USD", resp.Data.Currency)
	require.Equal(t, resp.Data.FinalTotal, resp.Data.FinalTotal.Round(2), "response amounts are rounded")
}

func TestHandlerCalculateBadJSON(t *testing.T) {
	h := testHandler(t)
	rr := httptest.NewRecorder()
	h.Calculate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", strings.NewReader("{nope")))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerCalculateValidation(t *testing.T) {
	h := testHandler(t)
	rr := httptest.NewRecorder()
	body := `{"items": [], "originCountry": "US", "destCountry": "ID", "currency": "x"}`
	h.Calculate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "VALIDATION")
}

func TestHandlerCalculateEmptyItems(t *testing.T) {
	h := testHandler(t)
	rr := httptest.NewRecorder()
	body := `{"items": [], "originCountry": "US", "destCountry": "ID", "currency": "USD"}`
	h.Calculate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Data Breakdown `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Data.TotalItemPrice.IsZero())
	require.True(t, resp.Data.FinalTotal.IsZero())
}

func TestHandlerCalculateUnknownCountry(t *testing.T) {
	h := testHandler(t)
	rr := httptest.NewRecorder()
	body := strings.Replace(calculateBody, `"destCountry": "ID"`, `"destCountry": "ZZ"`, 1)
	h.Calculate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "COUNTRY_NOT_CONFIGURED")
}

func TestHandlerEngineSettings(t *testing.T) {
	h := testHandler(t)
	h.DebounceWindow = 250 * time.Millisecond

	rr := httptest.NewRecorder()
	h.EngineSettings(rr, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/settings", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"debounceMs":250`)

	h.DebounceWindow = 0
	rr = httptest.NewRecorder()
	h.EngineSettings(rr, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/settings", nil))
	require.Contains(t, rr.Body.String(), `"debounceMs":800`)
}

func TestHandlerMetricsAndCacheStats(t *testing.T) {
	h := testHandler(t)

	rr := httptest.NewRecorder()
	h.Calculate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", strings.NewReader(calculateBody)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.MetricsStats(rr, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var metricsResp struct {
		Data Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &metricsResp))
	require.Equal(t, int64(1), metricsResp.Data.TotalCalculations)
	require.Equal(t, int64(1), metricsResp.Data.CacheMisses)

	rr = httptest.NewRecorder()
	h.CacheStats(rr, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/cache/stats", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var cacheResp struct {
		Data struct {
			Entries int `json:"entries"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cacheResp))
	require.Equal(t, 1, cacheResp.Data.Entries)
}

func TestHandlerClearCache(t *testing.T) {
	h := testHandler(t)

	rr := httptest.NewRecorder()
	h.Calculate(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", strings.NewReader(calculateBody)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, h.Orchestrator.Cache.Size())

	rr = httptest.NewRecorder()
	h.ClearCache(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/quotes/cache", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, 0, h.Orchestrator.Cache.Size())
}
