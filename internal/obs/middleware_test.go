package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatusRecorder(t *testing.T) {
	rr := httptest.NewRecorder()
	recorder := NewStatusRecorder(rr)
	recorder.WriteHeader(http.StatusTeapot)
	n, err := recorder.Write([]byte("short and stout"))
	require.NoError(t, err)
	require.Equal(t, 15, n)
	require.Equal(t, http.StatusTeapot, recorder.Status())
	require.Equal(t, int64(15), recorder.BytesWritten())
}

func TestHTTPObsRecordsPerRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics("jastip_test", nil, reg)

	r := chi.NewRouter()
	r.Use(HTTPObs{Metrics: metrics}.Middleware)
	r.Use(RoutePatternMiddleware)
	r.Get("/quotes/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/quotes/abc", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	count := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/quotes/{id}", "200"))
	require.Equal(t, 1.0, count)
}

func TestHTTPObsNilMetricsPassThrough(t *testing.T) {
	called := false
	h := HTTPObs{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, ParseBucketsCSV(""))
	require.Equal(t, []float64{5, 50, 500}, ParseBucketsCSV("5, 50,500"))
	require.Equal(t, []float64{10}, ParseBucketsCSV("10, junk, -3"))
}

func TestRoutePatternContext(t *testing.T) {
	ctx := WithRoutePattern(nil, "/quotes/{id}")
	require.Equal(t, "/quotes/{id}", RoutePatternFromContext(ctx))
	require.Empty(t, RoutePatternFromContext(nil))
}
