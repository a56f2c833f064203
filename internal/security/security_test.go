package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHeadersApplied(t *testing.T) {
	rr := httptest.NewRecorder()
	Headers{Enable: true}.Middleware(okHandler()).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")
}

func TestHeadersDisabled(t *testing.T) {
	rr := httptest.NewRecorder()
	Headers{}.Middleware(okHandler()).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, rr.Header().Get("X-Content-Type-Options"))
}

func TestBodyLimitRejectsOversized(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100)))
	BodyLimit{Max: 10}.Middleware(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBodyLimitAllowsSmall(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny"))
	BodyLimit{Max: 1024}.Middleware(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestBodyLimitZeroDisables(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 1<<20)))
	BodyLimit{}.Middleware(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
