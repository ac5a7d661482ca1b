package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestPrometheusRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()

	handler := Prometheus(WithRegistry(reg), WithNamespace("testns"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/trackers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("middleware altered the status: %d", rec.Code)
	}

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(metricsRec, metricsReq)

	body := metricsRec.Body.String()
	if !strings.Contains(body, `testns_http_requests_total{method="GET",status="418"} 1`) {
		t.Errorf("request counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, "testns_http_request_duration_seconds") {
		t.Errorf("duration histogram missing from exposition:\n%s", body)
	}
}

func TestPrometheusDefaultStatus(t *testing.T) {
	reg := prometheus.NewRegistry()

	handler := Prometheus(WithRegistry(reg), WithNamespace("defaults"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Implicit 200 via Write.
			w.Write([]byte("ok"))
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	metricsRec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(metricsRec.Body.String(), `status="200"`) {
		t.Error("implicit 200 not recorded")
	}
}

func TestOpenTelemetryPassthrough(t *testing.T) {
	var called bool
	handler := OpenTelemetry()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !called {
		t.Fatal("handler not invoked")
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("unexpected status: %d", rec.Code)
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	handler := OpenTelemetry(WithRequestFilter(func(r *http.Request) bool {
		return !strings.HasPrefix(r.URL.Path, "/healthz")
	}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("filtered request failed: %d", rec.Code)
	}
}
