package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	s := New(&ServerConfig{EnableMetrics: false})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestGetUnknownTracker(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/trackers/missing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPutThenGetTracker(t *testing.T) {
	_, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/trackers/build", strings.NewReader(`{"status":"green"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/trackers/build")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer resp.Body.Close()

	var state trackerState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !state.Initialized {
		t.Error("expected tracker to be initialized")
	}
	if !strings.Contains(string(state.Value), "green") {
		t.Errorf("unexpected value: %s", state.Value)
	}
}

func TestSilentPutDoesNotInitialize(t *testing.T) {
	s, ts := newTestServer(t)

	var notified int
	s.Registry().GetOrCreate("quiet").GetEveryChange(func(json.RawMessage) { notified++ })

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/trackers/quiet?silent=true", strings.NewReader(`1`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	resp.Body.Close()

	tr := s.Registry().Get("quiet")
	if tr.Initialized() {
		t.Error("silent put must not initialize the tracker")
	}
	if string(tr.ReadCached()) != "1" {
		t.Errorf("expected cached value 1, got %s", tr.ReadCached())
	}
	if notified != 0 {
		t.Errorf("silent put notified %d listeners", notified)
	}
}

func TestPutRejectsInvalidJSON(t *testing.T) {
	_, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/trackers/bad", strings.NewReader(`{not json`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListTrackers(t *testing.T) {
	s, ts := newTestServer(t)

	s.Registry().GetOrCreate("b")
	s.Registry().GetOrCreate("a")

	resp, err := http.Get(ts.URL + "/api/trackers")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Trackers []string `json:"trackers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Trackers) != 2 || body.Trackers[0] != "a" || body.Trackers[1] != "b" {
		t.Errorf("expected sorted [a b], got %v", body.Trackers)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(&ServerConfig{EnableMetrics: true, MetricsRegistry: reg})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	s.Registry().GetOrCreate("metric-probe")

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(body), "trackd_trackers 1") {
		t.Errorf("trackers gauge missing from exposition:\n%s", body)
	}
}
