package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/freezerx/freezerd/internal/engine"
	"github.com/freezerx/freezerd/internal/status"
)

func newTestServer(t *testing.T, applyCfg ConfigFunc) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		TickMs:   1000,
		Broker:   "tcp://192.168.1.200:1883",
		HTTPPort: ":80",
	}
	tr := status.NewTracker(start, cfg)
	tr.SetControl(engine.DefaultConfig())
	if applyCfg == nil {
		applyCfg = func(engine.Config) error { return nil }
	}
	srv := New(":0", tr, applyCfg)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(engine.Output{
		Primary:   -18.3,
		Secondary: 29.1,
		ActualOn:  true,
		Status:    engine.StatusCooling,
	})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "COOLING" {
		t.Errorf("State: got %q, want COOLING", sj.Status.State)
	}
	if !sj.Status.CompressorOn {
		t.Error("expected compressor_on=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected mqtt.connected=true")
	}
	if sj.Status.Control.TargetTemperature != -18 {
		t.Errorf("target: got %v, want -18", sj.Status.Control.TargetTemperature)
	}
}

func TestIndexPage(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(engine.Output{
		Primary:   -17.0,
		Secondary: 30.0,
		ActualOn:  true,
		Status:    engine.StatusCooling,
	})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	html := string(body)

	if !strings.Contains(html, "Freezer Controller") {
		t.Error("page missing title")
	}
	if !strings.Contains(html, "COOLING") {
		t.Error("page missing state")
	}
	if !strings.Contains(html, "-17.0") {
		t.Error("page missing cabinet temperature")
	}
}

func TestIndexNotFound(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestConfigGet(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/config")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var p ConfigPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := engine.DefaultConfig()
	if p.TargetTemperature != want.TargetTemperature {
		t.Errorf("target: got %v, want %v", p.TargetTemperature, want.TargetTemperature)
	}
	if p.MaxRunTimeMinutes != want.MaxRunTimeMinutes {
		t.Errorf("max runtime: got %v, want %v", p.MaxRunTimeMinutes, want.MaxRunTimeMinutes)
	}
}

func TestConfigPostApplies(t *testing.T) {
	var applied engine.Config
	ts, _ := newTestServer(t, func(cfg engine.Config) error {
		applied = cfg
		return nil
	})

	payload := `{
		"target_temperature": -20,
		"hysteresis_seconds": 120,
		"dead_time_minutes": 10,
		"max_runtime_minutes": 240,
		"overheat_temperature": 50,
		"startup_delay_minutes": 5
	}`
	resp, err := http.Post(ts.URL+"/config", "application/json", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", resp.StatusCode)
	}
	if applied.TargetTemperature != -20 || applied.HysteresisSeconds != 120 {
		t.Errorf("applied = %+v", applied)
	}
}

func TestConfigPostRejectsOutOfRange(t *testing.T) {
	called := false
	ts, _ := newTestServer(t, func(engine.Config) error {
		called = true
		return nil
	})

	payload := `{
		"target_temperature": -50,
		"hysteresis_seconds": 120,
		"dead_time_minutes": 10,
		"max_runtime_minutes": 240,
		"overheat_temperature": 50,
		"startup_delay_minutes": 5
	}`
	resp, err := http.Post(ts.URL+"/config", "application/json", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", resp.StatusCode)
	}
	if called {
		t.Error("rejected config must not be applied")
	}
}

func TestConfigPostRejectsBadJSON(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/config", "application/json", bytes.NewBufferString("{nope"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestConfigMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/config", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}
