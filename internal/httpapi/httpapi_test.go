package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer() (*httptest.Server, *Manager) {
	m := NewManager(nil)
	srv := httptest.NewServer(NewRouter(m))
	return srv, m
}

func startSimulation(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	body := []byte(`{
		"border_config": {
			"num_queues": 1,
			"nodes_per_queue": [1],
			"arrival_rate": 30,
			"service_rates": [60],
			"queue_assignment": "random",
			"safe_distance": 4,
			"max_queue_length": 50
		}
	}`)
	resp, err := http.Post(srv.URL+"/simulate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /simulate failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	id, _ := out["simulation_id"].(string)
	if id == "" {
		t.Fatalf("expected a simulation_id in response, got %v", out)
	}
	return id
}

func TestPostSimulateRejectsInvalidConfig(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/simulate", "application/json", bytes.NewReader([]byte(`{"border_config":{"num_queues":0}}`)))
	if err != nil {
		t.Fatalf("POST /simulate failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid config, got %d", resp.StatusCode)
	}
}

func TestStatusAndStateRoundTrip(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	id := startSimulation(t, srv)
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/simulation/" + id + "/status")
	if err != nil {
		t.Fatalf("GET status failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/simulation/" + id + "/state")
	if err != nil {
		t.Fatalf("GET state failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp2.StatusCode)
	}
}

func TestUnknownSimulationIsNotFound(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/simulation/does-not-exist/status")
	if err != nil {
		t.Fatalf("GET status failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown simulation id, got %d", resp.StatusCode)
	}
}

func TestAddCarAndDelete(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	id := startSimulation(t, srv)
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Post(srv.URL+"/simulation/"+id+"/add_car", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST add_car failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for add_car, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/simulation/"+id, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	defer delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for delete, got %d", delResp.StatusCode)
	}
}

func TestWebsocketStreamsASnapshot(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	id := startSimulation(t, srv)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected a snapshot message, got error: %v", err)
	}

	var snap map[string]interface{}
	if err := json.Unmarshal(msg, &snap); err != nil {
		t.Fatalf("expected JSON snapshot, got unmarshal error: %v", err)
	}
	if snap["sim_id"] != id {
		t.Fatalf("expected sim_id %q, got %v", id, snap["sim_id"])
	}
}

func TestTelemetryBeforeTerminalIsConflict(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	id := startSimulation(t, srv)
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/simulation/" + id + "/telemetry")
	if err != nil {
		t.Fatalf("GET telemetry failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before simulation is terminal, got %d", resp.StatusCode)
	}
}
