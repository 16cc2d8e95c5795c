package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every route of spec.md §6 onto mux.Router, the way the
// teacher declared gorilla/mux as a dependency but never actually routed
// with it.
func NewRouter(m *Manager) *mux.Router {
	h := &handlers{m: m}
	r := mux.NewRouter()

	r.HandleFunc("/simulate", h.postSimulate).Methods(http.MethodPost)
	r.HandleFunc("/simulation/{id}/status", h.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/simulation/{id}/state", h.getState).Methods(http.MethodGet)
	r.HandleFunc("/simulation/{id}/add_car", h.postAddCar).Methods(http.MethodPost)
	r.HandleFunc("/simulation/{id}/service_node/{node_id}", h.putServiceNode).Methods(http.MethodPut)
	r.HandleFunc("/simulation/{id}/advance", h.postAdvance).Methods(http.MethodPost)
	r.HandleFunc("/simulation/{id}/add_station", h.postAddStation).Methods(http.MethodPost)
	r.HandleFunc("/simulation/{id}/time_speed", h.putTimeSpeed).Methods(http.MethodPut)
	r.HandleFunc("/simulation/{id}", h.deleteSimulation).Methods(http.MethodDelete)
	r.HandleFunc("/simulation/{id}/telemetry", h.getTelemetry).Methods(http.MethodGet)
	r.HandleFunc("/ws/{id}", h.getWebsocket).Methods(http.MethodGet)

	return r
}

// handlers groups the route functions; kept as methods on a small struct
// (matching the teacher's handler-bundled-with-dependencies shape) rather
// than free functions closing over package globals.
type handlers struct {
	m *Manager
}
