package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cxd309/bordersim/internal/broadcast"
	"github.com/cxd309/bordersim/internal/car"
	"github.com/cxd309/bordersim/internal/config"
	"github.com/cxd309/bordersim/internal/control"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// strictDecode decodes body into v, rejecting unknown JSON fields — the
// JSON-request-body twin of config.FromYAML's KnownFields(true) pass
// (spec.md §9: "unknown keys are rejected at validation").
func strictDecode(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// statusForErr maps manager/control errors to the HTTP codes spec.md §7
// assigns: 404 unknown id/node, 409 state-incompatible, 400 else.
func statusForErr(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotTerminal), errors.Is(err, control.ErrTerminal):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (h *handlers) postSimulate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "could not read request body")
		return
	}
	var req config.Request
	if err := strictDecode(body, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	id, _, err := h.m.Start(req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"simulation_id": id,
		"status":        "running",
		"websocket_url": "/ws/" + id,
		"message":       "simulation started",
	})
}

func (h *handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sim, err := h.m.Get(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}
	snap := sim.Snapshot()
	progress := 0.0
	if snap.MaxSimTime > 0 {
		progress = snap.SimTime / snap.MaxSimTime
		if progress > 1 {
			progress = 1
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"simulation_id":     id,
		"status":            snap.Status,
		"progress":          progress,
		"current_time":      snap.SimTime,
		"total_arrivals":    snap.Stats.TotalArrivals,
		"total_completions": snap.Stats.TotalCompletions,
		"message":           snap.StatusMsg,
	})
}

func (h *handlers) getState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sim, err := h.m.Get(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sim.Snapshot())
}

type addCarRequest struct {
	PhoneConfig *config.PhoneConfig `json:"phone_config,omitempty"`
}

func (h *handlers) postAddCar(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sim, err := h.m.Get(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}

	var body addCarRequest
	if r.ContentLength != 0 {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "could not read request body")
			return
		}
		if err := strictDecode(raw, &body); err != nil {
			writeErr(w, http.StatusBadRequest, "malformed request body: "+err.Error())
			return
		}
	}

	op := control.Op{Kind: control.AddCar, Result: make(chan control.Result, 1)}
	if body.PhoneConfig != nil {
		phone := phoneConfigFromRequest(*body.PhoneConfig)
		op.Phone = &phone
	}
	res := sim.Intake().Submit(op)
	if res.Err != nil {
		writeErr(w, statusForErr(res.Err), res.Err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"car_id":   res.CarID,
		"queue_id": res.QueueID,
		"message":  "car added",
	})
}

func phoneConfigFromRequest(p config.PhoneConfig) car.PhoneConfig {
	return car.PhoneConfig{
		SamplingRateHz:         p.SamplingRate,
		GPSHorizontalAccuracyM: p.GPSNoise.HorizontalAccuracy,
		GPSVerticalAccuracyM:   p.GPSNoise.VerticalAccuracy,
		AccelerometerNoiseStd:  p.AccelerometerNoise,
		GyroNoiseStd:           p.GyroNoise,
		DeviceOrientation:      p.DeviceOrientation,
	}
}

func (h *handlers) putServiceNode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, nodeIDStr := vars["id"], vars["node_id"]
	sim, err := h.m.Get(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}
	nodeID, err := strconv.Atoi(nodeIDStr)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "node_id must be an integer")
		return
	}
	rate, err := strconv.ParseFloat(r.URL.Query().Get("rate"), 64)
	if err != nil || rate <= 0 {
		writeErr(w, http.StatusBadRequest, "rate query param must be a positive number")
		return
	}

	res := sim.Intake().Submit(control.Op{
		Kind: control.UpdateBoothRate, NodeID: nodeID, Rate: rate, Result: make(chan control.Result, 1),
	})
	if res.Err != nil {
		writeErr(w, statusForErr(res.Err), res.Err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"node_id":  res.NodeID,
		"new_rate": res.NewRate,
		"message":  "service rate updated",
	})
}

func (h *handlers) postAdvance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sim, err := h.m.Get(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}
	dt, err := strconv.ParseFloat(r.URL.Query().Get("dt"), 64)
	if err != nil || dt <= 0 {
		writeErr(w, http.StatusBadRequest, "dt query param must be a positive number")
		return
	}

	res := sim.Intake().Submit(control.Op{Kind: control.Advance, DeltaSeconds: dt, Result: make(chan control.Result, 1)})
	if res.Err != nil {
		writeErr(w, statusForErr(res.Err), res.Err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"advanced_by":    res.AdvancedBy,
		"completed_cars": res.CompletedCars,
		"current_time":   res.CurrentTime,
	})
}

func (h *handlers) postAddStation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sim, err := h.m.Get(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}
	queueID := 0
	if q := r.URL.Query().Get("queue_id"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "queue_id must be an integer")
			return
		}
		queueID = parsed
	}
	rate, err := strconv.ParseFloat(r.URL.Query().Get("rate"), 64)
	if err != nil || rate <= 0 {
		rate = 30 // spec.md doesn't mandate a default; a new booth needs some starting rate
	}

	res := sim.Intake().Submit(control.Op{
		Kind: control.AddBooth, QueueID: queueID, Rate: rate, Result: make(chan control.Result, 1),
	})
	if res.Err != nil {
		writeErr(w, statusForErr(res.Err), res.Err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"station_id":   res.NodeID,
		"queue_id":     res.QueueID,
		"service_rate": res.NewRate,
	})
}

type timeSpeedRequest struct {
	TimeFactor float64 `json:"time_factor"`
}

func (h *handlers) putTimeSpeed(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sim, err := h.m.Get(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "could not read request body")
		return
	}
	var body timeSpeedRequest
	if err := strictDecode(raw, &body); err != nil || body.TimeFactor <= 0 {
		writeErr(w, http.StatusBadRequest, "time_factor must be a positive number")
		return
	}

	res := sim.Intake().Submit(control.Op{Kind: control.SetTimeFactor, TimeFactor: body.TimeFactor, Result: make(chan control.Result, 1)})
	if res.Err != nil {
		writeErr(w, statusForErr(res.Err), res.Err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "running",
		"time_factor": body.TimeFactor,
	})
}

func (h *handlers) deleteSimulation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sim, err := h.m.Get(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}
	sim.Intake().SubmitAsync(control.Op{Kind: control.Cancel})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"simulation_id": id,
		"status":        "cancelled",
	})
}

func (h *handlers) getTelemetry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data, err := h.m.TelemetryCSV(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+id+"-telemetry.csv\"")
	_, _ = w.Write(data)
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *handlers) getWebsocket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sim, err := h.m.Get(id)
	if err != nil {
		writeErr(w, statusForErr(err), err.Error())
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sub := broadcast.NewSubscriber(ctx, conn, broadcast.DefaultBacklog)
	unregister := sim.Hub().Register(sub)
	defer unregister()

	_ = sub.Run()
}
