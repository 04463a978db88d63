// Package forecast exposes the forecast engine over HTTP.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coreforecast "github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/forecast/history"
	"github.com/kilianp07/crunch/core/logger"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/core/monitoring"
	"github.com/kilianp07/crunch/core/project"
)

// Service is the forecasting backend used by the handlers.
type Service interface {
	Forecast(ctx context.Context, s model.Schedule, sc coreforecast.Scenario) (*coreforecast.Forecast, error)
	Sweep(ctx context.Context, s model.Schedule, req coreforecast.SweepRequest) (string, *coreforecast.DurationCostCurve, error)
	Limits(s model.Schedule) (coreforecast.Limits, error)
	History(ctx context.Context, q history.Query) ([]history.Run, error)
	// SubscribeRuns streams runs as they are recorded until cancel is called.
	SubscribeRuns() (runs <-chan history.Run, cancel func())
}

// ForecastRequest evaluates one scenario of a schedule.
type ForecastRequest struct {
	Schedule model.Schedule `json:"schedule"`
	coreforecast.Scenario
	Staffing bool `json:"staffing,omitempty"`
}

// ForecastResponse is the evaluated scenario with an optional staffing plan.
type ForecastResponse struct {
	*coreforecast.Forecast
	Staffing *coreforecast.StaffingPlan `json:"staffing,omitempty"`
}

// SweepRequest evaluates every candidate duration of a schedule.
type SweepRequest struct {
	Schedule model.Schedule `json:"schedule"`
	coreforecast.SweepRequest
}

// SweepResponse is the duration-cost curve and the id it was recorded under.
type SweepResponse struct {
	RunID string `json:"run_id"`
	*coreforecast.DurationCostCurve
}

// LimitsRequest carries the schedule whose reachable durations are computed.
type LimitsRequest struct {
	Schedule model.Schedule `json:"schedule"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Options tune the router.
type Options struct {
	// MaxBodyBytes caps request bodies. Zero means no limit.
	MaxBodyBytes int64
	// Metrics mounts the Prometheus handler on /metrics.
	Metrics bool
}

// NewRouter returns the HTTP handler of the forecast API.
func NewRouter(svc Service, log logger.Logger, opts Options) http.Handler {
	if log == nil {
		log = logger.Nop{}
	}
	h := &handler{svc: svc, log: log, maxBody: opts.MaxBodyBytes}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/forecast", h.forecast)
		r.Post("/sweep", h.sweep)
		r.Post("/limits", h.limits)
		r.Get("/history", h.history)
		r.Get("/history/stream", h.stream)
	})
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

type handler struct {
	svc     Service
	log     logger.Logger
	maxBody int64
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debugw("http request", map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"elapsed_ms": time.Since(start).Milliseconds(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}

func (h *handler) forecast(w http.ResponseWriter, r *http.Request) {
	var req ForecastRequest
	if !h.decode(w, r, &req) {
		return
	}
	f, err := h.svc.Forecast(r.Context(), req.Schedule, req.Scenario)
	if err != nil {
		h.fail(w, err)
		return
	}
	resp := ForecastResponse{Forecast: f}
	if req.Staffing {
		plan := coreforecast.Staffing(f)
		resp.Staffing = &plan
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) sweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, curve, err := h.svc.Sweep(r.Context(), req.Schedule, req.SweepRequest)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{RunID: id, DurationCostCurve: curve})
}

func (h *handler) limits(w http.ResponseWriter, r *http.Request) {
	var req LimitsRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.svc.Limits(req.Schedule)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	q := history.Query{Schedule: r.URL.Query().Get("schedule")}
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "since: " + err.Error()})
			return
		}
		q.Since = t
	}
	if s := r.URL.Query().Get("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "until: " + err.Error()})
			return
		}
		q.Until = t
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		q.Limit = n
	}
	runs, err := h.svc.History(r.Context(), q)
	if err != nil {
		h.fail(w, err)
		return
	}
	if r.URL.Query().Get("curves") != "true" {
		for i := range runs {
			runs[i].Curve = nil
		}
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// stream pushes every newly recorded run as a server-sent event.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}
	runs, cancel := h.svc.SubscribeRuns()
	defer cancel()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	schedule := r.URL.Query().Get("schedule")
	for {
		select {
		case <-r.Context().Done():
			return
		case run, ok := <-runs:
			if !ok {
				return
			}
			if schedule != "" && run.Schedule != schedule {
				continue
			}
			run.Curve = nil
			b, err := json.Marshal(run)
			if err != nil {
				h.log.Warnf("encode run %s: %v", run.ID, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: run\ndata: %s\n\n", run.ID, b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse{Error: fmt.Sprintf("decode request: %v", err)})
		return false
	}
	return true
}

// fail maps service errors onto status codes.
func (h *handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, coreforecast.ErrInvalidTarget),
		errors.Is(err, coreforecast.ErrNoHours),
		errors.Is(err, project.ErrEmpty),
		errors.Is(err, project.ErrInvalid),
		errors.Is(err, model.ErrUnknownOvertimeMode),
		errors.Is(err, model.ErrUnknownRiskBand):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.log.Errorf("forecast api: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "api"})
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
