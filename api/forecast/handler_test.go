package forecast

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreforecast "github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/forecast/history"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/core/project"
)

type fakeService struct {
	scenario coreforecast.Scenario
	query    history.Query
	runs     []history.Run
	stream   chan history.Run
	err      error
}

func (f *fakeService) Forecast(_ context.Context, s model.Schedule, sc coreforecast.Scenario) (*coreforecast.Forecast, error) {
	f.scenario = sc
	if f.err != nil {
		return nil, f.err
	}
	return &coreforecast.Forecast{
		Schedule:      s.Name,
		Scenario:      sc,
		BaseWeeks:     9,
		AchievedWeeks: sc.TargetWeeks,
		WeeklyHours:   model.HoursProfile{"civil": {50, 60}},
		EAC:           map[model.RiskBand]float64{model.P50: 1000},
	}, nil
}

func (f *fakeService) Sweep(_ context.Context, s model.Schedule, req coreforecast.SweepRequest) (string, *coreforecast.DurationCostCurve, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return "run-1", &coreforecast.DurationCostCurve{
		Schedule: s.Name,
		Mode:     req.Mode,
		MinWeeks: req.MinWeeks,
		Optimal:  map[model.RiskBand]int{model.P50: 9},
	}, nil
}

func (f *fakeService) Limits(s model.Schedule) (coreforecast.Limits, error) {
	return coreforecast.Limits{Schedule: s.Name, BaseWeeks: 9, MinWeeks: map[model.OvertimeMode]int{model.OvertimeOneExtraDay: 8}}, nil
}

func (f *fakeService) History(_ context.Context, q history.Query) ([]history.Run, error) {
	f.query = q
	return f.runs, nil
}

func (f *fakeService) SubscribeRuns() (<-chan history.Run, func()) {
	return f.stream, func() {}
}

// validatingService checks schedules the way app.Service does before
// handing them to the fake.
type validatingService struct{ *fakeService }

func (v validatingService) Sweep(ctx context.Context, s model.Schedule, req coreforecast.SweepRequest) (string, *coreforecast.DurationCostCurve, error) {
	if err := project.Validate(s); err != nil {
		return "", nil, err
	}
	return v.fakeService.Sweep(ctx, s, req)
}

func (v validatingService) Limits(s model.Schedule) (coreforecast.Limits, error) {
	if err := project.Validate(s); err != nil {
		return coreforecast.Limits{}, err
	}
	return v.fakeService.Limits(s)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestForecastHandler(t *testing.T) {
	svc := &fakeService{}
	h := NewRouter(svc, nil, Options{})
	rr := post(t, h, "/api/forecast", `{"schedule":{"name":"plant"},"target_weeks":7,"mode":"one-day","scope":"task-specific","overrides":{"civil":0.9},"staffing":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, 7, svc.scenario.TargetWeeks)
	assert.Equal(t, model.OvertimeOneExtraDay, svc.scenario.Mode)
	assert.Equal(t, model.ScopeTaskSpecific, svc.scenario.Scope)
	assert.Equal(t, 0.9, svc.scenario.Overrides["civil"])

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "plant", out["schedule"])
	assert.Equal(t, 1000.0, out["eac"].(map[string]any)["P50"])
	assert.Contains(t, out, "staffing")
}

func TestForecastHandler_Errors(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("evaluate: %w", coreforecast.ErrInvalidTarget)}
	h := NewRouter(svc, nil, Options{MaxBodyBytes: 64})

	rr := post(t, h, "/api/forecast", `{"target_weeks":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = post(t, h, "/api/forecast", `{"mode":"eight-days"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(t, h, "/api/forecast", `{"schedule":{"name":"`+strings.Repeat("x", 128)+`"}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	svc.err = fmt.Errorf("disk on fire")
	rr = post(t, h, "/api/sweep", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHandler_InvalidScheduleIs422(t *testing.T) {
	h := NewRouter(validatingService{&fakeService{}}, nil, Options{})
	bodies := map[string]string{
		"duplicate": `{"schedule":{"tasks":[{"id":"a","end":5,"hours":10},{"id":"a","end":7,"hours":10}]}}`,
		"reversed":  `{"schedule":{"tasks":[{"id":"a","start":9,"end":2,"hours":10}]}}`,
		"hours":     `{"schedule":{"tasks":[{"id":"a","end":5,"hours":-1}]}}`,
		"rate":      `{"schedule":{"tasks":[{"id":"a","end":5,"hours":1}],"disciplines":[{"id":"c","base_rate":-2}]}}`,
		"empty":     `{"schedule":{}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			for _, path := range []string{"/api/sweep", "/api/limits"} {
				rr := post(t, h, path, body)
				assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "%s: %s", path, rr.Body.String())
			}
		})
	}

	rr := post(t, h, "/api/limits", `{"schedule":{"tasks":[{"id":"a","end":5,"hours":10}]}}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandler_UnknownRiskBandIs422(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("render: %w", model.ErrUnknownRiskBand)}
	rr := post(t, NewRouter(svc, nil, Options{}), "/api/sweep", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestSweepHandler(t *testing.T) {
	h := NewRouter(&fakeService{}, nil, Options{})
	rr := post(t, h, "/api/sweep", `{"schedule":{"name":"plant"},"mode":"two-days","min_weeks":6}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out SweepResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "run-1", out.RunID)
	require.NotNil(t, out.DurationCostCurve)
	assert.Equal(t, model.OvertimeTwoExtraDays, out.Mode)
	assert.Equal(t, 6, out.MinWeeks)
	assert.Equal(t, 9, out.Optimal[model.P50])
}

func TestLimitsHandler(t *testing.T) {
	h := NewRouter(&fakeService{}, nil, Options{})
	rr := post(t, h, "/api/limits", `{"schedule":{"name":"plant"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var out coreforecast.Limits
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, 8, out.MinWeeks[model.OvertimeOneExtraDay])
}

func TestHistoryHandler(t *testing.T) {
	svc := &fakeService{runs: []history.Run{{ID: "a", Schedule: "plant", Curve: &coreforecast.DurationCostCurve{}}}}
	h := NewRouter(svc, nil, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/history?schedule=plant&limit=5&since=2026-01-01T00:00:00Z&until=2026-03-01T00:00:00Z", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "plant", svc.query.Schedule)
	assert.Equal(t, 5, svc.query.Limit)
	assert.Equal(t, 2026, svc.query.Since.Year())
	assert.Equal(t, time.March, svc.query.Until.Month())
	var out []history.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Curve, "curves are omitted unless requested")

	for _, bad := range []string{"limit=-1", "until=yesterday"} {
		req = httptest.NewRequest(http.MethodGet, "/api/history?"+bad, nil)
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}

	svc.runs = nil
	req = httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestHistoryStream(t *testing.T) {
	svc := &fakeService{stream: make(chan history.Run, 2)}
	srv := httptest.NewServer(NewRouter(svc, nil, Options{}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/history/stream?schedule=plant", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	svc.stream <- history.Run{ID: "skip", Schedule: "depot"}
	svc.stream <- history.Run{ID: "r1", Schedule: "plant"}

	reader := bufio.NewReader(resp.Body)
	var data []byte
	for {
		line, err := reader.ReadBytes('\n')
		require.NoError(t, err)
		if bytes.HasPrefix(line, []byte("data: ")) {
			data = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data: ")))
			break
		}
	}
	var run history.Run
	require.NoError(t, json.Unmarshal(data, &run))
	assert.Equal(t, "r1", run.ID)
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewRouter(&fakeService{}, nil, Options{Metrics: true})
	for _, path := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}
