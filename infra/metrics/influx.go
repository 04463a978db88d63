package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/crunch/core/forecast"
	coremetrics "github.com/kilianp07/crunch/core/metrics"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/infra/logger"
)

// InfluxSink writes forecast records to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client resources.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordScenario writes one evaluated scenario.
func (s *InfluxSink) RecordScenario(rec coremetrics.ScenarioRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("forecast_scenario").
		AddTag("schedule", rec.Schedule).
		AddTag("mode", rec.Mode.String()).
		AddField("target_weeks", rec.TargetWeeks).
		AddField("achieved_weeks", rec.AchievedWeeks).
		AddField("eac_p50", round2(rec.EAC[model.P50])).
		AddField("eac_p80", round2(rec.EAC[model.P80])).
		AddField("eac_p90", round2(rec.EAC[model.P90])).
		AddField("duration_ms", round2(rec.Duration.Seconds()*1000)).
		AddField("cache_hit", rec.CacheHit).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCurve writes one point per candidate duration and band. Points of
// one band share their tags, so each is offset from the run time by its
// duration in microseconds to keep them distinct.
func (s *InfluxSink) RecordCurve(runID string, curve *forecast.DurationCostCurve) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := s.now()
	points := make([]*write.Point, 0, len(curve.Points)*3)
	for _, pt := range curve.Points {
		for _, band := range model.RiskBands() {
			points = append(points, curvePoint(runID, curve, pt, band, ts))
		}
	}
	if len(points) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func curvePoint(runID string, curve *forecast.DurationCostCurve, pt forecast.CurvePoint, band model.RiskBand, ts time.Time) *write.Point {
	return write.NewPointWithMeasurement("forecast_curve").
		AddTag("schedule", curve.Schedule).
		AddTag("mode", curve.Mode.String()).
		AddTag("run_id", runID).
		AddTag("band", band.String()).
		AddField("target_weeks", pt.TargetWeeks).
		AddField("achieved_weeks", pt.AchievedWeeks).
		AddField("direct_cost", round2(pt.DirectCost[band])).
		AddField("time_cost", round2(pt.TimeCost)).
		AddField("total", round2(pt.Total[band])).
		AddField("optimal", curve.Optimal[band] == pt.TargetWeeks).
		SetTime(ts.Add(time.Duration(pt.TargetWeeks) * time.Microsecond))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
