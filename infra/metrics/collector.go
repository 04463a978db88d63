package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/crunch/core/events"
	"github.com/kilianp07/crunch/core/logger"
	coremetrics "github.com/kilianp07/crunch/core/metrics"
	"github.com/kilianp07/crunch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// scenario and sweep events. It stops when the context is canceled or the
// bus is closed; the returned channel is closed once it has stopped.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.Nop{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("metrics sink: %v", err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.ScenarioEvent:
		return sink.RecordScenario(coremetrics.ScenarioRecord{
			Schedule:      e.Schedule,
			TargetWeeks:   e.TargetWeeks,
			AchievedWeeks: e.AchievedWeeks,
			Mode:          e.Mode,
			EAC:           e.EAC,
			Duration:      e.Elapsed,
			CacheHit:      e.CacheHit,
			Time:          time.Now(),
		})
	case events.SweepEvent:
		r, ok := sink.(coremetrics.SweepRecorder)
		if !ok {
			return nil
		}
		return r.RecordSweep(coremetrics.SweepRecord{
			Schedule: e.Schedule,
			Mode:     e.Mode,
			Points:   e.Points,
			Optimal:  e.Optimal,
			Duration: e.Elapsed,
			Failed:   e.Err != nil,
			Time:     time.Now(),
		})
	}
	return nil
}
