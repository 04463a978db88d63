package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/crunch/api/forecast"
	"github.com/kilianp07/crunch/config"
	coreforecast "github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/forecast/history"
	coremetrics "github.com/kilianp07/crunch/core/metrics"
	"github.com/kilianp07/crunch/core/model"
	coremon "github.com/kilianp07/crunch/core/monitoring"
	"github.com/kilianp07/crunch/core/project"
	"github.com/kilianp07/crunch/infra/logger"
	"github.com/kilianp07/crunch/infra/metrics"
	"github.com/kilianp07/crunch/infra/monitoring"
	"github.com/kilianp07/crunch/internal/eventbus"
)

// Service wires the forecast engine to its sinks, history store and HTTP
// API. It implements the API's backend.
type Service struct {
	Engine *coreforecast.Engine

	cfg       *config.Config
	sink      coremetrics.MetricsSink
	recorders []coremetrics.CurveRecorder
	store     history.Store
	bus       *eventbus.Bus
	runs      *eventbus.TypedBus[history.Run]
	log       logger.Logger

	cancel    context.CancelFunc
	collector <-chan struct{}
	closeOnce sync.Once
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	log := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Monitoring)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)
	engine, err := coreforecast.NewEngine(cfg.Model, cfg.Forecast, logger.New("forecast"))
	if err != nil {
		return nil, fmt.Errorf("forecast engine: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	store, err := history.Open(cfg.History)
	if err != nil {
		closeSink(sink)
		return nil, fmt.Errorf("history store: %w", err)
	}

	bus := eventbus.New(eventbus.WithBuffer(64))
	engine.SetEventBus(bus)
	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		Engine:    engine,
		cfg:       cfg,
		sink:      sink,
		store:     store,
		bus:       bus,
		runs:      eventbus.NewTyped[history.Run](),
		log:       log,
		cancel:    cancel,
		collector: metrics.StartEventCollector(ctx, bus, sink, logger.New("collector")),
	}
	if r, ok := sink.(coremetrics.CurveRecorder); ok {
		svc.recorders = append(svc.recorders, r)
	}
	svc.recorders = append(svc.recorders, history.Recorder{Store: store})
	return svc, nil
}

func (s *Service) prepare(sched model.Schedule) (*coreforecast.Plan, error) {
	if err := project.Validate(sched); err != nil {
		return nil, err
	}
	return coreforecast.Prepare(sched)
}

// Forecast evaluates one scenario of a schedule.
func (s *Service) Forecast(ctx context.Context, sched model.Schedule, sc coreforecast.Scenario) (*coreforecast.Forecast, error) {
	p, err := s.prepare(sched)
	if err != nil {
		return nil, err
	}
	return s.Engine.Evaluate(ctx, p, sc)
}

// Sweep computes the duration-cost curve of a schedule and records it
// under a new run id. Recording failures are logged, not returned.
func (s *Service) Sweep(ctx context.Context, sched model.Schedule, req coreforecast.SweepRequest) (string, *coreforecast.DurationCostCurve, error) {
	p, err := s.prepare(sched)
	if err != nil {
		return "", nil, err
	}
	curve, err := s.Engine.Sweep(ctx, p, req)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, coreforecast.ErrInvalidTarget) {
			coremon.CaptureException(err, map[string]string{"schedule": sched.Name, "mode": req.Mode.String()})
		}
		return "", nil, err
	}
	id := uuid.NewString()
	for _, r := range s.recorders {
		if err := r.RecordCurve(id, curve); err != nil {
			s.log.Warnf("record run %s: %v", id, err)
		}
	}
	s.runs.Publish(history.NewRun(id, curve))
	s.log.Debugf("run %s recorded for %q (P50 optimum %d weeks)", id, curve.Schedule, curve.Optimal[model.P50])
	return id, curve, nil
}

// Limits returns the reachable durations of a schedule.
func (s *Service) Limits(sched model.Schedule) (coreforecast.Limits, error) {
	p, err := s.prepare(sched)
	if err != nil {
		return coreforecast.Limits{}, err
	}
	return p.Limits(), nil
}

// History lists recorded runs.
func (s *Service) History(ctx context.Context, q history.Query) ([]history.Run, error) {
	return s.store.Query(ctx, q)
}

// SubscribeRuns streams runs recorded from now on.
func (s *Service) SubscribeRuns() (<-chan history.Run, func()) {
	ch := s.runs.Subscribe()
	return ch, func() { s.runs.Unsubscribe(ch) }
}

// Serve runs the HTTP API until ctx is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	promAddr := s.cfg.Metrics.PrometheusAddr
	separateProm := promAddr != "" && promAddr != s.cfg.HTTP.Addr
	handler := forecast.NewRouter(s, logger.New("api"), forecast.Options{
		MaxBodyBytes: s.cfg.HTTP.MaxBodyBytes,
		Metrics:      !separateProm,
	})
	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	if separateProm {
		go func() {
			if err := metrics.StartPromServer(ctx, promAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go func() {
		<-ctx.Done()
		timeout := time.Duration(s.cfg.HTTP.ShutdownTimeoutSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("forecast API listening on %s", s.cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the event collector and releases the sinks and the store.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.collector
		s.bus.Close()
		s.runs.Close()
		if n := s.bus.Dropped(); n > 0 {
			s.log.Warnf("%d engine events were dropped by slow observers", n)
		}
		closeSink(s.sink)
		err = s.store.Close()
		coremon.Flush(2 * time.Second)
	})
	return err
}

// closeSink closes sinks holding connections; MultiSink closes its members.
func closeSink(sink coremetrics.MetricsSink) {
	if m, ok := sink.(*coremetrics.MultiSink); ok {
		for _, member := range m.Sinks {
			closeSink(member)
		}
		return
	}
	if c, ok := sink.(interface{ Close() }); ok {
		c.Close()
	}
}
