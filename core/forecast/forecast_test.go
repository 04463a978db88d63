package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/crunch/core/costmodel"
	"github.com/kilianp07/crunch/core/events"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/internal/eventbus"
)

func disciplines() []model.Discipline {
	return []model.Discipline{
		{ID: "civil", Name: "Civil", BaseRate: 72, OTRate: 108},
		{ID: "mech", Name: "Mechanical", BaseRate: 78, OTRate: 117},
		{ID: "elec", Name: "Electrical", BaseRate: 76, OTRate: 114},
		{ID: "piping", Name: "Piping", BaseRate: 75, OTRate: 112.5},
		{ID: "finishes", Name: "Finishes", BaseRate: 73, OTRate: 109.5},
	}
}

func profileSchedule() model.Schedule {
	return model.Schedule{
		Name:        "plant",
		Disciplines: disciplines(),
		Profile: model.HoursProfile{
			"civil":    {459, 262, 0, 0, 0, 18, 5, 0, 0},
			"mech":     {0, 120, 310, 420, 380, 260, 90, 0, 0},
			"elec":     {0, 0, 80, 240, 360, 400, 300, 120, 40},
			"piping":   {0, 60, 200, 320, 340, 280, 150, 60, 0},
			"finishes": {0, 0, 0, 0, 40, 160, 320, 380, 300},
		},
	}
}

func graphSchedule() model.Schedule {
	return model.Schedule{
		Name:        "graph",
		Disciplines: disciplines(),
		Tasks: []model.Task{
			{ID: "civ1", DisciplineID: "civil", Start: 0, End: 14, Hours: 700},
			{ID: "mech1", DisciplineID: "mech", Start: 14, End: 42, Hours: 1400},
			{ID: "elec1", DisciplineID: "elec", Start: 14, End: 35, Hours: 840},
			{ID: "fin1", DisciplineID: "finishes", Start: 42, End: 63, Hours: 1050},
		},
		Relationships: []model.Relationship{
			{From: "civ1", To: "mech1"},
			{From: "civ1", To: "elec1"},
			{From: "mech1", To: "fin1"},
			{From: "elec1", To: "fin1"},
		},
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(costmodel.DefaultParams(), cfg, nil)
	require.NoError(t, err)
	return e
}

func prepare(t *testing.T, s model.Schedule) *Plan {
	t.Helper()
	p, err := Prepare(s)
	require.NoError(t, err)
	return p
}

func TestEvaluate_BaselineDurationReturnsOriginalCost(t *testing.T) {
	e := newTestEngine(t, Config{})
	p := prepare(t, profileSchedule())
	require.Equal(t, 9, p.BaseWeeks)

	f, err := e.Evaluate(context.Background(), p, Scenario{TargetWeeks: 9, Mode: model.OvertimeNone})
	require.NoError(t, err)

	assert.Equal(t, 9, f.AchievedWeeks)
	assert.Equal(t, 1.0, f.GlobalPF)
	for id, pf := range f.Productivity {
		assert.Equal(t, 1.0, pf, id)
	}
	assert.Nil(t, f.Stacking)
	assert.Zero(t, f.NumOTWeeks)
	for _, band := range model.RiskBands() {
		assert.Equal(t, f.BaselineEAC, f.EAC[band], band.String())
	}

	var want float64
	for _, d := range disciplines() {
		for _, h := range profileSchedule().Profile[d.ID] {
			want += h * d.BaseRate
		}
	}
	want += 9 * 5000
	assert.InDelta(t, want, f.BaselineEAC, 1e-6)

	b := f.Breakdown(model.P50)
	require.Len(t, b.Weeks, 9)
	assert.InDelta(t, b.Total, b.Weeks[8].Cumulative, 1e-6)
	for _, d := range b.Disciplines {
		assert.Equal(t, d.BaseCost, d.AdjustedCost, d.ID)
	}
}

func TestEvaluate_SevenWeeksOneExtraDay(t *testing.T) {
	e := newTestEngine(t, Config{})
	p := prepare(t, profileSchedule())

	f, err := e.Evaluate(context.Background(), p, Scenario{TargetWeeks: 7, Mode: model.OvertimeOneExtraDay})
	require.NoError(t, err)

	assert.Equal(t, 7, f.AchievedWeeks)
	assert.Equal(t, 7, f.NumOTWeeks, "round(2 × 50/10) capped by the available weeks")
	assert.Less(t, f.GlobalPF, 1.0)
	assert.Greater(t, f.EAC[model.P50], f.BaselineEAC)
	assert.GreaterOrEqual(t, f.EAC[model.P80], f.EAC[model.P50])
	assert.GreaterOrEqual(t, f.EAC[model.P90], f.EAC[model.P80])

	b := f.Breakdown(model.P50)
	assert.Equal(t, 7*5000.0, b.TimeCost)
	var hours float64
	for _, w := range b.Weeks {
		hours += w.Hours
	}
	assert.InDelta(t, profileSchedule().Profile.Total(), hours, 1e-9, "redistribution conserves hours")
}

func TestEvaluate_GraphTaskSpecificOvertime(t *testing.T) {
	e := newTestEngine(t, Config{})
	p := prepare(t, graphSchedule())
	require.Equal(t, 9, p.BaseWeeks)

	f, err := e.Evaluate(context.Background(), p, Scenario{
		TargetWeeks: 8,
		Mode:        model.OvertimeOneExtraDay,
		Scope:       model.ScopeTaskSpecific,
	})
	require.NoError(t, err)
	require.NotNil(t, f.Compression)
	assert.Equal(t, 8, f.AchievedWeeks)
	assert.Equal(t, 56, f.Compression.ProjectDays)
	assert.InDelta(t, 3990.0, f.WeeklyHours.Total(), 1e-6)

	byID := map[string]DisciplineCost{}
	for _, d := range f.Breakdown(model.P50).Disciplines {
		byID[d.ID] = d
	}
	assert.False(t, byID["elec"].Overtime, "off the critical path")
	assert.Equal(t, 1.0, byID["elec"].PF)
	assert.True(t, byID["civil"].Overtime)
	assert.Less(t, byID["civil"].PF, 1.0)

	wide, err := e.Evaluate(context.Background(), p, Scenario{TargetWeeks: 8, Mode: model.OvertimeOneExtraDay})
	require.NoError(t, err)
	for _, d := range wide.Breakdown(model.P50).Disciplines {
		if d.ID == "elec" {
			assert.True(t, d.Overtime)
		}
	}
	assert.Greater(t, wide.EAC[model.P50], f.EAC[model.P50])
}

func TestEvaluate_GraphBaselineMatchesOriginalCost(t *testing.T) {
	e := newTestEngine(t, Config{})
	p := prepare(t, graphSchedule())

	f, err := e.Evaluate(context.Background(), p, Scenario{TargetWeeks: 9})
	require.NoError(t, err)
	assert.Equal(t, f.BaselineEAC, f.EAC[model.P90])
	assert.Nil(t, f.Stacking)
}

func TestEvaluate_OverrideMultipliesModelPF(t *testing.T) {
	e := newTestEngine(t, Config{})
	p := prepare(t, profileSchedule())

	plain, err := e.Evaluate(context.Background(), p, Scenario{TargetWeeks: 8, Mode: model.OvertimeTwoExtraDays})
	require.NoError(t, err)
	over, err := e.Evaluate(context.Background(), p, Scenario{
		TargetWeeks: 8,
		Mode:        model.OvertimeTwoExtraDays,
		Overrides:   map[string]float64{"civil": 0.9},
	})
	require.NoError(t, err)
	assert.InDelta(t, plain.Productivity["civil"]*0.9, over.Productivity["civil"], 1e-12)
	assert.Equal(t, plain.Productivity["mech"], over.Productivity["mech"])
	assert.Greater(t, over.EAC[model.P50], plain.EAC[model.P50])
}

func TestEvaluate_Errors(t *testing.T) {
	e := newTestEngine(t, Config{})
	p := prepare(t, profileSchedule())

	_, err := e.Evaluate(context.Background(), p, Scenario{TargetWeeks: 3})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Evaluate(ctx, p, Scenario{TargetWeeks: 9})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Prepare(model.Schedule{Name: "empty"})
	assert.ErrorIs(t, err, ErrNoHours)
}

func TestEvaluate_UnknownDisciplineCostsNothing(t *testing.T) {
	s := profileSchedule()
	s.Profile["ghost"] = []float64{10, 10, 10, 10, 10, 10, 10, 10, 10}
	p := prepare(t, s)
	assert.Equal(t, []string{"ghost"}, p.UnknownDisciplines())

	e := newTestEngine(t, Config{})
	f, err := e.Evaluate(context.Background(), p, Scenario{TargetWeeks: 9})
	require.NoError(t, err)
	for _, d := range f.Breakdown(model.P50).Disciplines {
		if d.ID == "ghost" {
			assert.Equal(t, 90.0, d.Hours)
			assert.Zero(t, d.AdjustedCost)
		}
	}
}

func TestEvaluate_MemoizesScenarios(t *testing.T) {
	e := newTestEngine(t, Config{})
	p := prepare(t, profileSchedule())
	sc := Scenario{TargetWeeks: 8, Mode: model.OvertimeOneExtraDay, Overrides: map[string]float64{"elec": 0.95}}

	a, err := e.Evaluate(context.Background(), p, sc)
	require.NoError(t, err)
	b, err := e.Evaluate(context.Background(), p, sc)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, e.CachedForecasts())

	sc.Overrides = map[string]float64{"elec": 0.9}
	c, err := e.Evaluate(context.Background(), p, sc)
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	off := newTestEngine(t, Config{CacheSize: -1})
	x, err := off.Evaluate(context.Background(), p, sc)
	require.NoError(t, err)
	y, err := off.Evaluate(context.Background(), p, sc)
	require.NoError(t, err)
	assert.NotSame(t, x, y)
	assert.Zero(t, off.CachedForecasts())
}

func TestEvaluate_PublishesScenarioEvent(t *testing.T) {
	e := newTestEngine(t, Config{})
	bus := eventbus.New()
	defer bus.Close()
	e.SetEventBus(bus)
	ch := bus.Subscribe()

	_, err := e.Evaluate(context.Background(), prepare(t, profileSchedule()), Scenario{TargetWeeks: 7, Mode: model.OvertimeOneExtraDay})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		se, ok := ev.(events.ScenarioEvent)
		require.True(t, ok)
		assert.Equal(t, "plant", se.Schedule)
		assert.Equal(t, 7, se.AchievedWeeks)
		assert.False(t, se.CacheHit)
	case <-time.After(time.Second):
		t.Fatalf("no scenario event")
	}
}

func TestSweep_FindsMinimumCostDuration(t *testing.T) {
	e := newTestEngine(t, Config{Workers: 3})
	p := prepare(t, profileSchedule())

	curve, err := e.Sweep(context.Background(), p, SweepRequest{Mode: model.OvertimeOneExtraDay})
	require.NoError(t, err)

	assert.Equal(t, 8, curve.MinWeeks, "max(4, ceil(9 × 5/6))")
	assert.Equal(t, 14, curve.MaxWeeks, "ceil(9 × 1.5)")
	require.Len(t, curve.Points, 7)
	for i, pt := range curve.Points {
		assert.Equal(t, 8+i, pt.TargetWeeks)
	}

	base, ok := curve.Point(9)
	require.True(t, ok)
	assert.Equal(t, curve.BaselineEAC, base.Total[model.P50])

	for _, band := range model.RiskBands() {
		best := curve.Points[0]
		for _, pt := range curve.Points[1:] {
			if pt.Total[band] < best.Total[band] {
				best = pt
			}
		}
		assert.Equal(t, best.TargetWeeks, curve.Optimal[band], band.String())
		assert.Equal(t, best.Total[band], curve.OptimalEAC[band])
	}
}

func TestSweep_MonotonicCapacity(t *testing.T) {
	e := newTestEngine(t, Config{})
	p := prepare(t, graphSchedule())
	one, _ := e.Range(p, model.OvertimeOneExtraDay)
	two, _ := e.Range(p, model.OvertimeTwoExtraDays)
	none, _ := e.Range(p, model.OvertimeNone)
	assert.LessOrEqual(t, two, one)
	assert.LessOrEqual(t, one, none)
}

func TestPlan_Limits(t *testing.T) {
	l := prepare(t, profileSchedule()).Limits()
	assert.Equal(t, 9, l.BaseWeeks)
	assert.Equal(t, 9, l.MinWeeks[model.OvertimeNone])
	assert.Equal(t, 8, l.MinWeeks[model.OvertimeOneExtraDay])
	assert.Equal(t, 7, l.MinWeeks[model.OvertimeTwoExtraDays])
	assert.False(t, l.Cyclic)
}

func TestSweep_Cancelled(t *testing.T) {
	e := newTestEngine(t, Config{})
	bus := eventbus.New()
	defer bus.Close()
	e.SetEventBus(bus)
	ch := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Sweep(ctx, prepare(t, profileSchedule()), SweepRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	ev := <-ch
	se, ok := ev.(events.SweepEvent)
	require.True(t, ok)
	assert.Error(t, se.Err)
}

func TestSweep_InvalidRange(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.Sweep(context.Background(), prepare(t, profileSchedule()), SweepRequest{MinWeeks: 10, MaxWeeks: 6})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestStaffing(t *testing.T) {
	e := newTestEngine(t, Config{})
	f, err := e.Evaluate(context.Background(), prepare(t, profileSchedule()), Scenario{TargetWeeks: 9})
	require.NoError(t, err)

	s := Staffing(f)
	require.Len(t, s.Weeks, 9)
	assert.Equal(t, 10, s.Weeks[0].Headcount["civil"], "ceil(459 / 50)")
	assert.Equal(t, 10, s.PeakByDiscipline["civil"])
	assert.Positive(t, s.Peak)
	assert.Equal(t, s.Peak, s.Weeks[s.PeakWeek-1].Total)
}

func TestConfig_Validate(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 5000.0, c.TimeCostPerWeek)

	c.MaxExtensionRatio = 0.5
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
}
