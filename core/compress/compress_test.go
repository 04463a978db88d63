package compress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/crunch/core/cpm"
	"github.com/kilianp07/crunch/core/model"
)

func diamond() *cpm.Network {
	return cpm.NewNetwork(
		[]model.Task{
			{ID: "a", DisciplineID: "civil", Start: 0, End: 10, Hours: 400},
			{ID: "b", DisciplineID: "mech", Start: 10, End: 40, Hours: 1200},
			{ID: "c", DisciplineID: "elec", Start: 10, End: 15, Hours: 150},
			{ID: "d", DisciplineID: "civil", Start: 40, End: 50, Hours: 300},
		},
		[]model.Relationship{
			{From: "a", To: "b"}, {From: "a", To: "c"},
			{From: "b", To: "d"}, {From: "c", To: "d"},
		},
	)
}

func chain() *cpm.Network {
	return cpm.NewNetwork(
		[]model.Task{
			{ID: "a", DisciplineID: "civil", Start: 0, End: 5, Hours: 50},
			{ID: "b", DisciplineID: "mech", Start: 5, End: 8, Hours: 30},
		},
		[]model.Relationship{{From: "a", To: "b", Type: model.FinishStart}},
	)
}

func byID(res Result, id string) TaskSchedule {
	for _, t := range res.Tasks {
		if t.ID == id {
			return t
		}
	}
	return TaskSchedule{}
}

func TestCompress_ReportsCriticalPathAndWaves(t *testing.T) {
	res := Compress(diamond(), 8, 8, model.OvertimeNone)
	assert.Equal(t, []string{"a", "b", "d"}, res.CriticalPath)
	require.Len(t, res.Waves, 3)
	assert.Equal(t, cpm.Wave{Start: 0, TaskIDs: []string{"a"}, IsCritical: true}, res.Waves[0])
	assert.Equal(t, 10, res.Waves[1].Start)
	assert.Equal(t, []string{"b", "c"}, res.Waves[1].TaskIDs)
	assert.Equal(t, []string{"d"}, res.Waves[2].TaskIDs)

	crashed := Compress(diamond(), 6, 8, model.OvertimeTwoExtraDays)
	assert.NotEmpty(t, crashed.CriticalPath)
	assert.Equal(t, crashed.Tasks[0].Start, crashed.Waves[0].Start)
}

func TestMinDays(t *testing.T) {
	tests := []struct {
		orig int
		mode model.OvertimeMode
		want int
	}{
		{0, model.OvertimeTwoExtraDays, 0},
		{1, model.OvertimeTwoExtraDays, 1},
		{5, model.OvertimeNone, 5},
		{5, model.OvertimeOneExtraDay, 5},
		{5, model.OvertimeTwoExtraDays, 4},
		{7, model.OvertimeTwoExtraDays, 5},
		{6, model.OvertimeOneExtraDay, 5},
		{30, model.OvertimeTwoExtraDays, 22},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MinDays(tt.orig, tt.mode), "orig=%d mode=%s", tt.orig, tt.mode)
	}
}

func TestCompress_TargetEqualsBaseline(t *testing.T) {
	for _, mode := range model.OvertimeModes() {
		res := Compress(diamond(), 8, 8, mode)
		assert.Equal(t, 8, res.AchievedWeeks, mode.String())
		for _, ts := range res.Tasks {
			assert.Equal(t, ts.OrigDays, ts.NewDays, "task %s", ts.ID)
		}
		assert.Zero(t, res.Iterations)
	}
}

func TestCompress_CrashesOnlyCriticalTasks(t *testing.T) {
	res := Compress(diamond(), 7, 8, model.OvertimeTwoExtraDays)
	assert.Equal(t, 7, res.AchievedWeeks)
	assert.Equal(t, 5, byID(res, "c").NewDays)
	assert.Less(t, byID(res, "b").NewDays, 30)
	assert.Equal(t, 1.0, res.Ratios["elec"])
	assert.Less(t, res.Ratios["mech"], 1.0)
	assert.LessOrEqual(t, res.ProjectDays, 49)
}

func TestCompress_FloorEnforced(t *testing.T) {
	for _, mode := range model.OvertimeModes() {
		for target := 4; target < 8; target++ {
			res := Compress(diamond(), target, 8, mode)
			for _, ts := range res.Tasks {
				assert.GreaterOrEqual(t, ts.NewDays, MinDays(ts.OrigDays, mode),
					"mode=%s target=%d task=%s", mode, target, ts.ID)
				assert.GreaterOrEqual(t, ts.NewDays, 1)
			}
		}
	}
}

func TestCompress_NoOvertimeCannotCrash(t *testing.T) {
	res := Compress(diamond(), 5, 8, model.OvertimeNone)
	assert.True(t, res.FloorReached)
	assert.Equal(t, 8, res.AchievedWeeks)
}

func TestCompress_ChainBelowFloorKeepsSuccessorPinned(t *testing.T) {
	for _, mode := range []model.OvertimeMode{model.OvertimeOneExtraDay, model.OvertimeTwoExtraDays} {
		res := Compress(chain(), 0, 2, mode)
		a, b := byID(res, "a"), byID(res, "b")
		assert.GreaterOrEqual(t, b.Start, 0)
		assert.Equal(t, a.Finish, b.Start, mode.String())
		assert.True(t, res.FloorReached)
		assert.Equal(t, MinAchievableWeeks, res.AchievedWeeks)
	}
	res := Compress(chain(), 0, 2, model.OvertimeTwoExtraDays)
	assert.Equal(t, 4, byID(res, "a").NewDays)
	assert.Equal(t, 3, byID(res, "b").NewDays)
}

func TestCompress_Extension(t *testing.T) {
	res := Compress(diamond(), 16, 8, model.OvertimeNone)
	for _, ts := range res.Tasks {
		assert.GreaterOrEqual(t, ts.NewDays, ts.OrigDays)
	}
	assert.Equal(t, 100, res.ProjectDays)
	assert.Equal(t, 15, res.AchievedWeeks)
	assert.Equal(t, 2.0, res.Ratios["civil"])
}

func TestCompress_DoesNotMutateInput(t *testing.T) {
	base := diamond()
	Compress(base, 4, 8, model.OvertimeTwoExtraDays)
	for _, n := range base.Nodes {
		assert.Equal(t, n.OrigDays, n.Days)
	}
}

func TestMinWeeks_MoreOvertimeIsNeverSlower(t *testing.T) {
	for _, net := range []*cpm.Network{diamond(), chain()} {
		one := MinWeeks(net, 8, model.OvertimeOneExtraDay)
		two := MinWeeks(net, 8, model.OvertimeTwoExtraDays)
		none := MinWeeks(net, 8, model.OvertimeNone)
		assert.LessOrEqual(t, two, one)
		assert.LessOrEqual(t, one, none)
	}
}

func TestWeeklyHours_ConservesTaskHours(t *testing.T) {
	for _, target := range []int{5, 6, 7, 8, 12} {
		res := Compress(diamond(), target, 8, model.OvertimeTwoExtraDays)
		require.Len(t, res.WeeklyHours["civil"], res.AchievedWeeks)
		assert.InDelta(t, 2050, res.WeeklyHours.Total(), 1e-6, "target=%d", target)
		assert.InDelta(t, 700, sum(res.WeeklyHours["civil"]), 1e-6)
	}
}

func TestWeeklyHours_Milestone(t *testing.T) {
	net := cpm.NewNetwork([]model.Task{
		{ID: "a", DisciplineID: "civil", Start: 0, End: 14, Hours: 140},
		{ID: "m", DisciplineID: "qa", Start: 14, End: 14, Hours: 8},
	}, []model.Relationship{{From: "a", To: "m"}})
	net.Analyze()
	hours := WeeklyHours(net, 4)
	assert.Equal(t, []float64{70, 70, 0, 0}, hours["civil"])
	assert.Equal(t, []float64{0, 0, 8, 0}, hours["qa"])
}

func sum(s []float64) float64 {
	var t float64
	for _, v := range s {
		t += v
	}
	return t
}
