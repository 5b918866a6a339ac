package schedule

import (
	"time"

	"github.com/kilianp07/npiscenarios/core/model"
)

// DefaultHold is the number of days an interim level is held by Plateau.
const DefaultHold = 7

// Build returns a schedule of horizon days. Days 1..trigger hold 1.0; each
// breakpoint then holds its level from day Offset+1 until the next breakpoint
// starts, and the last one runs to the end of the horizon. Breakpoints that
// resolve to the same day are applied in order, so the later one wins. A
// breakpoint at offset horizon governs the final day.
func Build(horizon, trigger int, bps []model.Breakpoint) (model.Schedule, error) {
	if horizon < 1 {
		return model.Schedule{}, model.ConfigErrorf("horizon must be at least 1 day, got %d", horizon)
	}
	if trigger < 0 {
		trigger = 0
	}
	if trigger > horizon {
		return model.Schedule{}, model.ConfigErrorf("trigger day %d beyond horizon %d", trigger, horizon)
	}

	starts := make([]int, len(bps))
	prev := trigger
	for i, bp := range bps {
		if !model.ValidLevel(bp.Level) {
			return model.Schedule{}, model.ConfigErrorf("breakpoint %d: level %v outside [0,1]", i, bp.Level)
		}
		off := bp.Offset
		if off < 0 {
			off = 0
		}
		if off < prev {
			return model.Schedule{}, model.ConfigErrorf("breakpoint %d: offset %d precedes %d", i, off, prev)
		}
		if off > horizon {
			return model.Schedule{}, model.ConfigErrorf("breakpoint %d: offset %d beyond horizon %d", i, off, horizon)
		}
		prev = off
		starts[i] = min(off+1, horizon)
	}

	values := make([]float64, horizon)
	for i := range values {
		values[i] = 1
	}
	for i, bp := range bps {
		end := horizon + 1
		if i+1 < len(bps) {
			end = starts[i+1]
		}
		for d := starts[i]; d < end; d++ {
			values[d-1] = bp.Level
		}
	}
	return model.NewSchedule(values)
}

// None returns a schedule without any reduction.
func None(horizon int) (model.Schedule, error) {
	return Build(horizon, horizon, nil)
}

// Plateau returns the three segment shape: no reduction up to trigger, hold
// days at the interim level, then the final level.
func Plateau(trigger int, interim, final float64, hold int) []model.Breakpoint {
	return []model.Breakpoint{
		{Offset: trigger, Level: interim},
		{Offset: trigger + hold, Level: final},
	}
}

// Lift returns a breakpoint that ends every reduction from day offset+1.
func Lift(offset int) model.Breakpoint {
	return model.Breakpoint{Offset: offset, Level: 1}
}

// DatedLevel is a breakpoint expressed as the calendar date it takes effect.
type DatedLevel struct {
	Date  time.Time
	Level float64
}

// FromDates builds a schedule whose day 1 is start. The trigger date is the
// first day that may carry a reduction.
func FromDates(start time.Time, horizon int, trigger time.Time, levels []DatedLevel) (model.Schedule, error) {
	bps := make([]model.Breakpoint, len(levels))
	for i, l := range levels {
		bps[i] = model.Breakpoint{Offset: Offset(start, l.Date), Level: l.Level}
	}
	return Build(horizon, Offset(start, trigger), bps)
}

// Offset returns the number of whole days from start to date, ignoring the
// time of day.
func Offset(start, date time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(s) / (24 * time.Hour))
}
