package model

import "math"

// Schedule is a daily intervention multiplier series. Day 1 is the first
// simulated day; 1 means no reduction and 0 full suppression. A Schedule is
// immutable: constructors copy their input and accessors return copies.
type Schedule struct {
	values []float64
}

// NewSchedule validates and copies values into a Schedule.
func NewSchedule(values []float64) (Schedule, error) {
	if len(values) == 0 {
		return Schedule{}, ConfigErrorf("schedule must cover at least one day")
	}
	for i, v := range values {
		if !ValidLevel(v) {
			return Schedule{}, ConfigErrorf("schedule day %d: level %v outside [0,1]", i+1, v)
		}
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	return Schedule{values: cp}, nil
}

// ValidLevel reports whether v is a usable multiplier.
func ValidLevel(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Len returns the number of days covered.
func (s Schedule) Len() int { return len(s.values) }

// Day returns the multiplier for day d (1-based). It panics when d is out of
// range, like a slice index.
func (s Schedule) Day(d int) float64 { return s.values[d-1] }

// Values returns a copy of the daily multipliers.
func (s Schedule) Values() []float64 {
	cp := make([]float64, len(s.values))
	copy(cp, s.values)
	return cp
}

// Equal reports whether both schedules hold identical values.
func (s Schedule) Equal(o Schedule) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for i := range s.values {
		if s.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// Breakpoint switches a schedule to Level. Offset k takes effect on day k+1.
type Breakpoint struct {
	Offset int     `json:"offset" yaml:"offset"`
	Level  float64 `json:"level" yaml:"level"`
}
