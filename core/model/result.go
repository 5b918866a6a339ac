package model

import "time"

// Label names a scenario combination, e.g. "R0=8.0, 50% reduction".
type Label string

// Point is the incidence of one simulated day.
type Point struct {
	Day       int     `json:"day"`
	Incidence float64 `json:"incidence"`
}

// Result is a simulator output, one point per simulated day.
type Result []Point

// Row is one day of one scenario in the merged table.
type Row struct {
	Label     Label     `json:"label"`
	Scenario  string    `json:"scenario"`
	R0        float64   `json:"r0"`
	Day       int       `json:"day"`
	Date      time.Time `json:"date"`
	Incidence float64   `json:"incidence"`
}

// Table is the merged scenario table. Rows of one label are contiguous and
// ordered by day; labels appear in evaluation order.
type Table struct {
	Rows []Row `json:"rows"`
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Labels returns the distinct labels in order of first appearance.
func (t Table) Labels() []Label {
	var out []Label
	seen := make(map[Label]bool)
	for _, r := range t.Rows {
		if !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	return out
}

// Series returns the rows for a label.
func (t Table) Series(l Label) []Row {
	var out []Row
	for _, r := range t.Rows {
		if r.Label == l {
			out = append(out, r)
		}
	}
	return out
}
