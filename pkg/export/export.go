package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/npiscenarios/core/calibrate"
	"github.com/kilianp07/npiscenarios/core/model"
)

// TableHeader is the column order of WriteCSV.
var TableHeader = []string{"label", "scenario", "r0", "day", "date", "incidence"}

// FitHeader is the column order of WriteFitsCSV.
var FitHeader = []string{"rank", "label", "scenario", "r0", "rmse", "days"}

// WriteJSON writes the table rows to w as a JSON array.
func WriteJSON(w io.Writer, table model.Table) error {
	rows := table.Rows
	if rows == nil {
		rows = []model.Row{}
	}
	return json.NewEncoder(w).Encode(rows)
}

// WriteCSV writes the table to w in long format, one row per label and day.
func WriteCSV(w io.Writer, table model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TableHeader); err != nil {
		return err
	}
	for _, r := range table.Rows {
		rec := []string{
			string(r.Label),
			r.Scenario,
			formatFloat(r.R0),
			strconv.Itoa(r.Day),
			r.Date.Format(time.DateOnly),
			formatFloat(r.Incidence),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFitsJSON writes a calibration ranking to w as a JSON array.
func WriteFitsJSON(w io.Writer, fits []calibrate.Fit) error {
	if fits == nil {
		fits = []calibrate.Fit{}
	}
	return json.NewEncoder(w).Encode(fits)
}

// WriteFitsCSV writes a calibration ranking to w, best fit first.
func WriteFitsCSV(w io.Writer, fits []calibrate.Fit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FitHeader); err != nil {
		return err
	}
	for i, f := range fits {
		rec := []string{
			strconv.Itoa(i + 1),
			string(f.Label),
			f.Scenario,
			formatFloat(f.R0),
			formatFloat(f.RMSE),
			strconv.Itoa(f.Days),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
