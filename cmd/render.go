package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kilianp07/npiscenarios/core/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// renderRows prints rows as a bordered table, or as CSV when the csv
// format is selected.
func renderRows(w io.Writer, headers []string, rows [][]string) error {
	if format == "csv" {
		cw := csv.NewWriter(w)
		if err := cw.Write(headers); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

type labelSummary struct {
	Label    model.Label
	Total    float64
	PeakDay  int
	PeakDate time.Time
	Peak     float64
}

// summarize reduces a table to one line per label, in table order.
func summarize(t model.Table) []labelSummary {
	labels := t.Labels()
	out := make([]labelSummary, len(labels))
	for i, l := range labels {
		s := labelSummary{Label: l}
		for _, r := range t.Series(l) {
			s.Total += r.Incidence
			if s.PeakDay == 0 || r.Incidence > s.Peak {
				s.Peak, s.PeakDay, s.PeakDate = r.Incidence, r.Day, r.Date
			}
		}
		out[i] = s
	}
	return out
}

func summaryRows(t model.Table) [][]string {
	sums := summarize(t)
	rows := make([][]string, len(sums))
	for i, s := range sums {
		rows[i] = []string{
			string(s.Label),
			num(s.Total),
			strconv.Itoa(s.PeakDay),
			s.PeakDate.Format(time.DateOnly),
			num(s.Peak),
		}
	}
	return rows
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
