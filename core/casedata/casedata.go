// Package casedata loads observed daily case counts and derives the daily
// total and the trailing seven-day rolling mean used for calibration.
package casedata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/npiscenarios/core/model"
)

// Window is the length of the trailing rolling mean in days.
const Window = 7

// Options describes the case file layout.
type Options struct {
	// Year is applied to day/month dates.
	Year int `json:"year" default:"2020" validate:"gte=1900"`
	// DateColumn names the date column.
	DateColumn string `json:"date_column" default:"date"`
	// Columns lists the count columns to sum. When empty every column whose
	// name starts with Prefix is used.
	Columns []string `json:"columns"`
	Prefix  string   `json:"prefix" default:"local"`
}

// Day is one observed day.
type Day struct {
	Date  time.Time `json:"date"`
	Total float64   `json:"total"`
	// Rolling7 is the mean of the last seven totals, NaN while fewer than
	// seven days are available.
	Rolling7 float64 `json:"rolling7"`
}

// Series is a date-ordered list of consecutive days. Dates missing from the
// case file appear with a zero total.
type Series []Day

// Observation pairs a date with an observed value.
type Observation struct {
	Date  time.Time
	Cases float64
}

// Observed returns the rolling means, skipping incomplete windows.
func (s Series) Observed() []Observation {
	var out []Observation
	for _, d := range s {
		if !math.IsNaN(d.Rolling7) {
			out = append(out, Observation{Date: d.Date, Cases: d.Rolling7})
		}
	}
	return out
}

// Load reads the case file at path.
func Load(path string, opts Options) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.DataLoadError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	return decode(f, path, opts)
}

// Decode reads case data from r.
func Decode(r io.Reader, opts Options) (Series, error) {
	return decode(r, "<input>", opts)
}

func decode(r io.Reader, path string, opts Options) (Series, error) {
	fail := func(line int, err error) (Series, error) {
		return nil, &model.DataLoadError{Path: path, Line: line, Err: err}
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fail(0, errors.New("empty file"))
		}
		return fail(1, err)
	}
	dateIdx, countIdx, err := columns(header, opts)
	if err != nil {
		return fail(1, err)
	}

	var days Series
	seen := make(map[time.Time]int)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return fail(line, err)
		}
		date, err := parseDate(rec[dateIdx], opts.Year)
		if err != nil {
			return fail(line, err)
		}
		if prev, ok := seen[date]; ok {
			return fail(line, fmt.Errorf("date %s already on line %d", date.Format(time.DateOnly), prev))
		}
		seen[date] = line
		total := 0.0
		for _, i := range countIdx {
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			n, err := strconv.ParseFloat(v, 64)
			if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
				return fail(line, fmt.Errorf("column %q: invalid count %q", header[i], rec[i]))
			}
			total += n
		}
		days = append(days, Day{Date: date, Total: total})
	}
	if len(days) == 0 {
		return fail(0, errors.New("no case rows"))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	days = days.fillGaps()
	days.rolling()
	return days, nil
}

// fillGaps inserts a zero-count day for every calendar date missing between
// the first and last observation, so rolling windows span seven days.
func (s Series) fillGaps() Series {
	if len(s) == 0 {
		return s
	}
	span := int(s[len(s)-1].Date.Sub(s[0].Date).Hours()/24) + 1
	if span == len(s) {
		return s
	}
	out := make(Series, 0, span)
	for _, d := range s {
		if n := len(out); n > 0 {
			for next := out[n-1].Date.AddDate(0, 0, 1); next.Before(d.Date); next = next.AddDate(0, 0, 1) {
				out = append(out, Day{Date: next})
			}
		}
		out = append(out, d)
	}
	return out
}

func (s Series) rolling() {
	totals := make([]float64, len(s))
	for i, d := range s {
		totals[i] = d.Total
	}
	for i := range s {
		if i+1 < Window {
			s[i].Rolling7 = math.NaN()
			continue
		}
		s[i].Rolling7 = stat.Mean(totals[i+1-Window:i+1], nil)
	}
}

func columns(header []string, opts Options) (int, []int, error) {
	dateCol := opts.DateColumn
	if dateCol == "" {
		dateCol = "date"
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateIdx, ok := index[strings.ToLower(dateCol)]
	if !ok {
		return 0, nil, fmt.Errorf("missing date column %q", dateCol)
	}
	var counts []int
	if len(opts.Columns) > 0 {
		for _, c := range opts.Columns {
			i, ok := index[strings.ToLower(c)]
			if !ok {
				return 0, nil, fmt.Errorf("missing count column %q", c)
			}
			counts = append(counts, i)
		}
		return dateIdx, counts, nil
	}
	prefix := strings.ToLower(opts.Prefix)
	if prefix == "" {
		prefix = "local"
	}
	for i, h := range header {
		if i != dateIdx && strings.HasPrefix(strings.ToLower(strings.TrimSpace(h)), prefix) {
			counts = append(counts, i)
		}
	}
	if len(counts) == 0 {
		return 0, nil, fmt.Errorf("no count columns with prefix %q", prefix)
	}
	return dateIdx, counts, nil
}

// parseDate accepts day/month with the year taken from year, or
// day/month/year.
func parseDate(s string, year int) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 && len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", s)
		}
		nums[i] = n
	}
	if len(nums) == 3 {
		year = nums[2]
	}
	day, month := nums[0], nums[1]
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
