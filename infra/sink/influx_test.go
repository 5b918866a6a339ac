package sink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/npiscenarios/core/model"
	coresink "github.com/kilianp07/npiscenarios/core/sink"
	"github.com/kilianp07/npiscenarios/infra/logger"
)

type debugRecorder struct {
	logger.NopLogger
	lines []string
}

func (r *debugRecorder) Debugf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestInfluxSink_Write(t *testing.T) {
	var body, bucket string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		bucket = r.URL.Query().Get("bucket")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "scenarios")
	defer func() { _ = sink.Close() }()
	run := coresink.NewRun("metro", "projection")
	table := sampleTable()
	if err := sink.Write(context.Background(), run, table); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if bucket != "scenarios" {
		t.Errorf("unexpected bucket %q", bucket)
	}
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != table.Len() {
		t.Fatalf("expected %d lines, got %d: %s", table.Len(), len(lines), body)
	}
	r := table.Rows[0]
	p := write.NewPointWithMeasurement("scenario_incidence").
		AddTag("run", run.ID.String()).
		AddTag("mode", "projection").
		AddTag("label", "R0=2.5, lockdown").
		AddTag("scenario", "lockdown").
		AddField("incidence", 12.346).
		AddField("r0", 2.5).
		AddField("day", 1).
		SetTime(r.Date)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if lines[0] != expected {
		t.Errorf("unexpected line:\n got %s\nwant %s", lines[0], expected)
	}
}

func TestInfluxSink_WriteFullBatchLogs(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		requests++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	day1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	table := model.Table{Rows: make([]model.Row, batchSize)}
	for i := range table.Rows {
		table.Rows[i] = model.Row{Label: "R0=2.0, none", Scenario: "none", R0: 2, Day: i + 1, Date: day1.AddDate(0, 0, i), Incidence: 1}
	}

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer func() { _ = sink.Close() }()
	rec := &debugRecorder{}
	sink.log = rec
	if err := sink.Write(context.Background(), coresink.NewRun("x", "projection"), table); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if requests != 1 {
		t.Errorf("expected one batch request, got %d", requests)
	}
	if len(rec.lines) != 1 || !strings.Contains(rec.lines[0], fmt.Sprintf("wrote %d points", batchSize)) {
		t.Errorf("expected a write summary, got %v", rec.lines)
	}
}

func TestInfluxSink_WriteFits(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer func() { _ = sink.Close() }()
	if err := sink.WriteFits(context.Background(), coresink.NewRun("metro", "calibration"), sampleFits()); err != nil {
		t.Fatalf("write fits: %v", err)
	}
	if n := strings.Count(strings.TrimSpace(body), "\n") + 1; n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}
	if !strings.HasPrefix(body, "scenario_fit,") || !strings.Contains(body, "rank=1i") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_WriteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer func() { _ = sink.Close() }()
	if err := sink.Write(context.Background(), coresink.NewRun("x", "projection"), sampleTable()); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestNewInfluxSinkChecked(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	cfg := InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket", Fallback: true}
	s, err := NewInfluxSinkChecked(context.Background(), cfg)
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	if _, ok := s.(coresink.NopSink); !ok {
		t.Fatalf("expected NopSink on failing health check, got %T", s)
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}

	cfg.Fallback = false
	if _, err := NewInfluxSinkChecked(context.Background(), cfg); err == nil {
		t.Fatalf("expected health check error")
	}

	if _, err := NewInfluxSinkChecked(context.Background(), InfluxConfig{}); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestNewInfluxSinkCheckedHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"influxdb","message":"ready for queries and writes","status":"pass","checks":[]}`)
	}))
	defer srv.Close()

	s, err := NewInfluxSinkChecked(context.Background(), InfluxConfig{URL: srv.URL, Bucket: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*InfluxSink); !ok {
		t.Fatalf("expected InfluxSink, got %T", s)
	}
	_ = s.Close()
}
