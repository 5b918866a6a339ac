package sink

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/npiscenarios/core/calibrate"
	"github.com/kilianp07/npiscenarios/core/model"
	coresink "github.com/kilianp07/npiscenarios/core/sink"
	"github.com/kilianp07/npiscenarios/infra/logger"
)

// batchSize bounds the number of points sent per write request.
const batchSize = 5000

// InfluxConfig configures an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Fallback replaces the sink with a NopSink when the health check fails
	// instead of returning an error.
	Fallback bool `json:"fallback"`
}

// InfluxSink writes scenario incidence to an InfluxDB instance using the
// official client. Each row becomes one point timestamped with its date.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkChecked pings the instance before returning the sink. When
// the check fails the sink is closed and either a NopSink (cfg.Fallback) or
// the error is returned.
func NewInfluxSinkChecked(ctx context.Context, cfg InfluxConfig) (coresink.Sink, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, model.ConfigErrorf("influx sink: url and bucket are required")
	}
	sink := NewInfluxSink(cfg.URL, cfg.Token, cfg.Org, cfg.Bucket)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err == nil && health.Status != "pass" {
		err = model.ConfigErrorf("influx health status: %s", health.Status)
	}
	if err != nil {
		sink.client.Close()
		if cfg.Fallback {
			sink.log.Warnf("influx health check failed, results will not be stored: %v", err)
			return coresink.NopSink{}, nil
		}
		return nil, err
	}
	return sink, nil
}

// Write sends one scenario_incidence point per row.
func (s *InfluxSink) Write(ctx context.Context, run coresink.Run, table model.Table) error {
	points := make([]*write.Point, 0, min(batchSize, table.Len()))
	for _, r := range table.Rows {
		points = append(points, write.NewPointWithMeasurement("scenario_incidence").
			AddTag("run", run.ID.String()).
			AddTag("mode", run.Mode).
			AddTag("label", string(r.Label)).
			AddTag("scenario", r.Scenario).
			AddField("incidence", round3(r.Incidence)).
			AddField("r0", r.R0).
			AddField("day", r.Day).
			SetTime(r.Date))
		if len(points) == batchSize {
			if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
				return err
			}
			points = points[:0]
		}
	}
	if len(points) > 0 {
		if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
			return err
		}
	}
	s.log.Debugf("wrote %d points for run %s", table.Len(), run.ID)
	return nil
}

// WriteFits records the calibration ranking at the run creation time.
func (s *InfluxSink) WriteFits(ctx context.Context, run coresink.Run, fits []calibrate.Fit) error {
	if len(fits) == 0 {
		return nil
	}
	points := make([]*write.Point, len(fits))
	for i, f := range fits {
		points[i] = write.NewPointWithMeasurement("scenario_fit").
			AddTag("run", run.ID.String()).
			AddTag("label", string(f.Label)).
			AddTag("scenario", f.Scenario).
			AddField("rank", i+1).
			AddField("rmse", round3(f.RMSE)).
			AddField("r0", f.R0).
			AddField("days", f.Days).
			SetTime(run.Created)
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
