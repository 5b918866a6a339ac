package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/npiscenarios/core/calibrate"
	"github.com/kilianp07/npiscenarios/core/model"
	coresink "github.com/kilianp07/npiscenarios/core/sink"
	"github.com/kilianp07/npiscenarios/infra/logger"
)

// MQTTConfig defines the broker connection and publishing options.
type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retain      bool   `json:"retain"`
	TimeoutMS   int    `json:"timeout_ms"`
}

type pahoClient interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// SeriesMessage is published once per label.
type SeriesMessage struct {
	Run       string    `json:"run"`
	Name      string    `json:"name"`
	Mode      string    `json:"mode"`
	Label     string    `json:"label"`
	Scenario  string    `json:"scenario"`
	R0        float64   `json:"r0"`
	Start     string    `json:"start"`
	Incidence []float64 `json:"incidence"`
}

// DoneMessage closes a run.
type DoneMessage struct {
	Run    string   `json:"run"`
	Labels []string `json:"labels"`
	Rows   int      `json:"rows"`
}

// MQTTSink publishes each scenario series as a JSON message under
// <prefix>/<mode>/<run>/series, followed by a done message.
type MQTTSink struct {
	cli     pahoClient
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
	log     logger.Logger
}

// NewMQTTSink connects to the broker.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	if cfg.Broker == "" {
		return nil, model.ConfigErrorf("mqtt sink: broker is required")
	}
	if cfg.QoS > 2 {
		return nil, model.ConfigErrorf("mqtt sink: qos %d outside 0..2", cfg.QoS)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "npiscenarios-" + uuid.NewString()[:8]
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "npiscenarios"
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	log := logger.New("mqtt-sink")
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if err := waitToken(c.Connect(), timeout); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTSink{cli: c, prefix: cfg.TopicPrefix, qos: cfg.QoS, retain: cfg.Retain, timeout: timeout, log: log}, nil
}

// Write implements sink.Sink.
func (s *MQTTSink) Write(ctx context.Context, run coresink.Run, table model.Table) error {
	base := fmt.Sprintf("%s/%s/%s", s.prefix, run.Mode, run.ID)
	labels := table.Labels()
	names := make([]string, len(labels))
	for i, l := range labels {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows := table.Series(l)
		msg := SeriesMessage{
			Run:       run.ID.String(),
			Name:      run.Name,
			Mode:      run.Mode,
			Label:     string(l),
			Scenario:  rows[0].Scenario,
			R0:        rows[0].R0,
			Start:     rows[0].Date.Format(time.DateOnly),
			Incidence: make([]float64, len(rows)),
		}
		for j, r := range rows {
			msg.Incidence[j] = r.Incidence
		}
		if err := s.publish(base+"/series", msg); err != nil {
			return err
		}
		names[i] = string(l)
	}
	return s.publish(base+"/done", DoneMessage{Run: run.ID.String(), Labels: names, Rows: table.Len()})
}

// WriteFits implements sink.FitRecorder.
func (s *MQTTSink) WriteFits(_ context.Context, run coresink.Run, fits []calibrate.Fit) error {
	return s.publish(fmt.Sprintf("%s/%s/%s/fits", s.prefix, run.Mode, run.ID), fits)
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	s.cli.Disconnect(250)
	return nil
}

func (s *MQTTSink) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := waitToken(s.cli.Publish(topic, s.qos, s.retain, payload), s.timeout); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	s.log.Debugf("published %d bytes to %s", len(payload), topic)
	return nil
}

func waitToken(t paho.Token, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return fmt.Errorf("timed out after %s", timeout)
	}
	return t.Error()
}
