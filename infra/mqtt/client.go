// Package mqtt publishes forecast results to an MQTT broker with Eclipse
// Paho. The Publisher implements the metrics recorders so it can be wired
// as a regular metrics sink.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/crunch/core/forecast"
	coremetrics "github.com/kilianp07/crunch/core/metrics"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	Retain      bool        `json:"retain"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	AuthMethod  string      `json:"auth_method"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "crunch"
	}
	if c.ClientID == "" {
		c.ClientID = "crunch-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the mandatory settings.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2")
	}
	return nil
}

// StatusTopic is the retained topic carrying "online" or "offline".
func (c Config) StatusTopic() string { return c.TopicPrefix + "/status" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Publisher sends scenario, sweep and curve messages to
// <prefix>/<schedule>/<kind>.
type Publisher struct {
	cli        pahoClient
	cfg        Config
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// NewPublisher connects to the MQTT broker. The broker keeps a retained
// "offline" status as last will; "online" is published on every connect.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_publisher")
	p := &Publisher{
		cfg:        cfg,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		now:        time.Now,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Publish(cfg.StatusTopic(), cfg.QoS, true, "online"); token.Wait() && token.Error() != nil {
			log.Errorf("status publish error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.TopicPrefix != "" {
		opts.SetWill(cfg.StatusTopic(), "offline", cfg.QoS, true)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// Topic returns the topic of a message kind for a schedule. Characters
// reserved by MQTT are replaced in the schedule name.
func (p *Publisher) Topic(schedule, kind string) string {
	name := strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_").Replace(schedule)
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("%s/%s/%s", p.cfg.TopicPrefix, name, kind)
}

type envelope struct {
	MessageID string `json:"message_id"`
	Kind      string `json:"kind"`
	Schedule  string `json:"schedule"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

type scenarioPayload struct {
	TargetWeeks   int                        `json:"target_weeks"`
	AchievedWeeks int                        `json:"achieved_weeks"`
	Mode          model.OvertimeMode         `json:"mode"`
	EAC           map[model.RiskBand]float64 `json:"eac"`
	DurationMS    float64                    `json:"duration_ms"`
	CacheHit      bool                       `json:"cache_hit"`
}

type sweepPayload struct {
	Mode     model.OvertimeMode     `json:"mode"`
	Points   int                    `json:"points"`
	Optimal  map[model.RiskBand]int `json:"optimal"`
	Failed   bool                   `json:"failed"`
	Duration float64                `json:"duration_ms"`
}

// RecordScenario publishes an evaluated scenario.
func (p *Publisher) RecordScenario(rec coremetrics.ScenarioRecord) error {
	return p.publish(rec.Schedule, "scenario", scenarioPayload{
		TargetWeeks:   rec.TargetWeeks,
		AchievedWeeks: rec.AchievedWeeks,
		Mode:          rec.Mode,
		EAC:           rec.EAC,
		DurationMS:    float64(rec.Duration.Microseconds()) / 1000,
		CacheHit:      rec.CacheHit,
	})
}

// RecordSweep publishes a sweep summary.
func (p *Publisher) RecordSweep(rec coremetrics.SweepRecord) error {
	return p.publish(rec.Schedule, "sweep", sweepPayload{
		Mode:     rec.Mode,
		Points:   rec.Points,
		Optimal:  rec.Optimal,
		Failed:   rec.Failed,
		Duration: float64(rec.Duration.Microseconds()) / 1000,
	})
}

// RecordCurve publishes a full duration-cost curve.
func (p *Publisher) RecordCurve(runID string, curve *forecast.DurationCostCurve) error {
	return p.publish(curve.Schedule, "curve", struct {
		RunID string                      `json:"run_id"`
		Curve *forecast.DurationCostCurve `json:"curve"`
	}{runID, curve})
}

func (p *Publisher) publish(schedule, kind string, data any) error {
	msgID := uuid.NewString()
	payload, err := json.Marshal(envelope{
		MessageID: msgID,
		Kind:      kind,
		Schedule:  schedule,
		Timestamp: p.now().UnixMilli(),
		Data:      data,
	})
	if err != nil {
		return err
	}

	topic := p.Topic(schedule, kind)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("sent %s %s to %s", kind, msgID, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Close publishes the offline status and disconnects.
func (p *Publisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Publish(p.cfg.StatusTopic(), p.cfg.QoS, true, "offline").Wait()
		p.cli.Disconnect(250)
	}
}
