package app

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sat_clock/internal/config"
	"github.com/relabs-tech/sat_clock/internal/env"
	"github.com/relabs-tech/sat_clock/internal/gps"
)

// Status is the periodic health/state report published over MQTT and
// served by the web API.
type Status struct {
	Time       string  `json:"time"`
	Synced     bool    `json:"synced"`
	Lux        float64 `json:"lux"`
	Dark       bool    `json:"dark"`
	Duty       int     `json:"duty"`
	Satellites int     `json:"satellites"`
	HDOP       float64 `json:"hdop"`
	Power      string  `json:"power"`
}

// Telemetry publishes fixes, climate samples and status to the MQTT
// broker. A nil *Telemetry is valid and publishes nothing, so networking
// stays fully optional.
type Telemetry struct {
	client mqtt.Client
	cfg    *config.Config
}

func NewTelemetry(cfg *config.Config) (*Telemetry, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDClock)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.MQTTBroker, token.Error())
	}
	log.Printf("telemetry: connected to MQTT broker at %s", cfg.MQTTBroker)

	return &Telemetry{client: client, cfg: cfg}, nil
}

func (t *Telemetry) publish(topic string, v any) {
	if t == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("telemetry: marshal error on %s: %v", topic, err)
		return
	}
	// Retained fire-and-forget; a dropped sample is replaced within one
	// sampling interval anyway.
	t.client.Publish(topic, 0, true, payload)
}

// PublishFix publishes one decoded fix.
func (t *Telemetry) PublishFix(f gps.Fix) {
	if t == nil {
		return
	}
	t.publish(t.cfg.TopicFix, f)
}

// PublishEnv publishes one climate sample.
func (t *Telemetry) PublishEnv(s env.Sample) {
	if t == nil {
		return
	}
	t.publish(t.cfg.TopicEnv, s)
}

// PublishStatus publishes the periodic status report.
func (t *Telemetry) PublishStatus(st Status) {
	if t == nil {
		return
	}
	t.publish(t.cfg.TopicStatus, st)
}

// Close disconnects from the broker.
func (t *Telemetry) Close() {
	if t == nil {
		return
	}
	t.client.Disconnect(250)
}
