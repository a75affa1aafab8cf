package device

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

const publishTimeout = 5 * time.Second

// Fault codes reported by the device agent.
const (
	FaultSensorUnavailable = "sensor_unavailable"
	FaultFixTimeout        = "fix_timeout"
)

type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends one vehicle's fixes and faults to the broker.
type Publisher struct {
	client    client
	vehicleID string
}

func NewPublisher(c mqtt.Client, vehicleID string) *Publisher {
	return &Publisher{client: c, vehicleID: vehicleID}
}

func (p *Publisher) PublishFix(f domain.Fix) error {
	return p.publish(domain.FixTopic(p.vehicleID), domain.NewFixMessage(f))
}

func (p *Publisher) PublishFault(code, message string) error {
	return p.publish(domain.FaultTopic(p.vehicleID), domain.FaultMessage{Code: code, Message: message})
}

func (p *Publisher) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
