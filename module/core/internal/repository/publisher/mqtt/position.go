package mqtt

import (
	"encoding/json"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/publisher"
)

var _ publisher.PositionPublisher = (*PositionMirror)(nil)

const publishTimeout = 5 * time.Second

func LocationTopic(vehicleID string) string {
	return domain.VehicleTopicPrefix + vehicleID + "/location"
}

type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// PositionMirror republishes accepted samples on the broker, retained, so
// external subscribers get the latest known position as soon as they
// subscribe.
type PositionMirror struct {
	client client
}

func NewPositionMirror(c paho.Client) *PositionMirror {
	return &PositionMirror{client: c}
}

func (m *PositionMirror) Publish(vehicleID string, s domain.PositionSample) {
	payload, err := json.Marshal(domain.NewPositionMessage(s, false))
	if err != nil {
		log.Printf("position mirror marshal: %v", err)
		return
	}

	token := m.client.Publish(LocationTopic(vehicleID), 1, true, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			log.Printf("position mirror publish %s: timed out", vehicleID)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("position mirror publish %s: %v", vehicleID, err)
		}
	}()
}
