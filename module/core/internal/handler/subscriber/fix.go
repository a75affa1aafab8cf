package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/service"
)

const (
	fixTopicPattern   = "/fleet/vehicle/+/fix"
	faultTopicPattern = "/fleet/vehicle/+/fault"

	fixBuffer = 8
)

var _ service.Sensor = (*FixHub)(nil)

// FixHub is the location sensor of every vehicle device. Devices publish
// fixes and faults over MQTT; the hub routes them to the watch opened for
// that vehicle and drops them when nobody is tracking it.
type FixHub struct {
	client mqtt.Client

	mu      sync.RWMutex
	watches map[string]*fixWatch
}

type fixWatch struct {
	hub       *FixHub
	vehicleID string
	fixes     chan domain.Fix
	faults    chan error
	once      sync.Once
}

func NewFixHub(client mqtt.Client) *FixHub {
	return &FixHub{
		client:  client,
		watches: make(map[string]*fixWatch),
	}
}

func (h *FixHub) Start() error {
	if token := h.client.Subscribe(fixTopicPattern, 1, h.handleFix); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", fixTopicPattern, token.Error())
	}
	if token := h.client.Subscribe(faultTopicPattern, 1, h.handleFault); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", faultTopicPattern, token.Error())
	}
	return nil
}

func (h *FixHub) Watch(_ context.Context, vehicleID string) (service.SensorWatch, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.watches[vehicleID]; ok {
		return nil, fmt.Errorf("vehicle %s is already watched", vehicleID)
	}
	w := &fixWatch{
		hub:       h,
		vehicleID: vehicleID,
		fixes:     make(chan domain.Fix, fixBuffer),
		faults:    make(chan error, 1),
	}
	h.watches[vehicleID] = w
	return w, nil
}

func (h *FixHub) handleFix(_ mqtt.Client, msg mqtt.Message) {
	vehicleID, err := vehicleFromTopic(msg.Topic())
	if err != nil {
		log.Printf("invalid fix topic: %v", err)
		return
	}

	var raw domain.FixMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("invalid fix message from %s: %v", vehicleID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	w, ok := h.watches[vehicleID]
	if !ok {
		return
	}
	select {
	case w.fixes <- raw.Fix():
	default:
		log.Printf("fix from %s dropped: session is behind", vehicleID)
	}
}

func (h *FixHub) handleFault(_ mqtt.Client, msg mqtt.Message) {
	vehicleID, err := vehicleFromTopic(msg.Topic())
	if err != nil {
		log.Printf("invalid fault topic: %v", err)
		return
	}

	var raw domain.FaultMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("invalid fault message from %s: %v", vehicleID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	w, ok := h.watches[vehicleID]
	if !ok {
		return
	}
	select {
	case w.faults <- raw.Err():
	default:
	}
}

func (w *fixWatch) Fixes() <-chan domain.Fix { return w.fixes }
func (w *fixWatch) Faults() <-chan error     { return w.faults }

func (w *fixWatch) Close() {
	w.once.Do(func() {
		w.hub.mu.Lock()
		defer w.hub.mu.Unlock()
		if w.hub.watches[w.vehicleID] == w {
			delete(w.hub.watches, w.vehicleID)
		}
		close(w.fixes)
		close(w.faults)
	})
}

func vehicleFromTopic(topic string) (string, error) {
	rest, ok := strings.CutPrefix(topic, domain.VehicleTopicPrefix)
	if !ok {
		return "", fmt.Errorf("topic %q: unexpected prefix", topic)
	}
	vehicleID, _, ok := strings.Cut(rest, "/")
	if !ok || vehicleID == "" {
		return "", fmt.Errorf("topic %q: missing vehicle id", topic)
	}
	return vehicleID, nil
}
