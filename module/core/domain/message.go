package domain

import (
	"fmt"
	"time"
)

// FixMessage is the JSON a device publishes for every location fix.
type FixMessage struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	Timestamp int64    `json:"timestamp"` // unix milliseconds
}

func NewFixMessage(f Fix) FixMessage {
	return FixMessage{
		Latitude:  f.Lat,
		Longitude: f.Lon,
		Speed:     f.Speed,
		Heading:   f.Heading,
		Timestamp: f.CapturedAt.UnixMilli(),
	}
}

func (m FixMessage) Fix() Fix {
	return Fix{
		Lat:        m.Latitude,
		Lon:        m.Longitude,
		Speed:      m.Speed,
		Heading:    m.Heading,
		CapturedAt: time.UnixMilli(m.Timestamp),
	}
}

// FaultMessage is published by a device whose sensor can no longer
// produce fixes (permission revoked, hardware gone, fix timeout).
type FaultMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (m FaultMessage) Err() error {
	return fmt.Errorf("%w: %s: %s", ErrSensorFault, m.Code, m.Message)
}

// PositionMessage is the encoding of a sample for live consumers.
type PositionMessage struct {
	VehicleID string   `json:"vehicle_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	Timestamp int64    `json:"timestamp"`
	Replayed  bool     `json:"replayed,omitempty"`
}

func NewPositionMessage(s PositionSample, replayed bool) PositionMessage {
	return PositionMessage{
		VehicleID: s.VehicleID,
		Latitude:  s.Lat,
		Longitude: s.Lon,
		Speed:     s.Speed,
		Heading:   s.Heading,
		Timestamp: s.CapturedAt.UnixMilli(),
		Replayed:  replayed,
	}
}

// NotificationMessage is the body published to the notification exchange.
type NotificationMessage struct {
	Event      NotificationKind `json:"event"`
	Target     string           `json:"target"`
	VehicleID  string           `json:"vehicle_id"`
	Message    string           `json:"message"`
	DistanceKm float64          `json:"distance_km,omitempty"`
	Timestamp  int64            `json:"timestamp"`
}

func NewNotificationMessage(n *Notification) NotificationMessage {
	return NotificationMessage{
		Event:      n.Kind,
		Target:     n.Target,
		VehicleID:  n.VehicleID,
		Message:    n.Message,
		DistanceKm: n.DistanceKm,
		Timestamp:  n.Timestamp.Unix(),
	}
}

// VehicleTopicPrefix roots every per-vehicle MQTT topic.
const VehicleTopicPrefix = "/fleet/vehicle/"

func FixTopic(vehicleID string) string   { return VehicleTopicPrefix + vehicleID + "/fix" }
func FaultTopic(vehicleID string) string { return VehicleTopicPrefix + vehicleID + "/fault" }
