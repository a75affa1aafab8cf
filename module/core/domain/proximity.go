package domain

import "time"

// PointOfInterest is a consumer's stop.
type PointOfInterest struct {
	Name string  `json:"name"`
	Lat  float64 `json:"latitude"`
	Lon  float64 `json:"longitude"`
}

// Subscription binds a consumer to one vehicle and, optionally, a stop.
type Subscription struct {
	ConsumerID string           `json:"consumer_id"`
	VehicleID  string           `json:"vehicle_id"`
	BusNumber  string           `json:"bus_number"`
	Stop       *PointOfInterest `json:"stop,omitempty"`
}

func (s *Subscription) Key() string {
	return s.ConsumerID + "/" + s.VehicleID
}

type ProximityAlert struct {
	Subscription Subscription
	Sample       PositionSample
	DistanceKm   float64
}

type NotificationKind string

const (
	NotificationTrackingStarted NotificationKind = "tracking_started"
	NotificationTrackingStopped NotificationKind = "tracking_stopped"
	NotificationBusApproaching  NotificationKind = "bus_approaching"
)

// Notification is handed to the external notification surface.
type Notification struct {
	Kind       NotificationKind
	Target     string
	VehicleID  string
	Message    string
	DistanceKm float64
	Timestamp  time.Time
}
