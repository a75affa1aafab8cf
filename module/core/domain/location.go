package domain

import "time"

// Fix is one reading delivered by a device location sensor.
type Fix struct {
	Lat        float64
	Lon        float64
	Speed      *float64 // km/h, nil when the device does not report it
	Heading    *float64 // degrees from north, nil when unknown
	CapturedAt time.Time
}

// PositionSample is an immutable, validated position of a vehicle.
type PositionSample struct {
	VehicleID  string    `json:"vehicle_id" validate:"required,uuid"`
	Lat        float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Lon        float64   `json:"longitude" validate:"gte=-180,lte=180"`
	Speed      *float64  `json:"speed" validate:"omitempty,gte=0,lte=200"`
	Heading    *float64  `json:"heading" validate:"omitempty,gte=0,lte=360"`
	CapturedAt time.Time `json:"timestamp"`
}

func NewPositionSample(vehicleID string, f Fix) PositionSample {
	return PositionSample{
		VehicleID:  vehicleID,
		Lat:        f.Lat,
		Lon:        f.Lon,
		Speed:      f.Speed,
		Heading:    f.Heading,
		CapturedAt: f.CapturedAt,
	}
}

// PositionEvent is what the router hands to a subscriber. Replayed is set
// on the sample delivered immediately on subscribe.
type PositionEvent struct {
	Sample   PositionSample
	Replayed bool
}

// Ack confirms a sample was accepted by the ingestion gateway.
type Ack struct {
	VehicleID  string
	CapturedAt time.Time
	Persisted  bool
}

type HistoryQuery struct {
	VehicleID string
	Start     time.Time
	End       time.Time
}
