package domain

import "time"

type SessionState string

const (
	SessionIdle     SessionState = "idle"
	SessionStarting SessionState = "starting"
	SessionActive   SessionState = "active"
	SessionStopping SessionState = "stopping"
	SessionFaulted  SessionState = "faulted"
)

// SessionStatus is a point-in-time snapshot of a tracking session.
type SessionStatus struct {
	ID              string       `json:"id"`
	VehicleID       string       `json:"vehicle_id"`
	OperatorID      string       `json:"operator_id"`
	State           SessionState `json:"state"`
	StartedAt       time.Time    `json:"started_at"`
	LastFixAt       *time.Time   `json:"last_fix_at,omitempty"`
	Fixes           int64        `json:"fixes"`
	PersistFailures int64        `json:"persist_failures"`
	LastError       string       `json:"last_error,omitempty"`
}
