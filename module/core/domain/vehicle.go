package domain

// Vehicle is a tracked bus as held by the fleet registry.
type Vehicle struct {
	ID        string  `json:"id"`
	Number    string  `json:"bus_number"`
	RouteName string  `json:"route_name"`
	Active    bool    `json:"is_active"`
	DriverID  *string `json:"driver_id,omitempty"`
}

// AssignedTo reports whether operatorID is the vehicle's driver.
func (v *Vehicle) AssignedTo(operatorID string) bool {
	return v.DriverID != nil && *v.DriverID == operatorID
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDriver  Role = "driver"
	RoleStudent Role = "student"
)

// Identity is a caller resolved by the identity and role store.
type Identity struct {
	UserID string
	Role   Role
}
