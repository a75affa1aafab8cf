package publisher

import (
	"context"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

// Notifier delivers notifications to the external notification surface.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}

// PositionPublisher republishes accepted samples to live consumers.
type PositionPublisher interface {
	Publish(vehicleID string, s domain.PositionSample)
}
