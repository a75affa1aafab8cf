package database

import (
	"context"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

// PositionRepository is the append-only store for raw position samples.
type PositionRepository interface {
	Append(ctx context.Context, s *domain.PositionSample) error
	Latest(ctx context.Context, vehicleID string) (*domain.PositionSample, error)
	History(ctx context.Context, query *domain.HistoryQuery) ([]domain.PositionSample, error)
}

// RegistryRepository is a read-only view of the fleet and assignment registry.
type RegistryRepository interface {
	VehicleByDriver(ctx context.Context, driverID string) (*domain.Vehicle, error)
	Vehicles(ctx context.Context) ([]domain.Vehicle, error)
	SubscriptionByStudent(ctx context.Context, studentID string) (*domain.Subscription, error)
}

type RoleRepository interface {
	EnsureRole(ctx context.Context, userID string, fallback domain.Role) (domain.Role, error)
}
