package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/database"
)

var _ database.RegistryRepository = (*RegistryRepo)(nil)

const vehicleColumns = `id, bus_number, route_name, is_active, driver_id`

// RegistryRepo reads buses and student assignments. It never writes.
type RegistryRepo struct {
	db *sql.DB
}

func NewRegistryRepo(db *sql.DB) *RegistryRepo {
	return &RegistryRepo{db: db}
}

func (r *RegistryRepo) VehicleByDriver(ctx context.Context, driverID string) (*domain.Vehicle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM buses WHERE driver_id = $1 LIMIT 1`,
		driverID,
	)
	return scanVehicleRow(row)
}

func (r *RegistryRepo) Vehicles(ctx context.Context) ([]domain.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM buses ORDER BY bus_number`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *v)
	}
	return results, rows.Err()
}

func (r *RegistryRepo) SubscriptionByStudent(ctx context.Context, studentID string) (*domain.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT a.bus_id, b.bus_number, p.stop_name, p.stop_latitude, p.stop_longitude
		 FROM student_bus_assignments a
		 JOIN buses b ON b.id = a.bus_id
		 LEFT JOIN profiles p ON p.id = a.student_id
		 WHERE a.student_id = $1
		 LIMIT 1`,
		studentID,
	)

	var (
		sub              = domain.Subscription{ConsumerID: studentID}
		stopName         sql.NullString
		stopLat, stopLon sql.NullFloat64
	)
	if err := row.Scan(&sub.VehicleID, &sub.BusNumber, &stopName, &stopLat, &stopLon); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if stopLat.Valid && stopLon.Valid {
		sub.Stop = &domain.PointOfInterest{
			Name: stopName.String,
			Lat:  stopLat.Float64,
			Lon:  stopLon.Float64,
		}
	}
	return &sub, nil
}

func scanVehicleRow(row *sql.Row) (*domain.Vehicle, error) {
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return v, err
}

func scanVehicle(sc scanner) (*domain.Vehicle, error) {
	var (
		v        domain.Vehicle
		driverID sql.NullString
	)
	if err := sc.Scan(&v.ID, &v.Number, &v.RouteName, &v.Active, &driverID); err != nil {
		return nil, err
	}
	if driverID.Valid {
		v.DriverID = &driverID.String
	}
	return &v, nil
}
