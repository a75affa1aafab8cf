package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

var vehicleCols = []string{"id", "bus_number", "route_name", "is_active", "driver_id"}

func TestVehicleByDriver_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT (.+) FROM buses WHERE driver_id = (.+)`).
		WithArgs("driver-1").
		WillReturnRows(sqlmock.NewRows(vehicleCols).AddRow(busID, "B12", "North Loop", true, "driver-1"))

	repo := NewRegistryRepo(db)
	v, err := repo.VehicleByDriver(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	driver := "driver-1"
	want := &domain.Vehicle{ID: busID, Number: "B12", RouteName: "North Loop", Active: true, DriverID: &driver}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("vehicle mismatch (-want +got):\n%s", diff)
	}
}

func TestVehicleByDriver_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT (.+) FROM buses WHERE driver_id = (.+)`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(vehicleCols))

	repo := NewRegistryRepo(db)
	_, err = repo.VehicleByDriver(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVehicles_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT (.+) FROM buses ORDER BY bus_number`).
		WillReturnRows(sqlmock.NewRows(vehicleCols).
			AddRow(busID, "B12", "North Loop", true, nil).
			AddRow("7a2d0c44-1f0e-4b61-8f5c-0e9d2b3a4c55", "B14", "South Loop", false, "driver-2"))

	repo := NewRegistryRepo(db)
	vehicles, err := repo.Vehicles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(vehicles))
	}
	if vehicles[0].DriverID != nil {
		t.Errorf("expected unassigned first bus")
	}
	if vehicles[1].Active {
		t.Errorf("expected second bus inactive")
	}
}

func TestSubscriptionByStudent_WithStop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT (.+) FROM student_bus_assignments a`).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"bus_id", "bus_number", "stop_name", "stop_latitude", "stop_longitude"}).
			AddRow(busID, "B12", "Library", 0.0, 0.0))

	repo := NewRegistryRepo(db)
	sub, err := repo.SubscriptionByStudent(context.Background(), "student-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &domain.Subscription{
		ConsumerID: "student-1",
		VehicleID:  busID,
		BusNumber:  "B12",
		Stop:       &domain.PointOfInterest{Name: "Library", Lat: 0, Lon: 0},
	}
	if diff := cmp.Diff(want, sub); diff != "" {
		t.Errorf("subscription mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscriptionByStudent_NoStop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT (.+) FROM student_bus_assignments a`).
		WithArgs("student-2").
		WillReturnRows(sqlmock.NewRows([]string{"bus_id", "bus_number", "stop_name", "stop_latitude", "stop_longitude"}).
			AddRow(busID, "B12", nil, nil, nil))

	repo := NewRegistryRepo(db)
	sub, err := repo.SubscriptionByStudent(context.Background(), "student-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Stop != nil {
		t.Errorf("expected no stop, got %+v", sub.Stop)
	}
}

func TestSubscriptionByStudent_NotAssigned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT (.+) FROM student_bus_assignments a`).
		WithArgs("student-3").
		WillReturnRows(sqlmock.NewRows([]string{"bus_id", "bus_number", "stop_name", "stop_latitude", "stop_longitude"}))

	repo := NewRegistryRepo(db)
	_, err = repo.SubscriptionByStudent(context.Background(), "student-3")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
