package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/database"
)

var _ database.PositionRepository = (*PositionRepo)(nil)

const positionColumns = `bus_id, latitude, longitude, speed, heading, recorded_at`

type PositionRepo struct {
	db *sql.DB
}

func NewPositionRepo(db *sql.DB) *PositionRepo {
	return &PositionRepo{db: db}
}

func (r *PositionRepo) Append(ctx context.Context, s *domain.PositionSample) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bus_locations (`+positionColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		s.VehicleID, s.Lat, s.Lon, nullFloat(s.Speed), nullFloat(s.Heading), s.CapturedAt,
	)
	return err
}

func (r *PositionRepo) Latest(ctx context.Context, vehicleID string) (*domain.PositionSample, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+positionColumns+` FROM bus_locations WHERE bus_id = $1 ORDER BY recorded_at DESC LIMIT 1`,
		vehicleID,
	)

	s, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PositionRepo) History(ctx context.Context, query *domain.HistoryQuery) ([]domain.PositionSample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+positionColumns+` FROM bus_locations WHERE bus_id = $1 AND recorded_at >= $2 AND recorded_at <= $3 ORDER BY recorded_at ASC`,
		query.VehicleID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.PositionSample
	for rows.Next() {
		s, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *s)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(sc scanner) (*domain.PositionSample, error) {
	var (
		s              domain.PositionSample
		speed, heading sql.NullFloat64
	)
	if err := sc.Scan(&s.VehicleID, &s.Lat, &s.Lon, &speed, &heading, &s.CapturedAt); err != nil {
		return nil, err
	}
	s.Speed = floatPtr(speed)
	s.Heading = floatPtr(heading)
	return &s, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
