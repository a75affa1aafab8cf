package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/database"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/publisher"
)

const DefaultPersistTimeout = 5 * time.Second

// IngestionService validates incoming samples, publishes them to live
// consumers and appends them to the position store.
type IngestionService struct {
	repo           database.PositionRepository
	publishers     []publisher.PositionPublisher
	validate       *validator.Validate
	persistTimeout time.Duration
}

func NewIngestionService(repo database.PositionRepository, persistTimeout time.Duration, pubs ...publisher.PositionPublisher) *IngestionService {
	if persistTimeout <= 0 {
		persistTimeout = DefaultPersistTimeout
	}
	return &IngestionService{
		repo:           repo,
		publishers:     pubs,
		validate:       validator.New(),
		persistTimeout: persistTimeout,
	}
}

// Ingest publishes a valid sample before persisting it. A store failure is
// returned as ErrPersistence, but the sample has already reached live
// consumers by then.
func (s *IngestionService) Ingest(ctx context.Context, sample *domain.PositionSample) (*domain.Ack, error) {
	if err := s.Validate(sample); err != nil {
		return nil, err
	}

	for _, p := range s.publishers {
		p.Publish(sample.VehicleID, *sample)
	}

	ack := &domain.Ack{VehicleID: sample.VehicleID, CapturedAt: sample.CapturedAt}

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.repo.Append(pctx, sample); err != nil {
		return ack, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	ack.Persisted = true
	return ack, nil
}

func (s *IngestionService) Validate(sample *domain.PositionSample) error {
	if sample == nil {
		return fmt.Errorf("%w: empty sample", domain.ErrInvalidSample)
	}
	if err := s.validate.Struct(sample); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s: failed %s", domain.ErrInvalidSample, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidSample, err)
	}
	if sample.CapturedAt.IsZero() || sample.CapturedAt.Unix() <= 0 {
		return fmt.Errorf("%w: timestamp: must be positive", domain.ErrInvalidSample)
	}
	return nil
}

func (s *IngestionService) Latest(ctx context.Context, vehicleID string) (*domain.PositionSample, error) {
	return s.repo.Latest(ctx, vehicleID)
}

func (s *IngestionService) History(ctx context.Context, query *domain.HistoryQuery) ([]domain.PositionSample, error) {
	return s.repo.History(ctx, query)
}
