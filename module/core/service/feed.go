package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

type subscriptionRegistry interface {
	SubscriptionByStudent(ctx context.Context, studentID string) (*domain.Subscription, error)
}

type latestStore interface {
	Latest(ctx context.Context, vehicleID string) (*domain.PositionSample, error)
}

type alertDispatcher interface {
	Dispatch(ctx context.Context, alert *domain.ProximityAlert)
	Forget(key string)
}

// FeedService streams a consumer's assigned vehicle to them and raises
// proximity alerts against their stop.
type FeedService struct {
	registry   subscriptionRegistry
	router     *Router
	store      latestStore
	dispatcher alertDispatcher
}

func NewFeedService(registry subscriptionRegistry, router *Router, store latestStore, dispatcher alertDispatcher) *FeedService {
	return &FeedService{
		registry:   registry,
		router:     router,
		store:      store,
		dispatcher: dispatcher,
	}
}

// Subscription resolves the consumer's assignment.
func (f *FeedService) Subscription(ctx context.Context, consumerID string) (*domain.Subscription, error) {
	sub, err := f.registry.SubscriptionByStudent(ctx, consumerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: consumer %s", domain.ErrNotAssigned, consumerID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup subscription: %w", err)
	}
	return sub, nil
}

// Follow delivers position events for sub until ctx is done or deliver
// fails. Only live events are evaluated for proximity; the replayed
// latest sample is informational.
func (f *FeedService) Follow(ctx context.Context, sub *domain.Subscription, deliver func(domain.PositionEvent) error) error {
	f.prime(ctx, sub.VehicleID)

	events, unsubscribe := f.router.Subscribe(sub.ConsumerID, sub.VehicleID)
	defer unsubscribe()
	defer f.dispatcher.Forget(sub.Key())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := deliver(ev); err != nil {
				return err
			}
			if ev.Replayed {
				continue
			}
			if alert := Evaluate(sub, &ev.Sample); alert != nil {
				f.dispatcher.Dispatch(ctx, alert)
			}
		}
	}
}

func (f *FeedService) prime(ctx context.Context, vehicleID string) {
	if _, ok := f.router.Latest(vehicleID); ok {
		return
	}
	s, err := f.store.Latest(ctx, vehicleID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Printf("prime latest %s: %v", vehicleID, err)
		}
		return
	}
	f.router.Prime(vehicleID, *s)
}
