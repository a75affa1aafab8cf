package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

type fakeSubscriptionRegistry struct {
	subs map[string]*domain.Subscription
}

func (f *fakeSubscriptionRegistry) SubscriptionByStudent(_ context.Context, studentID string) (*domain.Subscription, error) {
	sub, ok := f.subs[studentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

type fakeLatestStore struct {
	sample *domain.PositionSample
	err    error
}

func (f *fakeLatestStore) Latest(_ context.Context, _ string) (*domain.PositionSample, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.sample == nil {
		return nil, domain.ErrNotFound
	}
	return f.sample, nil
}

type recordingDispatcher struct {
	mu        sync.Mutex
	alerts    []*domain.ProximityAlert
	forgotten []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, alert *domain.ProximityAlert) {
	d.mu.Lock()
	d.alerts = append(d.alerts, alert)
	d.mu.Unlock()
}

func (d *recordingDispatcher) Forget(key string) {
	d.mu.Lock()
	d.forgotten = append(d.forgotten, key)
	d.mu.Unlock()
}

func (d *recordingDispatcher) alertCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alerts)
}

func stopSubscription() *domain.Subscription {
	return &domain.Subscription{
		ConsumerID: "student-1",
		VehicleID:  testBusID,
		BusNumber:  "B12",
		Stop:       &domain.PointOfInterest{Name: "Main Gate", Lat: 0, Lon: 0},
	}
}

func equatorSample(lat float64, sec int64) domain.PositionSample {
	return domain.PositionSample{VehicleID: testBusID, Lat: lat, Lon: 0, CapturedAt: time.Unix(sec, 0)}
}

type follower struct {
	events chan domain.PositionEvent
	done   chan error
	cancel context.CancelFunc
}

func startFollow(t *testing.T, f *FeedService, router *Router, sub *domain.Subscription) *follower {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	fl := &follower{
		events: make(chan domain.PositionEvent, 16),
		done:   make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		fl.done <- f.Follow(ctx, sub, func(ev domain.PositionEvent) error {
			fl.events <- ev
			return nil
		})
	}()
	require.Eventually(t, func() bool {
		return router.SubscriberCount(sub.VehicleID) == 1
	}, time.Second, 5*time.Millisecond)
	return fl
}

func (fl *follower) stop(t *testing.T) {
	t.Helper()
	fl.cancel()
	select {
	case err := <-fl.done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("follow did not return after cancel")
	}
}

func TestFeedSubscription_NotAssigned(t *testing.T) {
	f := NewFeedService(&fakeSubscriptionRegistry{}, NewRouter(4), &fakeLatestStore{}, &recordingDispatcher{})

	_, err := f.Subscription(context.Background(), "student-9")
	require.ErrorIs(t, err, domain.ErrNotAssigned)
}

func TestFeedSubscription_Found(t *testing.T) {
	reg := &fakeSubscriptionRegistry{subs: map[string]*domain.Subscription{"student-1": stopSubscription()}}
	f := NewFeedService(reg, NewRouter(4), &fakeLatestStore{}, &recordingDispatcher{})

	sub, err := f.Subscription(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, testBusID, sub.VehicleID)
}

func TestFollow_BusApproachingScenario(t *testing.T) {
	router := NewRouter(8)
	d := &recordingDispatcher{}
	f := NewFeedService(&fakeSubscriptionRegistry{}, router, &fakeLatestStore{}, d)
	sub := stopSubscription()

	fl := startFollow(t, f, router, sub)

	router.Publish(testBusID, equatorSample(0.018, 100))
	ev := <-fl.events
	assert.False(t, ev.Replayed)
	assert.Equal(t, 0, d.alertCount(), "2km away should not alert")

	router.Publish(testBusID, equatorSample(0.0044, 110))
	<-fl.events
	require.Eventually(t, func() bool { return d.alertCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "student-1", d.alerts[0].Subscription.ConsumerID)
	assert.LessOrEqual(t, d.alerts[0].DistanceKm, AlertRadiusKm)

	fl.stop(t)
	assert.Equal(t, 0, router.SubscriberCount(testBusID))
	assert.Equal(t, []string{sub.Key()}, d.forgotten)
}

func TestFollow_ReplayedSampleDoesNotAlert(t *testing.T) {
	router := NewRouter(8)
	router.Publish(testBusID, equatorSample(0, 100))
	d := &recordingDispatcher{}
	f := NewFeedService(&fakeSubscriptionRegistry{}, router, &fakeLatestStore{}, d)

	fl := startFollow(t, f, router, stopSubscription())
	defer fl.stop(t)

	ev := <-fl.events
	assert.True(t, ev.Replayed)
	assert.Equal(t, 0, d.alertCount())
}

func TestFollow_PrimesFromStore(t *testing.T) {
	router := NewRouter(8)
	stored := equatorSample(0.1, 90)
	f := NewFeedService(&fakeSubscriptionRegistry{}, router, &fakeLatestStore{sample: &stored}, &recordingDispatcher{})

	fl := startFollow(t, f, router, stopSubscription())
	defer fl.stop(t)

	ev := <-fl.events
	assert.True(t, ev.Replayed)
	assert.Equal(t, 0.1, ev.Sample.Lat)
}

func TestFollow_StoreErrorIsNotFatal(t *testing.T) {
	router := NewRouter(8)
	f := NewFeedService(&fakeSubscriptionRegistry{}, router, &fakeLatestStore{err: errors.New("db down")}, &recordingDispatcher{})

	fl := startFollow(t, f, router, stopSubscription())
	defer fl.stop(t)

	router.Publish(testBusID, equatorSample(0.2, 100))
	ev := <-fl.events
	assert.False(t, ev.Replayed)
}

func TestFollow_NoStopNeverAlerts(t *testing.T) {
	router := NewRouter(8)
	d := &recordingDispatcher{}
	f := NewFeedService(&fakeSubscriptionRegistry{}, router, &fakeLatestStore{}, d)
	sub := stopSubscription()
	sub.Stop = nil

	fl := startFollow(t, f, router, sub)
	defer fl.stop(t)

	router.Publish(testBusID, equatorSample(0, 100))
	<-fl.events
	assert.Equal(t, 0, d.alertCount())
}

func TestFollow_DeliverErrorEndsFollow(t *testing.T) {
	router := NewRouter(8)
	f := NewFeedService(&fakeSubscriptionRegistry{}, router, &fakeLatestStore{}, &recordingDispatcher{})
	sub := stopSubscription()

	wantErr := errors.New("connection reset")
	done := make(chan error, 1)
	go func() {
		done <- f.Follow(context.Background(), sub, func(domain.PositionEvent) error {
			return wantErr
		})
	}()
	require.Eventually(t, func() bool {
		return router.SubscriberCount(testBusID) == 1
	}, time.Second, 5*time.Millisecond)

	router.Publish(testBusID, equatorSample(0, 100))

	select {
	case err := <-done:
		require.ErrorIs(t, err, wantErr)
	case <-time.After(time.Second):
		t.Fatal("follow did not return")
	}
	assert.Equal(t, 0, router.SubscriberCount(testBusID))
}
