package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

func sampleAt(lat float64, sec int64) domain.PositionSample {
	return domain.PositionSample{VehicleID: testBusID, Lat: lat, Lon: 106.8456, CapturedAt: time.Unix(sec, 0)}
}

func recv(t *testing.T, ch <-chan domain.PositionEvent) domain.PositionEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.PositionEvent{}
}

func assertEmpty(t *testing.T, ch <-chan domain.PositionEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestRouter_NoReplayBeforeFirstSample(t *testing.T) {
	r := NewRouter(4)
	ch, unsubscribe := r.Subscribe("student-1", testBusID)
	defer unsubscribe()

	assertEmpty(t, ch)
	_, ok := r.Latest(testBusID)
	assert.False(t, ok)
}

func TestRouter_ReplaysLatestThenLive(t *testing.T) {
	r := NewRouter(4)
	r.Publish(testBusID, sampleAt(1, 100))
	r.Publish(testBusID, sampleAt(2, 101))

	ch, unsubscribe := r.Subscribe("student-1", testBusID)
	defer unsubscribe()

	first := recv(t, ch)
	assert.True(t, first.Replayed)
	assert.Equal(t, 2.0, first.Sample.Lat)
	assertEmpty(t, ch)

	r.Publish(testBusID, sampleAt(3, 102))
	live := recv(t, ch)
	assert.False(t, live.Replayed)
	assert.Equal(t, 3.0, live.Sample.Lat)
}

func TestRouter_FanOutAndIsolation(t *testing.T) {
	const otherBus = "0b8f4e2a-7c1d-4a3b-9e6f-5d2c1b0a9f87"
	r := NewRouter(4)

	a, unsubA := r.Subscribe("student-1", testBusID)
	defer unsubA()
	b, unsubB := r.Subscribe("student-2", testBusID)
	defer unsubB()
	other, unsubOther := r.Subscribe("student-3", otherBus)
	defer unsubOther()

	r.Publish(testBusID, sampleAt(1, 100))

	assert.Equal(t, 1.0, recv(t, a).Sample.Lat)
	assert.Equal(t, 1.0, recv(t, b).Sample.Lat)
	assertEmpty(t, other)

	assert.Equal(t, RouterStats{Vehicles: 2, Subscribers: 3}, r.Stats())
}

func TestRouter_PreservesOrderPerSubscriber(t *testing.T) {
	r := NewRouter(64)
	ch, unsubscribe := r.Subscribe("student-1", testBusID)
	defer unsubscribe()

	for i := 0; i < 50; i++ {
		r.Publish(testBusID, sampleAt(float64(i), int64(100+i)))
	}
	for i := 0; i < 50; i++ {
		assert.Equal(t, float64(i), recv(t, ch).Sample.Lat)
	}
}

func TestRouter_UnsubscribeIsIdempotent(t *testing.T) {
	r := NewRouter(4)
	ch, unsubscribe := r.Subscribe("student-1", testBusID)
	require.Equal(t, 1, r.SubscriberCount(testBusID))

	unsubscribe()
	unsubscribe()

	assert.Equal(t, 0, r.SubscriberCount(testBusID))
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	assert.NotPanics(t, func() { r.Publish(testBusID, sampleAt(1, 100)) })
}

func TestRouter_SlowSubscriberDoesNotBlock(t *testing.T) {
	r := NewRouter(2)
	slow, unsubSlow := r.Subscribe("slow", testBusID)
	defer unsubSlow()
	fast, unsubFast := r.Subscribe("fast", testBusID)
	defer unsubFast()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			r.Publish(testBusID, sampleAt(float64(i), int64(100+i)))
			<-fast
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// only the newest samples survive, still in order
	assert.Equal(t, 98.0, recv(t, slow).Sample.Lat)
	assert.Equal(t, 99.0, recv(t, slow).Sample.Lat)
	assertEmpty(t, slow)
}

func TestRouter_PrimeDoesNotOverridePublished(t *testing.T) {
	r := NewRouter(4)
	r.Prime(testBusID, sampleAt(1, 100))
	latest, ok := r.Latest(testBusID)
	require.True(t, ok)
	assert.Equal(t, 1.0, latest.Lat)

	r.Publish(testBusID, sampleAt(2, 101))
	r.Prime(testBusID, sampleAt(3, 90))

	latest, _ = r.Latest(testBusID)
	assert.Equal(t, 2.0, latest.Lat)
}

func TestRouter_ConcurrentAccess(t *testing.T) {
	r := NewRouter(8)
	var wg sync.WaitGroup

	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.Publish(testBusID, sampleAt(float64(p), int64(i+1)))
			}
		}(p)
	}

	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				ch, unsubscribe := r.Subscribe(fmt.Sprintf("student-%d", c), testBusID)
				select {
				case <-ch:
				default:
				}
				unsubscribe()
			}
		}(c)
	}

	wg.Wait()
	assert.Equal(t, 0, r.SubscriberCount(testBusID))
}

func TestRouter_DropsSampleCapturedBeforeLatest(t *testing.T) {
	r := NewRouter(4)
	ch, unsubscribe := r.Subscribe("student-1", testBusID)
	defer unsubscribe()

	r.Publish(testBusID, sampleAt(1, 100))
	r.Publish(testBusID, sampleAt(2, 90))
	r.Publish(testBusID, sampleAt(3, 100))

	assert.Equal(t, 1.0, recv(t, ch).Sample.Lat)
	assert.Equal(t, 3.0, recv(t, ch).Sample.Lat)
	assertEmpty(t, ch)

	latest, ok := r.Latest(testBusID)
	require.True(t, ok)
	assert.Equal(t, 3.0, latest.Lat)
}

func TestRouter_KeepsLatestAfterLastUnsubscribe(t *testing.T) {
	r := NewRouter(4)
	_, unsubscribe := r.Subscribe("student-1", testBusID)
	r.Publish(testBusID, sampleAt(1, 100))
	unsubscribe()

	assert.Equal(t, RouterStats{Vehicles: 1, Subscribers: 0}, r.Stats())

	ch, unsubscribe := r.Subscribe("student-2", testBusID)
	defer unsubscribe()
	ev := recv(t, ch)
	assert.True(t, ev.Replayed)
	assert.Equal(t, 1.0, ev.Sample.Lat)
}
