package service

import (
	"sync"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/publisher"
)

var _ publisher.PositionPublisher = (*Router)(nil)

const DefaultSubscriberBuffer = 16

// Unsubscribe ends a subscription. It is safe to call more than once.
type Unsubscribe func()

// Router fans position samples out to the consumers of each vehicle. A
// subscriber that falls behind loses its oldest buffered samples; it never
// slows Publish down.
type Router struct {
	bufferSize int

	mu sync.RWMutex
	// topics outlive their last subscriber so the next one still gets the
	// latest sample replayed. There is at most one per registered vehicle.
	topics map[string]*topic
	nextID uint64
}

type topic struct {
	latest *domain.PositionSample
	subs   map[uint64]*subscriber
}

type subscriber struct {
	consumerID string
	ch         chan domain.PositionEvent
}

type RouterStats struct {
	Vehicles    int `json:"vehicles"`
	Subscribers int `json:"subscribers"`
}

func NewRouter(bufferSize int) *Router {
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriberBuffer
	}
	return &Router{
		bufferSize: bufferSize,
		topics:     make(map[string]*topic),
	}
}

// Publish delivers s to every subscriber of vehicleID. A sample captured
// before the current latest one is dropped, so subscribers only ever see
// capture order.
func (r *Router) Publish(vehicleID string, s domain.PositionSample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.topic(vehicleID)
	if t.latest != nil && s.CapturedAt.Before(t.latest.CapturedAt) {
		return
	}
	t.latest = &s
	for _, sub := range t.subs {
		sub.offer(domain.PositionEvent{Sample: s})
	}
}

// Subscribe registers consumerID for vehicleID. The most recent known sample,
// if any, is the first event on the returned channel. The channel is closed
// by Unsubscribe.
func (r *Router) Subscribe(consumerID, vehicleID string) (<-chan domain.PositionEvent, Unsubscribe) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.topic(vehicleID)
	r.nextID++
	id := r.nextID
	sub := &subscriber{
		consumerID: consumerID,
		ch:         make(chan domain.PositionEvent, r.bufferSize),
	}
	if t.latest != nil {
		sub.offer(domain.PositionEvent{Sample: *t.latest, Replayed: true})
	}
	t.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { r.unsubscribe(vehicleID, id) })
	}
}

// Latest returns the most recent sample published or primed for vehicleID.
func (r *Router) Latest(vehicleID string) (domain.PositionSample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.topics[vehicleID]
	if !ok || t.latest == nil {
		return domain.PositionSample{}, false
	}
	return *t.latest, true
}

// Prime seeds the latest sample from storage. It never overrides a sample
// that was already published.
func (r *Router) Prime(vehicleID string, s domain.PositionSample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.topic(vehicleID)
	if t.latest == nil {
		t.latest = &s
	}
}

func (r *Router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var st RouterStats
	for _, t := range r.topics {
		st.Vehicles++
		st.Subscribers += len(t.subs)
	}
	return st
}

func (r *Router) SubscriberCount(vehicleID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.topics[vehicleID]; ok {
		return len(t.subs)
	}
	return 0
}

func (r *Router) unsubscribe(vehicleID string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.topics[vehicleID]
	if !ok {
		return
	}
	if sub, ok := t.subs[id]; ok {
		delete(t.subs, id)
		close(sub.ch)
	}
}

// topic must be called with mu held for writing.
func (r *Router) topic(vehicleID string) *topic {
	t, ok := r.topics[vehicleID]
	if !ok {
		t = &topic{subs: make(map[uint64]*subscriber)}
		r.topics[vehicleID] = t
	}
	return t
}

// offer enqueues ev, evicting the oldest buffered event when full. Callers
// hold the router lock, so there is a single sender per subscriber.
func (s *subscriber) offer(ev domain.PositionEvent) {
	select {
	case s.ch <- ev:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- ev:
	default:
	}
}
