package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/publisher"
)

const (
	adviseTimeout = 5 * time.Second

	// DefaultStopGrace bounds how long Stop waits for an in-flight write.
	DefaultStopGrace = time.Second
)

// Sensor opens the stream of location fixes pushed by a vehicle's device.
// The context only bounds opening the watch.
type Sensor interface {
	Watch(ctx context.Context, vehicleID string) (SensorWatch, error)
}

// SensorWatch delivers fixes at whatever pace the device chooses. A value
// on Faults is fatal for the session. No fix is delivered once Close
// returns.
type SensorWatch interface {
	Fixes() <-chan domain.Fix
	Faults() <-chan error
	Close()
}

type vehicleRegistry interface {
	VehicleByDriver(ctx context.Context, driverID string) (*domain.Vehicle, error)
}

type ingester interface {
	Ingest(ctx context.Context, s *domain.PositionSample) (*domain.Ack, error)
}

// SessionController owns the broadcast session of every tracked vehicle,
// at most one per vehicle.
type SessionController struct {
	registry vehicleRegistry
	sensor   Sensor
	ingest   ingester
	notifier publisher.Notifier
	// stopGrace is how long teardown lets an in-flight Ingest finish before
	// cancelling it. The sample is already published by then.
	stopGrace time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionController(registry vehicleRegistry, sensor Sensor, ingest ingester, notifier publisher.Notifier) *SessionController {
	return &SessionController{
		registry: registry,
		sensor:   sensor,
		ingest:   ingest,
		notifier:  notifier,
		stopGrace: DefaultStopGrace,
		sessions:  make(map[string]*Session),
	}
}

// Session is the handle returned by Start.
type Session struct {
	id         string
	vehicleID  string
	operatorID string
	startedAt  time.Time

	watch  SensorWatch
	cancel context.CancelFunc
	ready  chan struct{}
	done   chan struct{}

	mu              sync.Mutex
	state           domain.SessionState
	lastFixAt       time.Time
	fixes           int64
	persistFailures int64
	lastErr         error
}

// Start opens a session for the vehicle driven by operatorID. vehicleID may
// be empty, meaning whichever vehicle the operator is assigned to.
func (c *SessionController) Start(ctx context.Context, vehicleID, operatorID string) (*Session, error) {
	v, err := c.registry.VehicleByDriver(ctx, operatorID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: operator %s", domain.ErrNotAssigned, operatorID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup vehicle: %w", err)
	}
	if vehicleID != "" && v.ID != vehicleID {
		return nil, fmt.Errorf("%w: vehicle %s is not driven by %s", domain.ErrNotAssigned, vehicleID, operatorID)
	}
	if !v.Active {
		return nil, fmt.Errorf("%w: vehicle %s is inactive", domain.ErrNotAssigned, v.ID)
	}

	s := &Session{
		id:         uuid.NewString(),
		vehicleID:  v.ID,
		operatorID: operatorID,
		startedAt:  time.Now(),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
		state:      domain.SessionIdle,
	}

	c.mu.Lock()
	if _, ok := c.sessions[v.ID]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: vehicle %s", domain.ErrAlreadyActive, v.ID)
	}
	s.setState(domain.SessionStarting)
	c.sessions[v.ID] = s
	c.mu.Unlock()

	watch, err := c.sensor.Watch(ctx, v.ID)
	if err != nil {
		s.cancel = func() {}
		s.fail(err)
		s.setState(domain.SessionIdle)
		c.remove(s)
		close(s.ready)
		close(s.done)
		return nil, fmt.Errorf("%w: %v", domain.ErrSensorFault, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.watch = watch
	s.cancel = cancel
	s.setState(domain.SessionActive)
	close(s.ready)

	go c.run(loopCtx, s)

	log.Printf("tracking started: vehicle=%s operator=%s session=%s", s.vehicleID, operatorID, s.id)
	c.advise(domain.NotificationTrackingStarted, s, "GPS tracking started")
	return s, nil
}

// Stop ends the session and returns once the sensor watch is released and
// no further sample for the vehicle will be published. Stopping an idle
// session is a no-op.
func (c *SessionController) Stop(s *Session) {
	if s == nil {
		return
	}
	<-s.ready
	s.cancel()
	<-s.done
}

// StopVehicle stops the vehicle's session if there is one.
func (c *SessionController) StopVehicle(vehicleID string) bool {
	s, ok := c.Session(vehicleID)
	if !ok {
		return false
	}
	c.Stop(s)
	return true
}

func (c *SessionController) Session(vehicleID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[vehicleID]
	return s, ok
}

func (c *SessionController) Sessions() []domain.SessionStatus {
	c.mu.Lock()
	list := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		list = append(list, s)
	}
	c.mu.Unlock()

	out := make([]domain.SessionStatus, 0, len(list))
	for _, s := range list {
		out = append(out, s.Status())
	}
	return out
}

// Shutdown stops every session. Sessions are not persisted, so operators
// have to start broadcasting again after a restart.
func (c *SessionController) Shutdown() {
	c.mu.Lock()
	list := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		list = append(list, s)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range list {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			c.Stop(s)
		}(s)
	}
	wg.Wait()
}

// run is the sampling loop. It is the only place a running session changes
// state, and its exit path is the single teardown for both Stop and faults.
func (c *SessionController) run(ctx context.Context, s *Session) {
	mailbox := make(chan domain.PositionSample, 1)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	ingestCtx, abortIngest := context.WithCancel(context.Background())
	defer abortIngest()
	workerDone := make(chan struct{})
	go c.ingestLoop(workerCtx, ingestCtx, s, mailbox, workerDone)

	fixes, faults := s.watch.Fixes(), s.watch.Faults()
	var (
		fault error
		last  time.Time
	)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case fix, ok := <-fixes:
			if !ok {
				fault = fmt.Errorf("%w: fix stream closed", domain.ErrSensorFault)
				break loop
			}
			if fix.CapturedAt.Before(last) {
				log.Printf("stale fix dropped: vehicle=%s captured=%s last=%s", s.vehicleID, fix.CapturedAt, last)
				continue
			}
			last = fix.CapturedAt
			s.recordFix(fix.CapturedAt)
			putLatest(mailbox, domain.NewPositionSample(s.vehicleID, fix))
		case err, ok := <-faults:
			if !ok {
				faults = nil
				continue
			}
			if !errors.Is(err, domain.ErrSensorFault) {
				err = fmt.Errorf("%w: %v", domain.ErrSensorFault, err)
			}
			fault = err
			break loop
		}
	}

	if fault != nil {
		s.fail(fault)
		s.setState(domain.SessionFaulted)
		log.Printf("tracking fault: vehicle=%s session=%s: %v", s.vehicleID, s.id, fault)
	}

	s.setState(domain.SessionStopping)
	s.watch.Close()
	stopWorker()
	select {
	case <-workerDone:
	case <-time.After(c.stopGrace):
		abortIngest()
		<-workerDone
	}

	s.setState(domain.SessionIdle)
	c.remove(s)
	close(s.done)

	log.Printf("tracking stopped: vehicle=%s session=%s", s.vehicleID, s.id)
	c.advise(domain.NotificationTrackingStopped, s, "GPS tracking stopped")
}

// ingestLoop forwards samples to the gateway one at a time so the sampling
// loop never waits on persistence. Samples that arrive while a write is in
// flight are coalesced to the latest one.
func (c *SessionController) ingestLoop(ctx, ingestCtx context.Context, s *Session, mailbox <-chan domain.PositionSample, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case sample := <-mailbox:
			if ctx.Err() != nil {
				return
			}
			_, err := c.ingest.Ingest(ingestCtx, &sample)
			s.recordIngest(err)
		}
	}
}

func (c *SessionController) remove(s *Session) {
	c.mu.Lock()
	if c.sessions[s.vehicleID] == s {
		delete(c.sessions, s.vehicleID)
	}
	c.mu.Unlock()
}

// advise sends an advisory notification without holding up session logic.
func (c *SessionController) advise(kind domain.NotificationKind, s *Session, msg string) {
	if c.notifier == nil {
		return
	}
	n := &domain.Notification{
		Kind:      kind,
		Target:    s.operatorID,
		VehicleID: s.vehicleID,
		Message:   msg,
		Timestamp: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), adviseTimeout)
		defer cancel()
		if err := c.notifier.Notify(ctx, n); err != nil {
			log.Printf("advise %s: %v", kind, fmt.Errorf("%w: %v", domain.ErrNotification, err))
		}
	}()
}

// putLatest replaces whatever is waiting in a one-slot mailbox. The
// sampling loop is its only sender.
func putLatest(mailbox chan domain.PositionSample, s domain.PositionSample) {
	select {
	case <-mailbox:
	default:
	}
	mailbox <- s
}

func (s *Session) ID() string        { return s.id }
func (s *Session) VehicleID() string { return s.vehicleID }

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session has fully stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.SessionStatus{
		ID:              s.id,
		VehicleID:       s.vehicleID,
		OperatorID:      s.operatorID,
		State:           s.state,
		StartedAt:       s.startedAt,
		Fixes:           s.fixes,
		PersistFailures: s.persistFailures,
	}
	if !s.lastFixAt.IsZero() {
		t := s.lastFixAt
		st.LastFixAt = &t
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Session) setState(state domain.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) recordFix(at time.Time) {
	s.mu.Lock()
	s.fixes++
	s.lastFixAt = at
	s.mu.Unlock()
}

func (s *Session) recordIngest(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if errors.Is(err, domain.ErrPersistence) {
		s.persistFailures++
	}
	s.lastErr = err
	s.mu.Unlock()
	log.Printf("ingest vehicle=%s session=%s: %v", s.vehicleID, s.id, err)
}
