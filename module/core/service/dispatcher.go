package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/publisher"
)

// AlertDispatcher hands proximity alerts to the notification surface. With
// a zero cool-down every alert is forwarded.
type AlertDispatcher struct {
	notifier publisher.Notifier
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewAlertDispatcher(notifier publisher.Notifier, cooldown time.Duration) *AlertDispatcher {
	return &AlertDispatcher{
		notifier: notifier,
		cooldown: cooldown,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Dispatch never returns notifier failures; they are logged and dropped.
func (d *AlertDispatcher) Dispatch(ctx context.Context, alert *domain.ProximityAlert) {
	key := alert.Subscription.Key()
	if d.suppressed(key) {
		return
	}

	n := &domain.Notification{
		Kind:       domain.NotificationBusApproaching,
		Target:     alert.Subscription.ConsumerID,
		VehicleID:  alert.Sample.VehicleID,
		Message:    approachingMessage(alert),
		DistanceKm: alert.DistanceKm,
		Timestamp:  alert.Sample.CapturedAt,
	}
	if err := d.notifier.Notify(ctx, n); err != nil {
		log.Printf("dispatch alert %s: %v", key, fmt.Errorf("%w: %v", domain.ErrNotification, err))
	}
}

// Forget drops cool-down state once a consumer's interest ends.
func (d *AlertDispatcher) Forget(key string) {
	d.mu.Lock()
	delete(d.lastSent, key)
	d.mu.Unlock()
}

func (d *AlertDispatcher) suppressed(key string) bool {
	if d.cooldown <= 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastSent[key]; ok && now.Sub(last) < d.cooldown {
		return true
	}
	d.lastSent[key] = now
	return false
}

func approachingMessage(alert *domain.ProximityAlert) string {
	stop := "your stop"
	if alert.Subscription.Stop != nil && alert.Subscription.Stop.Name != "" {
		stop = alert.Subscription.Stop.Name
	}
	if alert.Subscription.BusNumber != "" {
		return fmt.Sprintf("Bus %s is approaching %s!", alert.Subscription.BusNumber, stop)
	}
	return fmt.Sprintf("Bus is approaching %s!", stop)
}
