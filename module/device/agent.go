package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

// DefaultFixTimeout matches the receiver timeout browsers use for
// watchPosition.
const DefaultFixTimeout = 5 * time.Second

type fixSource interface {
	Next() (domain.Fix, error)
}

type fixSink interface {
	PublishFix(f domain.Fix) error
	PublishFault(code, message string) error
}

// Agent forwards fixes from a GPS receiver to the server. Losing the
// receiver, or going FixTimeout without a fix, is reported as a fault.
type Agent struct {
	src        fixSource
	sink       fixSink
	fixTimeout time.Duration
}

func NewAgent(src fixSource, sink fixSink, fixTimeout time.Duration) *Agent {
	if fixTimeout <= 0 {
		fixTimeout = DefaultFixTimeout
	}
	return &Agent{src: src, sink: sink, fixTimeout: fixTimeout}
}

// Run returns nil when ctx is done and the read error when the receiver
// fails.
func (a *Agent) Run(ctx context.Context) error {
	fixes := make(chan domain.Fix)
	errc := make(chan error, 1)
	go func() {
		for {
			f, err := a.src.Next()
			if err != nil {
				errc <- err
				return
			}
			select {
			case fixes <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	timer := time.NewTimer(a.fixTimeout)
	defer timer.Stop()
	timedOut := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-fixes:
			if err := a.sink.PublishFix(f); err != nil {
				log.Printf("publish fix: %v", err)
			}
			timedOut = false
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(a.fixTimeout)
		case <-timer.C:
			if !timedOut {
				msg := fmt.Sprintf("no fix for %s", a.fixTimeout)
				if err := a.sink.PublishFault(FaultFixTimeout, msg); err != nil {
					log.Printf("publish fault: %v", err)
				}
				timedOut = true
			}
			timer.Reset(a.fixTimeout)
		case err := <-errc:
			msg := "gps receiver closed"
			if !errors.Is(err, io.EOF) {
				msg = err.Error()
			}
			if perr := a.sink.PublishFault(FaultSensorUnavailable, msg); perr != nil {
				log.Printf("publish fault: %v", perr)
			}
			return err
		}
	}
}
