package pedal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Sampler reads every input pin once.
type Sampler interface {
	Sample() (Inputs, error)
}

// Watchdog must be fed once per poll iteration or the device restarts.
type Watchdog interface {
	Feed() error
}

// Loop runs the controller at a fixed poll rate. Work from other goroutines
// is queued with Do and executed between steps, so the controller only ever
// runs on the loop goroutine.
type Loop struct {
	ctrl     *Controller
	in       Sampler
	wd       Watchdog
	interval time.Duration
	now      func() time.Time
	cmds     chan func(*Controller)
}

// NewLoop returns a loop polling every interval. wd may be nil.
func NewLoop(ctrl *Controller, in Sampler, wd Watchdog, interval time.Duration) *Loop {
	return &Loop{
		ctrl:     ctrl,
		in:       in,
		wd:       wd,
		interval: interval,
		now:      time.Now,
		cmds:     make(chan func(*Controller)),
	}
}

// Run polls until ctx is done or an input read fails.
func (l *Loop) Run(ctx context.Context) error {
	t := time.NewTicker(l.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			l.ctrl.engine.Stop()
			return nil
		case cmd := <-l.cmds:
			cmd(l.ctrl)
		case <-t.C:
			in, err := l.in.Sample()
			if err != nil {
				l.ctrl.engine.Stop()
				return errors.Wrap(err, "read inputs")
			}
			l.ctrl.Step(in, l.now())
			if l.wd == nil {
				continue
			}
			if err := l.wd.Feed(); err != nil {
				log.Warnln("feed watchdog:", err)
			}
		}
	}
}

// Do runs fn on the loop goroutine and returns its error.
func (l *Loop) Do(ctx context.Context, fn func(c *Controller) error) error {
	done := make(chan error, 1)
	select {
	case l.cmds <- func(c *Controller) { done <- fn(c) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	// once accepted, fn always runs to completion
	return <-done
}
