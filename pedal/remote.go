package pedal

import (
	"context"

	"github.com/mastercactapus/metropedal/store"
)

// Remote exposes the controller to other goroutines, such as HTTP handlers.
// Each call is executed on the loop goroutine.
type Remote struct {
	loop *Loop
}

func NewRemote(l *Loop) *Remote { return &Remote{loop: l} }

func (r *Remote) Status(ctx context.Context) (st Status, err error) {
	err = r.loop.Do(ctx, func(c *Controller) error {
		st = c.Status()
		return nil
	})
	return st, err
}

func (r *Remote) Patches(ctx context.Context) (p []store.Patch, err error) {
	err = r.loop.Do(ctx, func(c *Controller) error {
		p = c.Patches()
		return nil
	})
	return p, err
}

func (r *Remote) AddPatch(ctx context.Context, p store.Patch) (i int, err error) {
	err = r.loop.Do(ctx, func(c *Controller) (err error) {
		i, err = c.AddPatch(p)
		return err
	})
	return i, err
}

func (r *Remote) UpdatePatch(ctx context.Context, i int, p store.Patch) error {
	return r.loop.Do(ctx, func(c *Controller) error { return c.UpdatePatch(i, p) })
}

func (r *Remote) DeletePatch(ctx context.Context, i int) error {
	return r.loop.Do(ctx, func(c *Controller) error { return c.DeletePatch(i) })
}

func (r *Remote) Settings(ctx context.Context) (st store.Settings, err error) {
	err = r.loop.Do(ctx, func(c *Controller) error {
		st = c.Settings()
		return nil
	})
	return st, err
}

func (r *Remote) UpdateSettings(ctx context.Context, st store.Settings) error {
	return r.loop.Do(ctx, func(c *Controller) error { return c.UpdateSettings(st) })
}
