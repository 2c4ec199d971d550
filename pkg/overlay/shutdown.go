// ABOUTME: Shutdown coordinator: blocking Stop/Release that waits for every overlay to be reclaimed
// ABOUTME: The wait is bounded by StopTimeout and the caller's context, then the render worker is joined

package overlay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopTimeout is returned when the render worker does not report an empty
// registry within Config.StopTimeout. The worker keeps running to completion
// in the background.
var ErrStopTimeout = errors.New("overlay: timed out waiting for overlays to be released")

type stateCell struct {
	v atomic.Int32
}

func (c *stateCell) load() State { return State(c.v.Load()) }

func (c *stateCell) swap(s State) State { return State(c.v.Swap(int32(s))) }

type stopOnce struct {
	once sync.Once
	err  error
}

// Stop posts STOP and blocks until the render worker has removed every
// presented view and released every pixel buffer, then joins the worker.
// Later calls return the first call's result.
func (e *Engine) Stop(ctx context.Context) error {
	e.stop.once.Do(func() {
		e.stop.err = e.shutdown(ctx)
	})
	return e.stop.err
}

// Release is Stop without a caller deadline.
func (e *Engine) Release() error {
	return e.Stop(context.Background())
}

func (e *Engine) shutdown(ctx context.Context) error {
	timer := time.NewTimer(e.cfg.StopTimeout)
	defer timer.Stop()

	stop := Control{Kind: CtlStop}
	select {
	case e.controlCh <- stop:
	case <-e.done:
	case <-timer.C:
		go e.PushControl(stop)
		e.log.Error("stop: control queue still full after %v", e.cfg.StopTimeout)
		return ErrStopTimeout
	case <-ctx.Done():
		go e.PushControl(stop)
		return ctx.Err()
	}

	select {
	case <-e.drained:
	case <-timer.C:
		e.log.Error("stop: registry not empty after %v", e.cfg.StopTimeout)
		return ErrStopTimeout
	case <-ctx.Done():
		return ctx.Err()
	}

	err := e.workers.Wait()
	e.bus.Close()
	return err
}

// Done is closed once the render worker has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }
