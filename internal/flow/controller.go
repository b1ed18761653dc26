// Package flow sequences one user through intro, camera, scanning and
// then registration or success.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/facepass/facepass/internal/activity"
	"github.com/facepass/facepass/internal/clock"
	"github.com/facepass/facepass/internal/logging"
	"github.com/facepass/facepass/internal/scan"
)

// DefaultSettleDelay is the pause between 100% progress and the
// credential check, while the client shows "Scan complete".
const DefaultSettleDelay = 1000 * time.Millisecond

// Credentials is the credential store as seen by a flow.
type Credentials interface {
	Registered(ctx context.Context) (bool, error)
	Authenticate(ctx context.Context, handle string) (bool, error)
	Register(ctx context.Context, handle string) error
}

// Deps are shared by every controller of a registry.
type Deps struct {
	Credentials Credentials
	Simulator   *scan.Simulator
	Clock       clock.Clock
	// SettleDelay < 0 runs the credential check as soon as progress hits 100.
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// Controller owns the state of one flow session. It is safe for
// concurrent use.
type Controller struct {
	id     string
	deps   Deps
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	step       Step
	image      string
	progress   int
	cameraErr  string
	busy       bool
	closed     bool
	gen        int
	updatedAt  time.Time
	stopScan   func()
	completion *clock.Timer
	watchers   map[chan State]struct{}
}

// NewController returns a controller in the intro step.
func NewController(id string, deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Simulator == nil {
		deps.Simulator = scan.NewSimulator(deps.Clock, scan.DefaultDuration, scan.DefaultFrameInterval)
	}
	if deps.SettleDelay == 0 {
		deps.SettleDelay = DefaultSettleDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		id:        id,
		deps:      deps,
		logger:    logging.Component(deps.Logger, "flow").With(slog.String("flow_id", id)),
		ctx:       ctx,
		cancel:    cancel,
		step:      StepIntro,
		updatedAt: deps.Clock.Now().UTC(),
		watchers:  make(map[chan State]struct{}),
	}
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Start moves from intro to camera.
func (c *Controller) Start() (State, error) {
	return c.transition(func() error {
		if c.step != StepIntro {
			return c.invalid("start")
		}
		c.cameraErr = ""
		c.setStepLocked(StepCamera)
		return nil
	})
}

// CameraFailed records a camera-access failure. The flow stays on the
// camera step until Back is called.
func (c *Controller) CameraFailed(message string) (State, error) {
	return c.transition(func() error {
		if c.step != StepCamera {
			return c.invalid("camera error")
		}
		if message == "" {
			message = DefaultCameraError
		}
		c.cameraErr = message
		c.touchLocked()
		c.logger.Warn("camera access failed", slog.String("message", message))
		return nil
	})
}

// Back returns to intro from the camera or register step.
func (c *Controller) Back() (State, error) {
	return c.transition(func() error {
		if c.step != StepCamera && c.step != StepRegister {
			return c.invalid("back")
		}
		c.gen++
		c.busy = false
		c.resetLocked()
		return nil
	})
}

// Capture records the image handle and begins the scan simulation.
func (c *Controller) Capture(handle string) (State, error) {
	return c.transition(func() error {
		if c.step != StepCamera {
			return c.invalid("capture")
		}
		if handle == "" {
			return ErrNoImage
		}
		c.haltScanLocked()
		c.gen++
		gen := c.gen
		c.image = handle
		c.progress = 0
		c.cameraErr = ""
		c.setStepLocked(StepScanning)
		c.stopScan = c.deps.Simulator.Start(func(p int) { c.onProgress(gen, p) })
		c.logger.Info("scan started", slog.Duration("duration", c.deps.Simulator.Duration()))
		return nil
	})
}

// OnScanComplete checks the credential store for the captured handle. With
// no credential the flow moves to register; otherwise a successful
// authentication moves to success and a failed one back to intro. It runs
// automatically once the scan reaches 100 and the settle delay elapsed.
func (c *Controller) OnScanComplete(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.step != StepScanning || c.busy {
		err := c.invalid("complete scan")
		c.mu.Unlock()
		return err
	}
	if c.image == "" {
		c.mu.Unlock()
		return ErrNoImage
	}
	c.busy = true
	gen := c.gen
	handle := c.image
	c.haltScanLocked()
	c.publishLocked()
	c.mu.Unlock()

	ctx = activity.WithFlow(ctx, c.id)

	registered, err := c.deps.Credentials.Registered(ctx)
	if err != nil {
		c.finish(gen, StepIntro)
		return fmt.Errorf("check credential: %w", err)
	}
	if !registered {
		c.finish(gen, StepRegister)
		return nil
	}

	ok, err := c.deps.Credentials.Authenticate(ctx, handle)
	if err != nil {
		c.finish(gen, StepIntro)
		return fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		// No distinct message for a failed verification: back to the start.
		c.finish(gen, StepIntro)
		return nil
	}
	c.finish(gen, StepSuccess)
	return nil
}

// Register stores the captured handle as the credential and moves to
// success. A Back during registration keeps the flow on intro.
func (c *Controller) Register(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return State{}, ErrClosed
	}
	if c.step != StepRegister || c.busy {
		err := c.invalid("register")
		st := c.stateLocked()
		c.mu.Unlock()
		return st, err
	}
	if c.image == "" {
		st := c.stateLocked()
		c.mu.Unlock()
		return st, ErrNoImage
	}
	c.busy = true
	gen := c.gen
	handle := c.image
	c.publishLocked()
	c.mu.Unlock()

	if err := c.deps.Credentials.Register(activity.WithFlow(ctx, c.id), handle); err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.busy = false
			c.publishLocked()
		}
		st := c.stateLocked()
		c.mu.Unlock()
		return st, fmt.Errorf("register: %w", err)
	}

	if !c.finish(gen, StepSuccess) {
		return c.State(), fmt.Errorf("%w: flow changed during registration", ErrInvalidTransition)
	}
	return c.State(), nil
}

// Close stops any running scan and pending completion and ends every
// subscription. Further operations fail with ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.haltScanLocked()
	c.cancel()
	for ch := range c.watchers {
		close(ch)
	}
	c.watchers = nil
}

// Subscribe delivers a snapshot after every change. Slow readers only see
// the latest state. The channel is closed by Close or the returned
// unsubscribe func.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.watchers[ch] = struct{}{}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.watchers[ch]; ok {
				delete(c.watchers, ch)
				close(ch)
			}
		})
	}
}

func (c *Controller) onProgress(gen, p int) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.step != StepScanning || c.busy {
		c.mu.Unlock()
		return
	}
	if p > c.progress {
		c.progress = p
		c.touchLocked()
		c.publishLocked()
	}
	done := c.progress >= 100 && c.completion == nil
	c.mu.Unlock()

	if !done {
		return
	}

	// Scheduled outside the lock: the clock may run the callback inline.
	timer := c.deps.Clock.AfterFunc(max(c.deps.SettleDelay, 0), func() {
		go c.autoComplete(gen)
	})
	c.mu.Lock()
	stored := gen == c.gen && c.step == StepScanning && !c.busy && c.completion == nil
	if stored {
		c.completion = timer
	}
	c.mu.Unlock()

	// The scan was completed or restarted while the timer was scheduled.
	if !stored {
		timer.Stop()
	}
}

func (c *Controller) autoComplete(gen int) {
	c.mu.Lock()
	stale := c.closed || gen != c.gen
	c.mu.Unlock()
	if stale {
		return
	}
	err := c.OnScanComplete(c.ctx)
	switch {
	case err == nil, c.ctx.Err() != nil:
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrClosed):
		c.logger.Debug("scan already completed", slog.Any("error", err))
	default:
		c.logger.Error("scan completion failed", slog.Any("error", err))
	}
}

// finish applies the outcome of an async step unless the flow moved on in
// the meantime. It reports whether the step was applied.
func (c *Controller) finish(gen int, step Step) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		return false
	}
	c.busy = false
	if step == StepIntro {
		c.resetLocked()
	} else {
		c.setStepLocked(step)
	}
	c.logger.Info("flow step changed", slog.String("step", string(step)))
	return true
}

func (c *Controller) transition(fn func() error) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return State{}, ErrClosed
	}
	if err := fn(); err != nil {
		return c.stateLocked(), err
	}
	c.publishLocked()
	return c.stateLocked(), nil
}

func (c *Controller) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, c.step)
}

func (c *Controller) setStepLocked(step Step) {
	c.step = step
	c.touchLocked()
	c.publishLocked()
}

func (c *Controller) resetLocked() {
	c.haltScanLocked()
	c.image = ""
	c.progress = 0
	c.cameraErr = ""
	c.setStepLocked(StepIntro)
}

func (c *Controller) haltScanLocked() {
	if c.stopScan != nil {
		c.stopScan()
		c.stopScan = nil
	}
	if c.completion != nil {
		c.completion.Stop()
		c.completion = nil
	}
}

func (c *Controller) touchLocked() {
	c.updatedAt = c.deps.Clock.Now().UTC()
}

func (c *Controller) publishLocked() {
	st := c.stateLocked()
	for ch := range c.watchers {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

func (c *Controller) stateLocked() State {
	return State{
		ID:          c.id,
		Step:        c.step,
		Progress:    c.progress,
		HasImage:    c.image != "",
		CameraError: c.cameraErr,
		Busy:        c.busy,
		UpdatedAt:   c.updatedAt,
	}
}
