package breathing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/layer-3/wellness/core"
)

// DefaultInterval is the length of one tick.
const DefaultInterval = time.Second

// Exercise drives a Machine from a Scheduler. The tick source is held only
// while the exercise is active and is released on pause, reset, completion
// and close. A tick that was already scheduled when the source was released
// never changes the state.
type Exercise struct {
	scheduler Scheduler
	interval  time.Duration
	onChange  func(State)
	logger    *slog.Logger

	mu      sync.Mutex
	machine *Machine
	cancel  Cancel
	// gen changes every time the tick source is acquired or released; ticks
	// carry the value they were scheduled with.
	gen    uint64
	run    *runHandle
	closed bool
}

// runHandle is finished once per Start: nil on completion, ErrCancelled on
// reset or close.
type runHandle struct {
	done chan struct{}
	err  error
}

func (r *runHandle) finish(err error) {
	select {
	case <-r.done:
	default:
		r.err = err
		close(r.done)
	}
}

type Option func(*Exercise)

func WithScheduler(s Scheduler) Option {
	return func(e *Exercise) { e.scheduler = s }
}

func WithInterval(d time.Duration) Option {
	return func(e *Exercise) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithOnChange registers a callback run after every state change, outside
// the exercise's lock.
func WithOnChange(fn func(State)) Option {
	return func(e *Exercise) { e.onChange = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Exercise) { e.logger = logger }
}

func NewExercise(opts ...Option) *Exercise {
	e := &Exercise{
		scheduler: TickerScheduler{},
		interval:  DefaultInterval,
		logger:    slog.Default(),
		machine:   NewMachine(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exercise) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.State()
}

// Start begins a new exercise from round 1, abandoning any current one.
func (e *Exercise) Start() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.release()
	e.endRun(core.ErrCancelled)
	e.machine.Start()
	e.run = &runHandle{done: make(chan struct{})}
	e.acquire()
	state := e.machine.State()
	e.mu.Unlock()

	e.logger.Debug("breathing exercise started")
	e.notify(state)
}

func (e *Exercise) Pause() {
	e.mu.Lock()
	if !e.machine.State().Active {
		e.mu.Unlock()
		return
	}
	e.release()
	e.machine.Pause()
	state := e.machine.State()
	e.mu.Unlock()

	e.notify(state)
}

func (e *Exercise) Resume() {
	e.mu.Lock()
	if e.closed || !e.machine.Resume() {
		e.mu.Unlock()
		return
	}
	e.acquire()
	state := e.machine.State()
	e.mu.Unlock()

	e.notify(state)
}

func (e *Exercise) Reset() {
	e.mu.Lock()
	e.release()
	e.endRun(core.ErrCancelled)
	e.machine.Reset()
	state := e.machine.State()
	e.mu.Unlock()

	e.notify(state)
}

// Close releases the tick source for good. The state is kept but the
// exercise can no longer be started or resumed.
func (e *Exercise) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.release()
	e.machine.Pause()
	e.endRun(core.ErrCancelled)
}

// Run starts the exercise and blocks until it completes. It returns
// core.ErrCancelled when ctx ends, the exercise is reset or restarted, or
// Close is called; ending ctx closes the exercise.
func (e *Exercise) Run(ctx context.Context) error {
	e.Start()

	e.mu.Lock()
	run := e.run
	e.mu.Unlock()
	if run == nil {
		return core.ErrCancelled
	}

	select {
	case <-run.done:
		return run.err
	case <-ctx.Done():
		e.Close()
		return core.ErrCancelled
	}
}

func (e *Exercise) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || !e.machine.State().Active {
		e.mu.Unlock()
		return
	}
	e.machine.Tick()
	state := e.machine.State()
	if state.Completed {
		e.release()
		e.endRun(nil)
		e.logger.Debug("breathing exercise completed")
	}
	e.mu.Unlock()

	e.notify(state)
}

// acquire and release must be called with mu held.
func (e *Exercise) acquire() {
	if e.cancel != nil {
		return
	}
	e.gen++
	gen := e.gen
	e.cancel = e.scheduler.Every(e.interval, func() { e.tick(gen) })
}

func (e *Exercise) release() {
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Exercise) endRun(err error) {
	if e.run != nil {
		e.run.finish(err)
		e.run = nil
	}
}

func (e *Exercise) notify(state State) {
	if e.onChange != nil {
		e.onChange(state)
	}
}
