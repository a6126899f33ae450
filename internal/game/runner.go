package game

import (
	"context"
	"errors"
	"time"
)

// ErrRunnerStopped is returned for commands sent after Run has exited.
var ErrRunnerStopped = errors.New("runner stopped")

// CommandType names a presentation command.
type CommandType string

const (
	CommandStart  CommandType = "start"
	CommandDrop   CommandType = "drop"
	CommandReset  CommandType = "reset"
	CommandResize CommandType = "resize"
)

// Command is an input event for the simulation.
type Command struct {
	Type   CommandType `json:"type"`
	Width  float64     `json:"width,omitempty"`
	Height float64     `json:"height,omitempty"`
}

type request struct {
	fn   func(*Simulation)
	done chan struct{}
}

// Runner owns a Simulation on a single goroutine. Commands and frame ticks
// are applied one at a time, and a frame source exists only while the
// simulation is moving or falling.
type Runner struct {
	sim       *Simulation
	newFrames FrameSourceFunc
	frames    FrameSource
	requests  chan request
	stopped   chan struct{}
}

// NewRunner wraps sim. Configure subscribers on sim before calling Run.
func NewRunner(sim *Simulation, frames FrameSourceFunc) *Runner {
	return &Runner{
		sim:       sim,
		newFrames: frames,
		requests:  make(chan request),
		stopped:   make(chan struct{}),
	}
}

// Run processes commands and frames until ctx is cancelled. Any pending
// frame source is stopped on exit.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.stopped)
	defer r.stopFrames()

	for {
		frameC := r.frameChan()

		select {
		case <-ctx.Done():
			return
		case req := <-r.requests:
			req.fn(r.sim)
			r.syncFrames()
			close(req.done)
		case <-frameC:
			r.sim.Tick()
			r.syncFrames()
		}
	}
}

// Send applies cmd and reports whether it changed the simulation.
func (r *Runner) Send(ctx context.Context, cmd Command) (bool, error) {
	var applied bool
	err := r.Do(ctx, func(s *Simulation) {
		applied = Apply(s, cmd)
	})
	return applied, err
}

// Do runs fn on the runner goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(*Simulation)) error {
	req := request{fn: fn, done: make(chan struct{})}

	select {
	case r.requests <- req:
	case <-r.stopped:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-r.stopped:
		return ErrRunnerStopped
	}
}

// Snapshot returns the simulation state as seen by the runner goroutine.
func (r *Runner) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.Do(ctx, func(s *Simulation) {
		snap = s.Snapshot()
	})
	return snap, err
}

// Done is closed once Run has returned.
func (r *Runner) Done() <-chan struct{} {
	return r.stopped
}

// Apply dispatches cmd to the matching Simulation method.
func Apply(s *Simulation, cmd Command) bool {
	switch cmd.Type {
	case CommandStart:
		return s.Start()
	case CommandDrop:
		return s.Drop()
	case CommandReset:
		s.Reset()
		return true
	case CommandResize:
		return s.Resize(cmd.Width, cmd.Height)
	default:
		return false
	}
}

func (r *Runner) frameChan() <-chan time.Time {
	if r.frames == nil {
		return nil
	}
	return r.frames.C()
}

func (r *Runner) syncFrames() {
	if !r.sim.State().Animating() {
		r.stopFrames()
		return
	}
	if r.frames == nil {
		r.frames = r.newFrames()
	}
}

func (r *Runner) stopFrames() {
	if r.frames != nil {
		r.frames.Stop()
		r.frames = nil
	}
}
