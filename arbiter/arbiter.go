// Package arbiter serializes moves against one game. Commands from any
// source (keyboard, the autonomous player, the network) are queued and
// resolved strictly one at a time, in the order they arrived, with a
// pacing delay after each.
package arbiter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tilecraft/slide/board"
)

type State int

const (
	Idle State = iota
	Busy
)

func (s State) String() string {
	if s == Busy {
		return "busy"
	}
	return "idle"
}

// StepFunc resolves one command against the game. It runs on the arbiter's
// goroutine and is never called concurrently with itself.
type StepFunc func(d board.Direction)

// Pacer returns the delay to hold after a step before the next one starts.
type Pacer func() time.Duration

type Arbiter struct {
	mu     sync.Mutex
	state  State
	queue  []board.Direction
	idle   chan struct{}
	closed bool

	step StepFunc
	pace Pacer

	ctx    context.Context
	cancel context.CancelFunc
}

func New(step StepFunc, pace Pacer) *Arbiter {
	if pace == nil {
		pace = func() time.Duration { return 0 }
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Arbiter{
		step:   step,
		pace:   pace,
		idle:   idle,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue appends a command and starts draining if nothing is in flight.
func (a *Arbiter) Enqueue(d board.Direction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.queue = append(a.queue, d)
	if a.state == Idle {
		a.state = Busy
		a.idle = make(chan struct{})
		go a.drain()
	}
}

func (a *Arbiter) pop() (board.Direction, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 || a.closed {
		a.state = Idle
		close(a.idle)
		return board.NoDirection, false
	}
	d := a.queue[0]
	a.queue = a.queue[1:]
	return d, true
}

func (a *Arbiter) drain() {
	for {
		d, ok := a.pop()
		if !ok {
			return
		}
		a.step(d)
		if delay := a.pace(); delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-a.ctx.Done():
				t.Stop()
			}
		}
	}
}

// Clear drops every pending command and returns how many were dropped. A
// command that is already being resolved still completes.
func (a *Arbiter) Clear() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.queue)
	a.queue = nil
	if n > 0 {
		log.Debug().Int("dropped", n).Msg("arbiter-cleared")
	}
	return n
}

func (a *Arbiter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Arbiter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// WaitIdle blocks until the queue is drained and no step is running.
func (a *Arbiter) WaitIdle(ctx context.Context) error {
	a.mu.Lock()
	idle := a.idle
	a.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drops pending commands and cuts any pacing delay short. Later
// enqueues are ignored.
func (a *Arbiter) Close() {
	a.mu.Lock()
	a.closed = true
	a.queue = nil
	a.mu.Unlock()
	a.cancel()
}
