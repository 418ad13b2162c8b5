// Package dispatch turns mapped moves into tap gesture pairs and sequences
// them with pause/resume/stop control.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrylevesque/chesstap/internal/board"
	"github.com/harrylevesque/chesstap/internal/utils"
)

// State is the dispatcher lifecycle state. Transitions happen only through
// the explicit control calls.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// ErrNotRunning is returned when Execute is called while the dispatcher is
// idle or paused.
var ErrNotRunning = errors.New("dispatcher is not running")

// Dispatcher executes moves as tap pairs: origin tap, a short wait for the
// target app to register it, destination tap.
type Dispatcher struct {
	tapper Tapper
	mapper *board.Mapper
	log    *utils.Logger

	tapDelay  time.Duration
	moveDelay time.Duration

	// sleep is the suspension point for all delays; tests replace it so no
	// real time elapses.
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   State
	pauseCh chan struct{}
}

// New creates a dispatcher in the Idle state.
func New(tapper Tapper, mapper *board.Mapper, log *utils.Logger, tapDelay, moveDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		tapper:    tapper,
		mapper:    mapper,
		log:       log,
		tapDelay:  tapDelay,
		moveDelay: moveDelay,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Status returns the current state.
func (d *Dispatcher) Status() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start moves the dispatcher from Idle to Running.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Idle {
		d.state = Running
	}
}

// Pause suspends execution. It takes effect between moves, never mid-move.
func (d *Dispatcher) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Running {
		d.state = Paused
		d.pauseCh = make(chan struct{})
	}
}

// Resume lifts a pause.
func (d *Dispatcher) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Paused {
		d.state = Running
		close(d.pauseCh)
		d.pauseCh = nil
	}
}

// Stop returns the dispatcher to Idle, releasing any goroutine blocked on a
// pause so it can observe the state change.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pauseCh != nil {
		close(d.pauseCh)
		d.pauseCh = nil
	}
	d.state = Idle
}

// EmergencyStop unconditionally forces the Paused state. It is the only
// operation guaranteed to succeed regardless of current state; it does not
// retract an in-flight tap pair, only prevents subsequent ones.
func (d *Dispatcher) EmergencyStop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Paused {
		d.state = Paused
		d.pauseCh = make(chan struct{})
	}
}

// AwaitReady blocks while the dispatcher is paused and returns the state
// observed once it no longer is. The context cancels the wait.
func (d *Dispatcher) AwaitReady(ctx context.Context) (State, error) {
	for {
		d.mu.Lock()
		st := d.state
		ch := d.pauseCh
		d.mu.Unlock()

		if st != Paused || ch == nil {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Execute performs one move as a tap pair. It refuses without side effects
// unless the dispatcher is Running, and refuses moves whose endpoints fall
// outside the calibrated board rectangle.
func (d *Dispatcher) Execute(ctx context.Context, mv board.Move) error {
	if d.Status() != Running {
		return ErrNotRunning
	}
	if !d.mapper.Contains(mv.From) {
		return utils.Newf(utils.CodeBoundaryViolation,
			"move origin (%d,%d) outside board", mv.From.X, mv.From.Y)
	}
	if !d.mapper.Contains(mv.To) {
		return utils.Newf(utils.CodeBoundaryViolation,
			"move destination (%d,%d) outside board", mv.To.X, mv.To.Y)
	}

	id := uuid.New().String()[:8]
	d.log.Infof("move %s: tap (%d,%d) -> (%d,%d)", id, mv.From.X, mv.From.Y, mv.To.X, mv.To.Y)

	if err := d.tapper.Tap(ctx, mv.From); err != nil {
		d.log.Errorf("move %s: origin tap refused: %v", id, err)
		return err
	}
	if err := d.sleep(ctx, d.tapDelay); err != nil {
		return err
	}
	if err := d.tapper.Tap(ctx, mv.To); err != nil {
		d.log.Errorf("move %s: destination tap refused: %v", id, err)
		return err
	}
	return nil
}

// ExecuteSequence runs moves in order with the configured inter-move delay.
// A pause is honored before each move; a failed move is logged and the
// sequence continues with the next one.
func (d *Dispatcher) ExecuteSequence(ctx context.Context, moves []board.Move) error {
	for i, mv := range moves {
		st, err := d.AwaitReady(ctx)
		if err != nil {
			return err
		}
		if st == Idle {
			d.log.Warnf("sequence stopped, dropping %d remaining move(s)", len(moves)-i)
			return nil
		}
		if err := d.Execute(ctx, mv); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.log.Warnf("sequence move %d failed: %v", i+1, err)
		}
		if i < len(moves)-1 {
			if err := d.sleep(ctx, d.moveDelay); err != nil {
				return err
			}
		}
	}
	return nil
}
