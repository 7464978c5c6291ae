// Package locker owns the locker state machine.
//
// A command moves the locker into a transitional status and schedules a settle
// after a fixed delay. A newer command supersedes a pending settle, so the last
// command always wins.
package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"smart-locker-control/internal/storage"
)

type Store interface {
	GetLockerState(ctx context.Context, lockerID string) (*storage.LockerState, error)
	SaveLockerState(ctx context.Context, state storage.LockerState) error
}

type Controller struct {
	id          string
	store       Store
	settleDelay time.Duration
	logger      *slog.Logger

	mu        sync.Mutex
	state     State
	timer     *time.Timer
	gen       uint64
	settled   chan struct{} // closed when the pending settle fires or is superseded
	observers []func(State)
}

// NewController loads the persisted state of lockerID. A missing record starts closed.
// A record left in a transitional status is settled immediately.
func NewController(ctx context.Context, lockerID string, store Store, settleDelay time.Duration) (*Controller, error) {
	c := &Controller{
		id:          lockerID,
		store:       store,
		settleDelay: settleDelay,
		logger:      slog.With("component", "locker", "locker_id", lockerID),
	}

	rec, err := store.GetLockerState(ctx, lockerID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.state = State{Status: StatusClosed, LastUpdate: time.Now()}
		if err := c.save(ctx, c.state); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load locker state: %w", err)
	default:
		c.state = State{Status: Status(rec.Status), LastUpdate: rec.LastUpdate}
	}

	if !c.state.Status.IsValid() {
		c.logger.Warn("Unknown persisted status, resetting to closed", "status", c.state.Status)
		c.state = State{Status: StatusClosed, LastUpdate: time.Now()}
		if err := c.save(ctx, c.state); err != nil {
			return nil, err
		}
	}
	if c.state.Status.Transitional() {
		settled := StatusOpen
		if c.state.Status == StatusClosing {
			settled = StatusClosed
		}
		c.logger.Info("Settling interrupted transition", "from", c.state.Status, "to", settled)
		c.state = State{Status: settled, LastUpdate: time.Now()}
		if err := c.save(ctx, c.state); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Controller) ID() string { return c.id }

// Status returns a snapshot of the current state.
func (c *Controller) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Observe registers fn to be called after every state change.
func (c *Controller) Observe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Command applies action and returns the transitional state. Any pending settle is cancelled.
// The in-memory state is left untouched when persisting fails.
func (c *Controller) Command(ctx context.Context, action Action) (State, error) {
	if action != ActionOpen && action != ActionClose {
		return State{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	pending, settled := action.transition()

	c.mu.Lock()
	next := State{Status: pending, LastUpdate: time.Now()}
	if err := c.save(ctx, next); err != nil {
		c.mu.Unlock()
		return State{}, err
	}

	if c.cancelPending() {
		c.logger.Debug("Superseded pending settle", "action", action)
	}
	c.state = next
	c.gen++
	gen := c.gen
	c.settled = make(chan struct{})
	c.timer = time.AfterFunc(c.settleDelay, func() { c.settle(gen, settled) })
	observers := c.observers
	c.mu.Unlock()

	c.logger.Info("Locker command accepted", "action", action, "status", next.Status)
	notify(observers, next)
	return next, nil
}

// Wait blocks until no settle is pending and returns the settled state.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		if c.timer == nil {
			state := c.state
			c.mu.Unlock()
			return state, nil
		}
		ch := c.settled
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return State{}, ctx.Err()
		}
	}
}

// Close cancels a pending settle.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPending()
}

func (c *Controller) settle(gen uint64, status Status) {
	c.mu.Lock()
	if gen != c.gen || c.timer == nil {
		// Superseded between the timer firing and acquiring the lock.
		c.mu.Unlock()
		return
	}
	next := State{Status: status, LastUpdate: time.Now()}
	if err := c.save(context.Background(), next); err != nil {
		c.logger.Error("Failed to persist settled state", "status", status, "error", err)
	}
	c.state = next
	c.timer = nil
	close(c.settled)
	observers := c.observers
	c.mu.Unlock()

	c.logger.Info("Locker settled", "status", status)
	notify(observers, next)
}

// cancelPending stops the pending settle. Must be called with mu held.
func (c *Controller) cancelPending() bool {
	if c.timer == nil {
		return false
	}
	c.timer.Stop()
	c.timer = nil
	close(c.settled)
	return true
}

func (c *Controller) save(ctx context.Context, s State) error {
	err := c.store.SaveLockerState(ctx, storage.LockerState{
		LockerID:   c.id,
		Status:     string(s.Status),
		LastUpdate: s.LastUpdate,
	})
	if err != nil {
		return fmt.Errorf("failed to persist locker state: %w", err)
	}
	return nil
}

func notify(observers []func(State), s State) {
	for _, fn := range observers {
		fn(s)
	}
}
