package gateway

import (
	"context"
	"errors"

	"golang.org/x/sync/semaphore"
)

// ErrSaveInFlight is returned when a save is attempted while another save of
// the same session has not finished.
var ErrSaveInFlight = errors.New("a save is already in progress")

// SaveGate admits one save at a time. A second save is rejected, not queued.
type SaveGate struct {
	sem *semaphore.Weighted
}

// NewSaveGate creates an open gate.
func NewSaveGate() *SaveGate {
	return &SaveGate{sem: semaphore.NewWeighted(1)}
}

// Do runs fn if no other call is inside the gate.
func (g *SaveGate) Do(ctx context.Context, fn func(context.Context) error) error {
	if !g.sem.TryAcquire(1) {
		return ErrSaveInFlight
	}
	defer g.sem.Release(1)
	return fn(ctx)
}

// Busy reports whether a save is outstanding.
func (g *SaveGate) Busy() bool {
	if g.sem.TryAcquire(1) {
		g.sem.Release(1)
		return false
	}
	return true
}
