package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when no inference slot became free before the deadline. A caller
// that goes away while waiting gets its context error instead.
var ErrBusy = errors.New("inference capacity exhausted")

// Dispatcher bounds the number of inferences running at once. Callers beyond the limit wait
// for a slot until their context ends.
type Dispatcher struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewDispatcher allows workers concurrent inferences. A zero timeout means no deadline.
func NewDispatcher(workers int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{sem: semaphore.NewWeighted(int64(workers)), timeout: timeout}
}

// Score runs m on input and returns the first output value.
func (d *Dispatcher) Score(ctx context.Context, m Model, input Tensor) (float32, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %v", ErrBusy, err)
		}
		return 0, err
	}
	defer d.sem.Release(1)

	out, err := m.Predict(ctx, input)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, errors.New("model returned no output")
	}
	return out[0], nil
}
