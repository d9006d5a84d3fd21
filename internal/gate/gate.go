// Package gate implements the admission gate: a process-wide counting
// semaphore bounding the number of concurrent write transactions the storage
// tier must service.
//
// One gate instance is shared across all projects and all users. It guards
// every mutating task operation; read-only queries bypass it.
package gate

import (
	"context"
	"fmt"

	"github.com/calebmds/taskchain/internal/shared"
)

// DefaultCapacity is the permit count used when no capacity is configured.
const DefaultCapacity = 90

// Gate is a fixed-capacity counting semaphore. Acquire blocks until a permit
// is available or the context is cancelled; Release returns the permit
// unconditionally. The zero value is not usable; call [New].
type Gate struct {
	permits  chan struct{}
	capacity int
}

// New creates a gate with the given permit capacity. Non-positive values
// fall back to [DefaultCapacity].
func New(capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Gate{
		permits:  make(chan struct{}, capacity),
		capacity: capacity,
	}
}

// Acquire blocks until a permit is granted. A cancelled or expired context
// aborts the wait and returns ErrUnavailable wrapping the context error; no
// permit is held in that case.
func (g *Gate) Acquire(ctx context.Context) error {
	// Check cancellation first so an already-dead caller never wins a
	// permit over a live one racing on the same select.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}

	select {
	case g.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", shared.ErrUnavailable, ctx.Err())
	}
}

// Release returns a permit. Releasing more than was acquired is a no-op, so
// callers may defer Release on every exit path.
func (g *Gate) Release() {
	select {
	case <-g.permits:
	default:
	}
}

// InUse returns the number of currently held permits.
func (g *Gate) InUse() int { return len(g.permits) }

// Capacity returns the configured permit count.
func (g *Gate) Capacity() int { return g.capacity }
