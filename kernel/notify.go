package kernel

import "context"

// Task is a handle to one schedulable unit. It carries the unit's
// notification flag: a single-bit producer/consumer signal with
// auto-clear-on-wait semantics.
//
// The flag is single-writer (an interrupt handler) / single-reader (the
// unit itself), so a capacity-1 channel is the whole synchronization story:
// a non-blocking send is an interrupt-safe idempotent set, a receive is an
// atomic consume-and-clear.
type Task struct {
	name   string
	notify chan struct{}
}

func (t *Task) Name() string { return t.name }

// Notify raises the task's notification flag. It never blocks and is safe
// to call from an interrupt handler. Raising an already-pending flag is a
// no-op: this is a presence bit, not a counter.
func (t *Task) Notify() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Wait blocks until the flag is raised, consuming it atomically so the next
// Wait blocks again until a new raise. Returns ctx.Err() on cancellation.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.notify:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClearPending drops a stale pending notification, if any, without blocking.
func (t *Task) ClearPending() {
	select {
	case <-t.notify:
	default:
	}
}

// Pending reports whether a notification is currently raised. Diagnostic
// only; the value may be stale by the time the caller looks at it.
func (t *Task) Pending() bool { return len(t.notify) > 0 }
