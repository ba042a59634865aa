// Package kernel provides the small multitasking substrate the services run
// on: schedulable units (tasks), a tick-based cooperative sleep, and a
// single-bit notification flag per task for interrupt-to-task handoff.
//
// Units are created once at startup and run until the process exits. The
// clock is injected so host tests can drive the scheduler deterministically
// with a fake clock.
package kernel

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"gpioblink-go/errcode"
	"gpioblink-go/x/timex"
)

// DefaultTickHz is the kernel tick rate on every shipped target: one tick
// per millisecond, matching the platform timer configuration.
const DefaultTickHz uint32 = 1000

type Kernel struct {
	clock  clockwork.Clock
	tickHz uint32

	mu    sync.Mutex
	tasks []*Task
}

// New builds a kernel on the given clock and tick rate. A nil clock or a
// zero tick rate leaves no working scheduler, so New fails with
// errcode.KernelNotReady; there is no runtime recovery path from that
// (firmware recovery is the watchdog's job, not ours).
func New(clock clockwork.Clock, tickHz uint32) (*Kernel, error) {
	if clock == nil || tickHz == 0 {
		return nil, errcode.KernelNotReady
	}
	return &Kernel{clock: clock, tickHz: tickHz}, nil
}

func (k *Kernel) Ready() bool    { return k != nil && k.clock != nil && k.tickHz != 0 }
func (k *Kernel) TickHz() uint32 { return k.tickHz }

// Clock exposes the scheduler clock for units that need tickers
// (heartbeat) or timestamps.
func (k *Kernel) Clock() clockwork.Clock { return k.clock }

// Spawn creates a named schedulable unit and starts it. The returned handle
// is opaque; its only cross-unit use is addressing the unit's notification
// flag.
func (k *Kernel) Spawn(ctx context.Context, name string, entry func(ctx context.Context, self *Task)) *Task {
	t := &Task{
		name:   name,
		notify: make(chan struct{}, 1),
	}
	k.mu.Lock()
	k.tasks = append(k.tasks, t)
	k.mu.Unlock()

	go entry(ctx, t)
	return t
}

// Sleep suspends the calling unit for d ticks. It is a cooperative
// suspension point: the unit consumes no processor time while waiting.
// Sleep returns early only when ctx is cancelled.
func (k *Kernel) Sleep(ctx context.Context, d timex.Ticks) {
	if d <= 0 {
		return
	}
	select {
	case <-k.clock.After(timex.TicksToDuration(d, k.tickHz)):
	case <-ctx.Done():
	}
}

// TaskNames returns the names of all spawned units, in spawn order.
func (k *Kernel) TaskNames() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	names := make([]string, len(k.tasks))
	for i, t := range k.tasks {
		names[i] = t.name
	}
	return names
}
