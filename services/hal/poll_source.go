// services/hal/poll_source.go
package hal

import (
	"context"
	"runtime"
)

// PollSource is the degenerate signal source for platforms without edge
// interrupts: it busy-polls the input level and invokes the reaction inline
// whenever the pin is at its active level. There is no notification flag
// and no separate consumer: producer and consumer merge into one loop.
//
// Unlike every other unit this one spends processor time while idle; prefer
// EdgeSource wherever the hardware allows it.
type PollSource struct {
	pin      GPIOPin
	active   bool // level meaning "pressed"
	reaction func(ctx context.Context)
}

func NewPollSource(pin GPIOPin, activeLevel bool, reaction func(ctx context.Context)) *PollSource {
	return &PollSource{pin: pin, active: activeLevel, reaction: reaction}
}

// Run polls forever. The Gosched keeps cooperative schedulers alive; it
// does not make the loop blocking.
func (s *PollSource) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if s.pin.Get() == s.active {
			s.reaction(ctx)
			continue
		}
		runtime.Gosched()
	}
}
