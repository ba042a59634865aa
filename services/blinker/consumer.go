// services/blinker/consumer.go
package blinker

import (
	"context"

	"gpioblink-go/kernel"
)

// Consumer is the schedulable unit an EdgeSource hands edges to. It blocks
// on its task's notification flag at zero processor cost, runs the bounded
// reaction synchronously on wake, then re-arms.
//
// The stale-clear at the top of each iteration is what makes mid-reaction
// edges drop rather than queue: a flag raised while the reaction runs is
// discarded before the next wait. Single-notification semantics, matching
// the hardware exercise this replaces.
type Consumer struct {
	reaction func(ctx context.Context)
}

func NewConsumer(reaction func(ctx context.Context)) *Consumer {
	return &Consumer{reaction: reaction}
}

// Loop is the unit entry point; self is the handle whose flag the
// interrupt handler raises.
func (c *Consumer) Loop(ctx context.Context, self *kernel.Task) {
	for {
		self.ClearPending()
		if err := self.Wait(ctx); err != nil {
			return
		}
		c.reaction(ctx)
	}
}
