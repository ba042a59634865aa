// services/blinker/toggler.go
package blinker

import (
	"context"
	"strings"

	"gpioblink-go/kernel"
	"gpioblink-go/services/hal"
	"gpioblink-go/x/timex"
)

// Policy selects how a toggler transitions its pin each period.
type Policy uint8

const (
	// PolicyToggle inverts the output unconditionally.
	PolicyToggle Policy = iota
	// PolicyCounter drives HIGH on even counter values, LOW on odd, then
	// increments. The counter is native-width unsigned; wraparound is
	// harmless because only parity is observed.
	PolicyCounter
	// PolicyReadInvert reads the output back and drives the opposite
	// level. Behaviorally equal to PolicyToggle, kept as a separate policy
	// because some boards exhibit the read-back form.
	PolicyReadInvert
)

// ParsePolicy maps config strings to policies; unknown strings fall back to
// plain toggling.
func ParsePolicy(s string) Policy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "counter":
		return PolicyCounter
	case "read_invert":
		return PolicyReadInvert
	default:
		return PolicyToggle
	}
}

// Toggler flips one output pin at a fixed period. Each instance owns its
// pin and its counter exclusively; instances never communicate, so any
// number of them run concurrently without locking.
type Toggler struct {
	id     string
	pin    hal.GPIOPin
	period timex.Ticks
	policy Policy
	count  uint
}

func NewToggler(id string, pin hal.GPIOPin, period timex.Ticks, policy Policy) *Toggler {
	return &Toggler{id: id, pin: pin, period: period, policy: policy}
}

func (t *Toggler) ID() string { return t.id }

// Run sleeps one period, applies one transition, forever. The sleep is the
// unit's only suspension point.
func (t *Toggler) Run(ctx context.Context, k *kernel.Kernel) {
	for {
		k.Sleep(ctx, t.period)
		if ctx.Err() != nil {
			return
		}
		t.step()
	}
}

func (t *Toggler) step() {
	switch t.policy {
	case PolicyCounter:
		t.pin.Set(t.count%2 == 0)
		t.count++
	case PolicyReadInvert:
		if t.pin.Get() {
			t.pin.Set(false)
		} else {
			t.pin.Set(true)
		}
	default:
		t.pin.Toggle()
	}
}
