// services/hal/registry.go
package hal

import (
	"sync"

	"gpioblink-go/errcode"
	"gpioblink-go/kernel"
)

// Registry owns pin allocation and the interrupt-to-task table.
//
// Pins are claimed and configured exactly once, at supervisor startup;
// re-configuring a live pin is undefined at the hardware level, so a second
// claim fails with errcode.PinInUse instead.
//
// The IRQ table maps an interrupt source (pin number) to the consumer task
// whose notification flag the handler must raise. It is write-once,
// read-many: populated during startup, never mutated after, and read from
// interrupt context.
type Registry struct {
	pins PinFactory

	mu     sync.Mutex
	claims map[int]string // pin number -> owner id

	irqMu sync.RWMutex
	irq   map[int]*kernel.Task // pin number -> consumer handle
}

func NewRegistry(pins PinFactory) *Registry {
	return &Registry{
		pins:   pins,
		claims: map[int]string{},
		irq:    map[int]*kernel.Task{},
	}
}

// ClaimOutput claims pin n for owner and configures it as an output at the
// given initial level.
func (r *Registry) ClaimOutput(owner string, n int, initial bool) (GPIOPin, error) {
	p, err := r.claim(owner, n)
	if err != nil {
		return nil, err
	}
	if err := p.ConfigureOutput(initial); err != nil {
		return nil, err
	}
	return p, nil
}

// ClaimInput claims pin n for owner and configures it as an input with the
// given pull.
func (r *Registry) ClaimInput(owner string, n int, pull Pull) (GPIOPin, error) {
	p, err := r.claim(owner, n)
	if err != nil {
		return nil, err
	}
	if err := p.ConfigureInput(pull); err != nil {
		return nil, err
	}
	return p, nil
}

// ClaimIRQInput is ClaimInput for pins that must also raise interrupts.
// Fails with errcode.Unsupported if the platform pin has no IRQ capability.
func (r *Registry) ClaimIRQInput(owner string, n int, pull Pull) (IRQPin, error) {
	p, err := r.ClaimInput(owner, n, pull)
	if err != nil {
		return nil, err
	}
	ip, ok := p.(IRQPin)
	if !ok {
		return nil, errcode.Unsupported
	}
	return ip, nil
}

// ClaimBuzzer claims pin n and returns the platform's preferred buzzer
// output: the speaker-gated pin where the factory provides one, otherwise
// the plain GPIO output driven low.
func (r *Registry) ClaimBuzzer(owner string, n int) (GPIOPin, error) {
	p, err := r.claim(owner, n)
	if err != nil {
		return nil, err
	}
	if bf, ok := r.pins.(BuzzerFactory); ok {
		if bp, ok := bf.BuzzerPin(n); ok {
			if err := bp.ConfigureOutput(false); err != nil {
				return nil, err
			}
			return bp, nil
		}
	}
	if err := p.ConfigureOutput(false); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Registry) claim(owner string, n int) (GPIOPin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, taken := r.claims[n]; taken {
		return nil, &errcode.E{C: errcode.PinInUse, Op: "claim", Msg: "pin held by " + prev}
	}
	p, ok := r.pins.ByNumber(n)
	if !ok {
		return nil, errcode.UnknownPin
	}
	r.claims[n] = owner
	return p, nil
}

// BindIRQ installs the interrupt-source -> consumer-handle mapping for pin
// n. A second bind for the same pin fails with errcode.IRQInUse.
func (r *Registry) BindIRQ(n int, t *kernel.Task) error {
	r.irqMu.Lock()
	defer r.irqMu.Unlock()
	if _, exists := r.irq[n]; exists {
		return errcode.IRQInUse
	}
	r.irq[n] = t
	return nil
}

// IRQTarget looks up the consumer bound to pin n. Called from interrupt
// context; the table is effectively immutable by then.
func (r *Registry) IRQTarget(n int) (*kernel.Task, bool) {
	r.irqMu.RLock()
	defer r.irqMu.RUnlock()
	t, ok := r.irq[n]
	return t, ok
}
