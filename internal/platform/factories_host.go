// internal/platform/factories_host.go
//go:build !rp2040 && !rp2350

package platform

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"gpioblink-go/services/hal"
)

// Host build: simulated pins so the firmware and its tests run anywhere.
// HostPin is exported for tests and for host runs of cmd/pico-blink.

// HostPin implements hal.IRQPin in memory, including the pending-and-
// enabled bit of a shared interrupt line. Safe for use from multiple
// goroutines (units touch pins concurrently in host tests).
type HostPin struct {
	mu      sync.Mutex
	num     int
	mode    string // "input" or "output"
	pull    hal.Pull
	level   bool
	toggles int
	gets    int

	edge    hal.Edge
	handler func()
	pending bool
}

var _ hal.IRQPin = (*HostPin)(nil)

func (p *HostPin) ConfigureInput(pull hal.Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode, p.pull = "input", pull
	// A pulled input rests at its pull level.
	p.level = pull == hal.PullUp
	return nil
}

func (p *HostPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode, p.level = "output", initial
	return nil
}

func (p *HostPin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

func (p *HostPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets++
	return p.level
}

func (p *HostPin) Toggle() {
	p.mu.Lock()
	p.level = !p.level
	p.toggles++
	p.mu.Unlock()
}

func (p *HostPin) Number() int { return p.num }

func (p *HostPin) SetIRQ(edge hal.Edge, handler func()) error {
	p.mu.Lock()
	p.edge, p.handler = edge, handler
	p.mu.Unlock()
	return nil
}

func (p *HostPin) ClearIRQ() error {
	p.mu.Lock()
	p.edge, p.handler = hal.EdgeNone, nil
	p.mu.Unlock()
	return nil
}

func (p *HostPin) IRQPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

func (p *HostPin) AckIRQ() {
	p.mu.Lock()
	p.pending = false
	p.mu.Unlock()
}

// Toggles reports how many Toggle calls the pin has seen.
func (p *HostPin) Toggles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toggles
}

// Gets reports how many Get calls the pin has seen. Lets tests verify that
// a polling source really is busy-polling.
func (p *HostPin) Gets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gets
}

// Drive simulates an external level change: it latches the pending bit if
// the transition matches the armed edge, then fires the vector, exactly
// like the hardware edge-detect logic.
func (p *HostPin) Drive(level bool) {
	p.mu.Lock()
	var e hal.Edge
	switch {
	case !p.level && level:
		e = hal.EdgeRising
	case p.level && !level:
		e = hal.EdgeFalling
	default:
		p.mu.Unlock()
		return
	}
	p.level = level
	if p.edge == hal.EdgeBoth || p.edge == e {
		p.pending = true
	}
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h()
	}
}

// FireVector simulates the shared interrupt vector firing without this
// pin's pending bit being involved.
func (p *HostPin) FireVector() {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h()
	}
}

// HostPinFactory hands out HostPins by number, creating them on first use.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*HostPin
}

func NewHostPinFactory() *HostPinFactory {
	return &HostPinFactory{pins: map[int]*HostPin{}}
}

func (f *HostPinFactory) ByNumber(n int) (hal.GPIOPin, bool) {
	if n < 0 || n > 28 {
		return nil, false
	}
	return f.Pin(n), true
}

// Pin returns the concrete HostPin so tests can drive and inspect it.
func (f *HostPinFactory) Pin(n int) *HostPin {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = &HostPin{num: n}
		f.pins[n] = p
	}
	return p
}

// DefaultPinFactory returns the simulated pin set on host builds.
func DefaultPinFactory() hal.PinFactory { return NewHostPinFactory() }

// DefaultClock is the wall clock; tests substitute a fake.
func DefaultClock() clockwork.Clock { return clockwork.NewRealClock() }

// InitSerialLog is a no-op on host builds: stdout is already the log sink.
func InitSerialLog() {}
