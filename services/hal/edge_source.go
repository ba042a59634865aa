// services/hal/edge_source.go
package hal

import "gpioblink-go/errcode"

// EdgeSource configures one input pin to raise an interrupt on the selected
// edge and hands each edge off to the consumer task bound in the Registry.
//
// The handler runs in interrupt context and does exactly three things:
// check that the pending condition belongs to this pin, ack that specific
// pending bit, and raise the consumer's notification flag. No logging, no
// other work; it preempts every schedulable unit.
type EdgeSource struct {
	pin  IRQPin
	edge Edge
	reg  *Registry
}

func NewEdgeSource(pin IRQPin, edge Edge, reg *Registry) *EdgeSource {
	return &EdgeSource{pin: pin, edge: edge, reg: reg}
}

// Arm enables edge detection in two phases: while the interrupt is still
// masked, any stale pending flag left over from pin configuration is
// cleared, and only then is the interrupt enabled with the handler
// installed. Enabling first would let a spurious setup-time edge wake the
// consumer once for no reason.
func (s *EdgeSource) Arm() error {
	if s.edge == EdgeNone {
		return errcode.InvalidParams
	}
	s.pin.AckIRQ()
	return s.pin.SetIRQ(s.edge, s.service)
}

// Disarm masks the interrupt again. Startup-only systems never call this
// outside tests.
func (s *EdgeSource) Disarm() error {
	return s.pin.ClearIRQ()
}

// service is the interrupt handler body.
func (s *EdgeSource) service() {
	if !s.pin.IRQPending() {
		// Shared vector, not our pin: defined no-op, touch nothing.
		return
	}
	s.pin.AckIRQ()
	if t, ok := s.reg.IRQTarget(s.pin.Number()); ok {
		t.Notify()
	}
}
