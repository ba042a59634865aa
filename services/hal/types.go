// services/hal/types.go
package hal

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// GPIOPin is one digital pin. All operations are non-blocking and
// infallible at runtime; a pin must be configured exactly once (enforced by
// the Registry) before set/get/toggle are used.
type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// IRQPin extends GPIOPin with edge interrupts.
//
// Several pins may share one hardware interrupt line, so a handler must not
// assume the vector fired for its pin: IRQPending reports whether this
// pin's pending-and-enabled bit is set, and AckIRQ clears only that bit.
// Ports whose hardware acks before invoking the callback (RP2) return a
// constant true / no-op pair.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
	IRQPending() bool
	AckIRQ()
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// BuzzerFactory is an optional PinFactory capability. Ports with PWM
// hardware behind the buzzer pin supply a speaker-gated output, so the tone
// pattern's toggles gate a clean note instead of raw level flips. Ports
// without it fall back to plain GPIO toggling.
type BuzzerFactory interface {
	BuzzerPin(n int) (GPIOPin, bool)
}
