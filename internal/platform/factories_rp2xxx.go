// internal/platform/factories_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"github.com/jonboulle/clockwork"
	"tinygo.org/x/drivers/tone"

	"gpioblink-go/errcode"
	"gpioblink-go/services/hal"
	"gpioblink-go/x/timex"
)

// -----------------------------------------------------------------------------
// Defaults used on Raspberry Pi Pico / Pico 2 (RP2 family)
// -----------------------------------------------------------------------------

// DefaultPinFactory maps logical numbers directly to machine.Pin(n),
// matching Pico/Pico 2 GP numbering.
func DefaultPinFactory() hal.PinFactory { return rp2PinFactory{} }

// DefaultClock is the wall clock; the RP2 port drives time.Sleep from the
// hardware timer, which is all the kernel needs.
func DefaultClock() clockwork.Clock { return clockwork.NewRealClock() }

// InitSerialLog routes log output to UART1 on the board-default pins in
// addition to USB-CDC, so a bare serial adapter sees the boot banner too.
func InitSerialLog() {
	_ = uartx.UART1.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       uartx.UART1_TX_PIN,
		RX:       uartx.UART1_RX_PIN,
	})
}

// ---- GPIO implementation (includes IRQ support) ----

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (hal.GPIOPin, bool) {
	// Constrain to RP2's user GPIOs (GP0..GP28).
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull hal.Pull) error {
	var mode machine.PinMode
	switch pull {
	case hal.PullUp:
		mode = machine.PinInputPullup
	case hal.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }

func (r *rp2Pin) Toggle() {
	if r.p.Get() {
		r.p.Low()
	} else {
		r.p.High()
	}
}

func (r *rp2Pin) Number() int { return r.n }

func (r *rp2Pin) SetIRQ(edge hal.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

// The RP2 port acks the pin's pending bit in hardware before invoking the
// callback and never shares a callback between pins, so the
// pending-and-enabled check degenerates to a constant.
func (r *rp2Pin) IRQPending() bool { return true }
func (r *rp2Pin) AckIRQ()          {}

func toPinChange(e hal.Edge) machine.PinChange {
	switch e {
	case hal.EdgeRising:
		return machine.PinRising
	case hal.EdgeFalling:
		return machine.PinFalling
	case hal.EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}

// ---- PWM buzzer ----

// buzzerToneHz is the fixed pitch gated by the tone pattern.
const buzzerToneHz uint32 = 1000

// BuzzerPin returns a PWM speaker-gated output for pin n. The tone
// pattern's toggles switch a fixed-pitch note on and off instead of
// flipping a raw level.
func (rp2PinFactory) BuzzerPin(n int) (hal.GPIOPin, bool) {
	if n < 0 || n > 28 {
		return nil, false
	}
	sp, err := NewToneSpeaker(machine.Pin(n))
	if err != nil {
		return nil, false
	}
	return &speakerPin{sp: sp, n: n}, true
}

// speakerPin adapts a tone.Speaker to the GPIOPin surface the pattern
// player drives: HIGH sounds the note, LOW silences it.
type speakerPin struct {
	sp tone.Speaker
	n  int
	on bool
}

func (p *speakerPin) ConfigureInput(hal.Pull) error { return errcode.Unsupported }

func (p *speakerPin) ConfigureOutput(initial bool) error {
	p.Set(initial)
	return nil
}

func (p *speakerPin) Set(level bool) {
	if level {
		_ = p.sp.SetPeriod(timex.PeriodFromHz(buzzerToneHz))
	} else {
		_ = p.sp.SetPeriod(0)
	}
	p.on = level
}

func (p *speakerPin) Get() bool   { return p.on }
func (p *speakerPin) Toggle()     { p.Set(!p.on) }
func (p *speakerPin) Number() int { return p.n }

// NewToneSpeaker binds a PWM-backed speaker to a buzzer pin.
// The slice index for GPn is (n >> 1) & 7.
func NewToneSpeaker(pin machine.Pin) (tone.Speaker, error) {
	return tone.New(pwmForPin(pin), pin)
}

func pwmForPin(pin machine.Pin) tone.PWM {
	switch (uint8(pin) >> 1) & 7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
