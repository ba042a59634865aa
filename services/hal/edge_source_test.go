package hal

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"gpioblink-go/kernel"
)

// ---- fakes ----

type fakePin struct {
	level   bool
	mode    string // "input" or "output"
	pull    Pull
	num     int
	toggles int
}

func (p *fakePin) ConfigureInput(pull Pull) error { p.mode, p.pull = "input", pull; return nil }
func (p *fakePin) ConfigureOutput(initial bool) error {
	p.mode = "output"
	p.level = initial
	return nil
}
func (p *fakePin) Set(level bool) { p.level = level }
func (p *fakePin) Get() bool      { return p.level }
func (p *fakePin) Toggle()        { p.level = !p.level; p.toggles++ }
func (p *fakePin) Number() int    { return p.num }

// fakeIRQPin models the pending-and-enabled bit of a shared interrupt line.
type fakeIRQPin struct {
	fakePin
	edge    Edge
	h       func()
	pending bool
}

func (p *fakeIRQPin) SetIRQ(edge Edge, handler func()) error {
	p.edge, p.h = edge, handler
	return nil
}
func (p *fakeIRQPin) ClearIRQ() error  { p.h = nil; p.edge = EdgeNone; return nil }
func (p *fakeIRQPin) IRQPending() bool { return p.pending }
func (p *fakeIRQPin) AckIRQ()          { p.pending = false }

// trigger simulates a hardware edge: latch the pending bit if the edge is
// selected, then fire the vector.
func (p *fakeIRQPin) trigger(level bool) {
	var e Edge
	switch {
	case !p.level && level:
		e = EdgeRising
	case p.level && !level:
		e = EdgeFalling
	default:
		return
	}
	p.level = level
	if p.edge == EdgeBoth || p.edge == e {
		p.pending = true
	}
	p.fireVector()
}

// fireVector simulates the shared interrupt vector firing, regardless of
// whether this pin's pending bit is set.
func (p *fakeIRQPin) fireVector() {
	if p.h != nil {
		p.h()
	}
}

var _ IRQPin = (*fakeIRQPin)(nil)

type fakeFactory struct {
	pins map[int]GPIOPin
}

func (f *fakeFactory) ByNumber(n int) (GPIOPin, bool) {
	p, ok := f.pins[n]
	return p, ok
}

func newKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	k, err := kernel.New(clockwork.NewRealClock(), kernel.DefaultTickHz)
	if err != nil {
		t.Fatalf("kernel.New: %v", err)
	}
	return k
}

// ---- tests ----

func TestEdgeSource_EdgeNotifiesBoundTask(t *testing.T) {
	k := newKernel(t)
	p := &fakeIRQPin{fakePin: fakePin{num: 4}}
	reg := NewRegistry(&fakeFactory{pins: map[int]GPIOPin{4: p}})

	tk := k.Spawn(context.Background(), "button", func(ctx context.Context, self *kernel.Task) {})
	if err := reg.BindIRQ(4, tk); err != nil {
		t.Fatalf("BindIRQ: %v", err)
	}

	src := NewEdgeSource(p, EdgeFalling, reg)
	if err := src.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	p.level = true
	p.trigger(false) // falling edge

	if !tk.Pending() {
		t.Fatal("falling edge did not raise the notification flag")
	}
	if p.pending {
		t.Fatal("handler must ack its own pending bit")
	}
}

func TestEdgeSource_DoubleEdgeIsOneWakeup(t *testing.T) {
	k := newKernel(t)
	p := &fakeIRQPin{fakePin: fakePin{num: 4}}
	reg := NewRegistry(&fakeFactory{pins: map[int]GPIOPin{4: p}})
	tk := k.Spawn(context.Background(), "button", func(ctx context.Context, self *kernel.Task) {})
	_ = reg.BindIRQ(4, tk)

	src := NewEdgeSource(p, EdgeBoth, reg)
	_ = src.Arm()

	p.trigger(true)
	p.trigger(false)

	if err := tk.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := tk.Wait(ctx); err == nil {
		t.Fatal("two raises before a wait must produce exactly one wake-up")
	}
}

func TestEdgeSource_ForeignVector_NoAction(t *testing.T) {
	k := newKernel(t)
	p := &fakeIRQPin{fakePin: fakePin{num: 4}}
	reg := NewRegistry(&fakeFactory{pins: map[int]GPIOPin{4: p}})
	tk := k.Spawn(context.Background(), "button", func(ctx context.Context, self *kernel.Task) {})
	_ = reg.BindIRQ(4, tk)

	src := NewEdgeSource(p, EdgeFalling, reg)
	_ = src.Arm()

	// Shared vector fires but this pin's pending bit is unset: the handler
	// must take no action at all.
	p.fireVector()

	if tk.Pending() {
		t.Fatal("notification raised for a foreign interrupt")
	}
}

func TestEdgeSource_ArmClearsStalePending(t *testing.T) {
	k := newKernel(t)
	p := &fakeIRQPin{fakePin: fakePin{num: 4}}
	reg := NewRegistry(&fakeFactory{pins: map[int]GPIOPin{4: p}})
	tk := k.Spawn(context.Background(), "button", func(ctx context.Context, self *kernel.Task) {})
	_ = reg.BindIRQ(4, tk)

	// Pending flag left over from pin configuration, before enablement.
	p.pending = true

	src := NewEdgeSource(p, EdgeFalling, reg)
	if err := src.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if p.pending {
		t.Fatal("Arm must clear stale pending before unmasking")
	}
	if tk.Pending() {
		t.Fatal("stale pending must not wake the consumer")
	}
}

func TestEdgeSource_EdgeNoneRejected(t *testing.T) {
	p := &fakeIRQPin{}
	reg := NewRegistry(&fakeFactory{pins: map[int]GPIOPin{}})
	src := NewEdgeSource(p, EdgeNone, reg)
	if err := src.Arm(); err == nil {
		t.Fatal("Arm must reject EdgeNone")
	}
}

func TestEdgeSource_UnboundPin_NotifiesNobody(t *testing.T) {
	p := &fakeIRQPin{fakePin: fakePin{num: 9}}
	reg := NewRegistry(&fakeFactory{pins: map[int]GPIOPin{9: p}})

	src := NewEdgeSource(p, EdgeBoth, reg)
	_ = src.Arm()

	// No BindIRQ: the edge is acked and dropped.
	p.trigger(true)
	if p.pending {
		t.Fatal("pending bit must still be acked")
	}
}
