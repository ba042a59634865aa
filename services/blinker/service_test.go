package blinker

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"gpioblink-go/bus"
	"gpioblink-go/errcode"
	"gpioblink-go/internal/platform"
	"gpioblink-go/kernel"
	"gpioblink-go/types"
)

// Integration tests run the supervisor against a real clock, an in-process
// bus and simulated pins, the same shape as the firmware entry point.

type rig struct {
	b    *bus.Bus
	conn *bus.Connection // test-side connection
	k    *kernel.Kernel
	pf   *platform.HostPinFactory
	errs chan error
}

func startService(t *testing.T, ctx context.Context) *rig {
	t.Helper()
	k, err := kernel.New(clockwork.NewRealClock(), kernel.DefaultTickHz)
	if err != nil {
		t.Fatalf("kernel.New: %v", err)
	}
	r := &rig{
		b:    bus.NewBus(16),
		k:    k,
		pf:   platform.NewHostPinFactory(),
		errs: make(chan error, 1),
	}
	r.conn = r.b.NewConnection("test")
	go func() {
		r.errs <- Run(ctx, r.b.NewConnection("blinker"), r.k, r.pf)
	}()
	return r
}

func (r *rig) publishConfig(cfg types.BlinkerConfig) {
	r.conn.Publish(r.conn.NewMessage(bus.T("config", "blinker"), cfg, false))
}

func nextState(t *testing.T, sub *bus.Subscription) types.BlinkerState {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		st, ok := msg.Payload.(types.BlinkerState)
		if !ok {
			t.Fatalf("state payload has wrong type: %T", msg.Payload)
		}
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("no state message")
	}
	return types.BlinkerState{}
}

func demoConfig() types.BlinkerConfig {
	return types.BlinkerConfig{
		HeartbeatTicks: 10_000,
		LEDs: []types.LEDSpec{
			{ID: "led_red", Pin: 11, PeriodTicks: 300, Policy: "toggle"},
			{ID: "led_green", Pin: 12, PeriodTicks: 600, Policy: "counter"},
		},
		Button: &types.ButtonSpec{Pin: 22, Edge: "falling", Pull: "up", Reaction: "tone"},
		Buzzer: &types.BuzzerSpec{Pin: 15, Segments: []types.SegmentSpec{
			{Count: 2, SpacingTicks: 1, GapTicks: 1},
		}},
	}
}

func TestService_ConfigureThenReady(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startService(t, ctx)

	sub := r.conn.Subscribe(bus.T("blinker", "state"))
	defer r.conn.Unsubscribe(sub)

	if st := nextState(t, sub); st.Level != "idle" {
		t.Fatalf("expected retained idle state first, got %q/%q", st.Level, st.Status)
	}

	r.publishConfig(demoConfig())
	st := nextState(t, sub)
	if st.Level != "ready" || st.Status != "configured" {
		t.Fatalf("expected ready/configured, got %q/%q", st.Level, st.Status)
	}

	for _, name := range []string{"led_red", "led_green", "button"} {
		found := false
		for _, n := range r.k.TaskNames() {
			if n == name {
				found = true
			}
		}
		if !found {
			t.Fatalf("unit %q was not spawned (have %v)", name, r.k.TaskNames())
		}
	}
}

func TestService_ButtonEventPublished(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startService(t, ctx)

	state := r.conn.Subscribe(bus.T("blinker", "state"))
	defer r.conn.Unsubscribe(state)
	events := r.conn.Subscribe(bus.T("blinker", "button", "event"))
	defer r.conn.Unsubscribe(events)

	cfg := demoConfig()
	cfg.Button.Reaction = "log" // no tone, keeps the reaction instant
	cfg.Buzzer = nil
	r.publishConfig(cfg)
	for nextState(t, state).Level != "ready" {
	}

	r.pf.Pin(22).Drive(false) // press the pulled-up button

	select {
	case msg := <-events.Channel():
		ev, ok := msg.Payload.(types.ButtonEvent)
		if !ok {
			t.Fatalf("event payload has wrong type: %T", msg.Payload)
		}
		if ev.Edge != "falling" || ev.Level != 0 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no button event after an edge")
	}
}

func TestService_StatusRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startService(t, ctx)

	state := r.conn.Subscribe(bus.T("blinker", "state"))
	defer r.conn.Unsubscribe(state)
	r.publishConfig(demoConfig())
	for nextState(t, state).Level != "ready" {
	}

	rctx, rcancel := context.WithTimeout(ctx, 2*time.Second)
	defer rcancel()
	rep, err := r.conn.RequestWait(rctx, r.conn.NewMessage(bus.T("blinker", "control", "status"), nil, false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	status, ok := rep.Payload.(types.StatusReply)
	if !ok {
		t.Fatalf("reply has wrong type: %T", rep.Payload)
	}
	if !status.OK || len(status.Units) == 0 {
		t.Fatalf("bad status reply: %+v", status)
	}
}

func TestService_UnknownControlMethod(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startService(t, ctx)

	rctx, rcancel := context.WithTimeout(ctx, 2*time.Second)
	defer rcancel()
	rep, err := r.conn.RequestWait(rctx, r.conn.NewMessage(bus.T("blinker", "control", "selfdestruct"), nil, false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	er, ok := rep.Payload.(types.ErrorReply)
	if !ok || er.OK || er.Error != string(errcode.Unsupported) {
		t.Fatalf("expected unsupported error reply, got %#v", rep.Payload)
	}
}

func TestService_DuplicatePinIsTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startService(t, ctx)

	state := r.conn.Subscribe(bus.T("blinker", "state"))
	defer r.conn.Unsubscribe(state)
	nextState(t, state) // idle

	cfg := demoConfig()
	cfg.LEDs[1].Pin = cfg.LEDs[0].Pin
	r.publishConfig(cfg)

	st := nextState(t, state)
	if st.Level != "error" || st.Status != "apply_config_failed" {
		t.Fatalf("expected error/apply_config_failed, got %q/%q", st.Level, st.Status)
	}
	select {
	case err := <-r.errs:
		if errcode.Of(err) != errcode.PinInUse {
			t.Fatalf("Run returned %v, want pin_in_use", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on a terminal config error")
	}
}

func TestService_BadPayloadIsNotTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startService(t, ctx)

	state := r.conn.Subscribe(bus.T("blinker", "state"))
	defer r.conn.Unsubscribe(state)
	nextState(t, state) // idle

	r.conn.Publish(r.conn.NewMessage(bus.T("config", "blinker"), "not a config", false))
	st := nextState(t, state)
	if st.Level != "error" || st.Status != "config_decode_failed" {
		t.Fatalf("expected error/config_decode_failed, got %q/%q", st.Level, st.Status)
	}

	// The service must still accept a good config afterwards.
	r.publishConfig(demoConfig())
	st = nextState(t, state)
	if st.Level != "ready" {
		t.Fatalf("service did not recover from a bad payload: %q/%q", st.Level, st.Status)
	}
}
