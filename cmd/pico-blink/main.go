// Command pico-blink: GPIO exercise firmware with three LED togglers, a button
// interrupt handed off to a waiting unit, and a buzzer tone reaction.
//
// Build/flash (TinyGo):
//   tinygo flash -target pico ./cmd/pico-blink
//
// Runs on the host too (simulated pins):
//   go run ./cmd/pico-blink
//
// Wiring assumptions (edit in blinkCfg as needed):
// - LEDs red/green/blue on GP11/GP12/GP13 (active-high).
// - Button on GP22, wired to ground, internal pull-up, falling edge.
// - Buzzer on GP15.

package main

import (
	"context"
	"fmt"
	"time"

	"gpioblink-go/bus"
	"gpioblink-go/internal/platform"
	"gpioblink-go/kernel"
	"gpioblink-go/services/blinker"
	"gpioblink-go/types"
)

// Version is stamped at build time:
//
//	go build -ldflags "-X main.Version=1.2.3" ./cmd/pico-blink
var Version = "0.0.0-dev"

func main() {
	platform.InitSerialLog()
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("gpioblink", Version)

	k, err := kernel.New(platform.DefaultClock(), kernel.DefaultTickHz)
	if err != nil {
		// No scheduler, nothing to fall back to. Recovery is an external
		// watchdog reset.
		println("Error:", err.Error())
		select {}
	}

	b := bus.NewBus(64)
	conn := b.NewConnection("main")

	stateSub := conn.Subscribe(bus.T("blinker", "state"))
	defer conn.Unsubscribe(stateSub)
	buttonSub := conn.Subscribe(bus.T("blinker", "button", "event"))
	defer conn.Unsubscribe(buttonSub)

	ctx := context.Background()
	go func() {
		if err := blinker.Run(ctx, b.NewConnection("blinker"), k, platform.DefaultPinFactory()); err != nil {
			println("Error: blinker:", err.Error())
		}
	}()

	// ----------------------------------------------------------------------------
	// EDITABLE CONFIGURATION
	// ----------------------------------------------------------------------------
	blinkCfg := types.BlinkerConfig{
		HeartbeatTicks: 10_000, // 10 s at the 1 kHz tick
		LEDs: []types.LEDSpec{
			{ID: "led_red", Pin: 11, PeriodTicks: 300, Policy: "toggle"},
			{ID: "led_green", Pin: 12, PeriodTicks: 600, Policy: "counter"},
			{ID: "led_blue", Pin: 13, PeriodTicks: 1000, Policy: "read_invert"},
		},
		Button: &types.ButtonSpec{
			Pin:      22,
			Edge:     "falling",
			Pull:     "up",
			Source:   "irq",
			Reaction: "tone",
		},
		Buzzer: &types.BuzzerSpec{Pin: 15},
	}
	// ----------------------------------------------------------------------------

	conn.Publish(conn.NewMessage(bus.T("config", "blinker"), blinkCfg, false))

	// Main print loop: stream liveness and button telemetry.
	for {
		select {
		case m := <-stateSub.Channel():
			if st, ok := m.Payload.(types.BlinkerState); ok {
				if st.Error != "" {
					fmt.Printf("[blinker] state=%s status=%s error=%s\n", st.Level, st.Status, st.Error)
				} else {
					fmt.Printf("[blinker] state=%s status=%s uptime=%dms\n", st.Level, st.Status, st.UptimeMs)
				}
			}
		case m := <-buttonSub.Channel():
			if ev, ok := m.Payload.(types.ButtonEvent); ok {
				fmt.Printf("[button] edge=%s level=%d\n", ev.Edge, ev.Level)
			}
		}
	}
}
