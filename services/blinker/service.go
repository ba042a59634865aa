// services/blinker/service.go
package blinker

import (
	"context"
	"time"

	"gpioblink-go/bus"
	"gpioblink-go/errcode"
	"gpioblink-go/kernel"
	"gpioblink-go/services/hal"
	"gpioblink-go/types"
	"gpioblink-go/x/mathx"
	"gpioblink-go/x/timex"
)

var (
	topicConfig      = bus.Topic{"config", "blinker"}
	topicState       = bus.Topic{"blinker", "state"}
	topicButtonEvent = bus.Topic{"blinker", "button", "event"}
	topicControl     = bus.Topic{"blinker", "control", "+"}
)

// Heartbeat defaults and clamp range, in kernel ticks (1 kHz).
const (
	defaultHeartbeatTicks timex.Ticks = 10_000
	minHeartbeatTicks     timex.Ticks = 100
	maxHeartbeatTicks     timex.Ticks = 3_600_000
)

type service struct {
	conn *bus.Connection
	k    *kernel.Kernel
	reg  *hal.Registry

	configured bool
	hbTicks    timex.Ticks
	start      time.Time

	button hal.GPIOPin // nil until configured
}

// Run is the supervisor: it performs one-time hardware initialization from
// the first config received on "config/blinker", spawns every schedulable
// unit, and then itself becomes the low-rate heartbeat unit, emitting a
// liveness line and retained state forever.
//
// Startup failures (bad config, pin conflicts) are terminal: the error
// state is published and Run returns. There is no retry; recovery is the
// watchdog's job.
func Run(ctx context.Context, conn *bus.Connection, k *kernel.Kernel, pins hal.PinFactory) error {
	s := &service{
		conn:    conn,
		k:       k,
		reg:     hal.NewRegistry(pins),
		hbTicks: defaultHeartbeatTicks,
	}
	return s.loop(ctx)
}

func (s *service) loop(ctx context.Context) error {
	cfgSub := s.conn.Subscribe(topicConfig)
	ctrlSub := s.conn.Subscribe(topicControl)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.start = s.k.Clock().Now()
	s.publishState("idle", "awaiting_config", nil)

	tick := s.k.Clock().NewTicker(timex.TicksToDuration(s.hbTicks, s.k.TickHz()))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return nil

		case msg := <-cfgSub.Channel():
			cfg, ok := msg.Payload.(types.BlinkerConfig)
			if !ok {
				s.publishState("error", "config_decode_failed", errcode.InvalidPayload)
				continue
			}
			if cfg.HeartbeatTicks > 0 {
				s.hbTicks = mathx.Clamp(timex.Ticks(cfg.HeartbeatTicks), minHeartbeatTicks, maxHeartbeatTicks)
				tick.Reset(timex.TicksToDuration(s.hbTicks, s.k.TickHz()))
			}
			if s.configured {
				// Units are fixed after startup; only the heartbeat
				// interval above is adjustable.
				continue
			}
			if err := s.applyConfig(ctx, cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				return err
			}
			s.configured = true
			s.publishState("ready", "configured", nil)

		case <-tick.Chan():
			println("Info: Heartbeat")
			level, status := "idle", "awaiting_config"
			if s.configured {
				level, status = "ready", "alive"
			}
			s.publishState(level, status, nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)
		}
	}
}

// applyConfig claims and configures every pin exactly once and spawns the
// fixed set of schedulable units. Any failure here is terminal.
func (s *service) applyConfig(ctx context.Context, cfg types.BlinkerConfig) error {
	for _, led := range cfg.LEDs {
		pin, err := s.reg.ClaimOutput(led.ID, led.Pin, false)
		if err != nil {
			return err
		}
		tg := NewToggler(led.ID, pin, timex.Ticks(led.PeriodTicks), ParsePolicy(led.Policy))
		s.k.Spawn(ctx, led.ID, func(ctx context.Context, _ *kernel.Task) {
			tg.Run(ctx, s.k)
		})
	}

	var buzzer hal.GPIOPin
	var pattern Pattern
	if cfg.Buzzer != nil {
		var err error
		buzzer, err = s.reg.ClaimBuzzer("buzzer", cfg.Buzzer.Pin)
		if err != nil {
			return err
		}
		pattern = PatternFromSpec(cfg.Buzzer.Segments)
	}

	if cfg.Button != nil {
		return s.setupButton(ctx, cfg.Button, buzzer, pattern)
	}
	return nil
}

func (s *service) setupButton(ctx context.Context, spec *types.ButtonSpec, buzzer hal.GPIOPin, pattern Pattern) error {
	pull := hal.ParsePull(spec.Pull)
	reaction := s.buttonReaction(spec, buzzer, pattern)

	if spec.Source == "poll" {
		pin, err := s.reg.ClaimInput("button", spec.Pin, pull)
		if err != nil {
			return err
		}
		s.button = pin
		// Pressed level follows the pull: a pulled-up button reads LOW
		// when pressed.
		active := pull != hal.PullUp
		src := hal.NewPollSource(pin, active, reaction)
		s.k.Spawn(ctx, "button_poll", func(ctx context.Context, _ *kernel.Task) {
			src.Run(ctx)
		})
		return nil
	}

	pin, err := s.reg.ClaimIRQInput("button", spec.Pin, pull)
	if err != nil {
		return err
	}
	s.button = pin

	consumer := NewConsumer(reaction)
	task := s.k.Spawn(ctx, "button", consumer.Loop)
	if err := s.reg.BindIRQ(spec.Pin, task); err != nil {
		return err
	}

	edge := hal.ParseEdge(spec.Edge)
	if edge == hal.EdgeNone {
		edge = hal.EdgeFalling
	}
	return hal.NewEdgeSource(pin, edge, s.reg).Arm()
}

// buttonReaction builds the bounded reaction run on the consumer unit:
// publish the event, log, and play the tone when a buzzer is configured.
func (s *service) buttonReaction(spec *types.ButtonSpec, buzzer hal.GPIOPin, pattern Pattern) func(ctx context.Context) {
	withTone := spec.Reaction == "tone" && buzzer != nil
	return func(ctx context.Context) {
		level := hal.BoolToInt(s.button.Get())
		println("Info: button", spec.Pin, "level", level)
		s.conn.Publish(s.conn.NewMessage(topicButtonEvent, types.ButtonEvent{
			Edge:  spec.Edge,
			Level: level,
			TsMs:  s.k.Clock().Now().UnixMilli(),
		}, false))
		if withTone {
			pattern.Play(ctx, s.k, buzzer)
		}
	}
}

func (s *service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 3 {
		return
	}
	method, _ := msg.Topic[2].(string)
	switch method {
	case "status":
		s.conn.Reply(msg, types.StatusReply{
			OK:       true,
			UptimeMs: s.uptimeMs(),
			Units:    s.k.TaskNames(),
		}, false)
	default:
		s.conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Unsupported)}, false)
	}
}

func (s *service) uptimeMs() int64 {
	return s.k.Clock().Since(s.start).Milliseconds()
}

func (s *service) publishState(level, status string, err error) {
	st := types.BlinkerState{
		Level:    level,
		Status:   status,
		UptimeMs: s.uptimeMs(),
		TsMs:     s.k.Clock().Now().UnixMilli(),
	}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, st, true))
}
