// services/blinker/tone.go
package blinker

import (
	"context"

	"gpioblink-go/kernel"
	"gpioblink-go/services/hal"
	"gpioblink-go/types"
	"gpioblink-go/x/timex"
)

// Segment is one leg of a bounded reaction pattern: Count toggles with
// Spacing ticks between them, then a Gap ticks rest.
type Segment struct {
	Count   int
	Spacing timex.Ticks
	Gap     timex.Ticks
}

// Pattern is a deterministic, finite sequence of timed pin pulses, the
// audible "tone" played on the buzzer pin. It is a pure function of its
// constants and always runs to completion once started; an edge arriving
// mid-pattern is not observed until the consumer re-arms.
type Pattern struct {
	Segments []Segment
}

// DefaultTone is two bursts: 100 toggles 2 ticks apart, then 50 toggles
// 4 ticks apart, each followed by a 50-tick rest.
func DefaultTone() Pattern {
	return Pattern{Segments: []Segment{
		{Count: 100, Spacing: 2, Gap: 50},
		{Count: 50, Spacing: 4, Gap: 50},
	}}
}

// PatternFromSpec builds a pattern from config segments, falling back to
// DefaultTone for an empty spec.
func PatternFromSpec(segs []types.SegmentSpec) Pattern {
	if len(segs) == 0 {
		return DefaultTone()
	}
	p := Pattern{Segments: make([]Segment, len(segs))}
	for i, s := range segs {
		p.Segments[i] = Segment{
			Count:   s.Count,
			Spacing: timex.Ticks(s.SpacingTicks),
			Gap:     timex.Ticks(s.GapTicks),
		}
	}
	return p
}

// Play runs the pattern to completion on pin: toggle-then-sleep per
// segment, then the segment gap. It runs on the calling unit, never in
// interrupt context, so its duration only delays that one unit.
func (p Pattern) Play(ctx context.Context, k *kernel.Kernel, pin hal.GPIOPin) {
	for _, seg := range p.Segments {
		for i := 0; i < seg.Count; i++ {
			if ctx.Err() != nil {
				return
			}
			pin.Toggle()
			k.Sleep(ctx, seg.Spacing)
		}
		k.Sleep(ctx, seg.Gap)
	}
}

// SleepCount reports how many kernel sleeps one full Play performs. Test
// drivers stepping a fake clock need the exact number.
func (p Pattern) SleepCount() int {
	n := 0
	for _, seg := range p.Segments {
		n += seg.Count + 1
	}
	return n
}
