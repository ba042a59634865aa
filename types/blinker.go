package types

// ------------------------
// Blinker configuration
// ------------------------

// BlinkerConfig is supplied on the "config/blinker" bus topic. Units are
// created once from the first config received; later messages may only
// adjust the heartbeat interval.
type BlinkerConfig struct {
	HeartbeatTicks int64       `json:"heartbeat_ticks"` // liveness period, kernel ticks
	LEDs           []LEDSpec   `json:"leds"`
	Button         *ButtonSpec `json:"button,omitempty"`
	Buzzer         *BuzzerSpec `json:"buzzer,omitempty"`
}

// LEDSpec describes one periodic toggler.
type LEDSpec struct {
	ID          string `json:"id"`           // logical name, e.g. "led_red"
	Pin         int    `json:"pin"`          // board pin number
	PeriodTicks int64  `json:"period_ticks"` // toggle period, kernel ticks
	Policy      string `json:"policy"`       // "toggle" | "counter" | "read_invert"
}

// ButtonSpec describes the input pin and how its edges are sensed.
type ButtonSpec struct {
	Pin      int    `json:"pin"`
	Edge     string `json:"edge"`               // "rising" | "falling" | "both"
	Pull     string `json:"pull,omitempty"`     // "up" | "down" | "none"
	Source   string `json:"source,omitempty"`   // "irq" (default) | "poll"
	Reaction string `json:"reaction,omitempty"` // "log" (default) | "tone"
}

// BuzzerSpec describes the pulsed output and its pattern. An empty Segments
// slice selects the built-in default tone.
type BuzzerSpec struct {
	Pin      int           `json:"pin"`
	Segments []SegmentSpec `json:"segments,omitempty"`
}

// SegmentSpec is one leg of the bounded reaction pattern: Count toggles at
// Spacing ticks apart, then a Gap ticks rest.
type SegmentSpec struct {
	Count        int   `json:"count"`
	SpacingTicks int64 `json:"spacing_ticks"`
	GapTicks     int64 `json:"gap_ticks"`
}

// ------------------------
// Retained state + events
// ------------------------

// BlinkerState is retained on "blinker/state".
type BlinkerState struct {
	Level    string `json:"level"`  // "idle", "ready", "error", "stopped"
	Status   string `json:"status"` // freeform short code
	Error    string `json:"error,omitempty"`
	UptimeMs int64  `json:"uptime_ms"`
	TsMs     int64  `json:"ts_ms"`
}

// ButtonEvent is published (non-retained) on "blinker/button/event".
type ButtonEvent struct {
	Edge  string `json:"edge"`
	Level int    `json:"level"` // 0/1 at time of reaction
	TsMs  int64  `json:"ts_ms"`
}

// StatusReply answers "blinker/control/status" requests.
type StatusReply struct {
	OK       bool     `json:"ok"`
	UptimeMs int64    `json:"uptime_ms"`
	Units    []string `json:"units"`
}

// ------------------------
// Generic replies
// ------------------------

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
