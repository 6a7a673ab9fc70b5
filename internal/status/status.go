// Package status provides a thread-safe status tracker for the flashlight daemon.
// It is fed by LED registry events and read by HTTP handlers and MQTT events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/flashlight/internal/led"
	"github.com/sweeney/flashlight/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Compatible string
	Chip       string
	Broker     string
	HTTPAddr   string
}

// Hardware describes what the module bound to.
type Hardware struct {
	Node string
	Chip string
	Low  int
	High int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Name          string
	Registered    bool
	Brightness    logic.Brightness
	Tier          logic.Tier
	Pattern       logic.Pattern
	SetCount      int
	LastChange    time.Time
	Hardware      *Hardware
	LoadError     string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Name:      led.TorchName,
			Tier:      logic.TierOff,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Observe applies an LED registry event. Pass it to led.Registry.Observe.
func (t *Tracker) Observe(e led.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e.Name != t.snap.Name {
		return
	}
	t.snap.Registered = e.Registered()
	t.snap.Brightness = e.State.Brightness
	t.snap.Tier = e.State.Step.Tier
	t.snap.Pattern = e.State.Step.Pattern
	t.snap.LastChange = e.Time
	if e.Kind == led.EventBrightness {
		t.snap.SetCount++
	}
}

// SetHardware records the bound hardware, or nil when unbound.
func (t *Tracker) SetHardware(hw *Hardware) {
	t.mu.Lock()
	t.snap.Hardware = hw
	t.mu.Unlock()
}

// SetLoadError records why the module did not load; empty clears it.
func (t *Tracker) SetLoadError(msg string) {
	t.mu.Lock()
	t.snap.LoadError = msg
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Hardware != nil {
		hw := *s.Hardware
		s.Hardware = &hw
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
