// Package mqtt connects the torch to an MQTT broker: brightness commands come
// in on a command topic, state changes and lifecycle events go out.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/flashlight/internal/led"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "flashlight/torch"

// Client is the subset of an MQTT client the bridge needs.
type Client interface {
	// Publish sends payload to topic. Implementations may buffer while
	// disconnected.
	Publish(topic string, qos byte, retained bool, payload []byte) error

	// Subscribe registers handler for messages on topic. The subscription
	// must survive reconnects.
	Subscribe(topic string, handler func(payload []byte)) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Topics holds the topic names derived from a prefix.
type Topics struct {
	Command string // brightness commands (subscribe)
	State   string // torch state (publish, retained)
	System  string // lifecycle events (publish)
}

// NewTopics derives the topic set from prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		Command: prefix + "/brightness/set",
		State:   prefix + "/state",
		System:  prefix + "/system",
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload represents the MQTT message payload for simple system events
// that don't carry a full status snapshot (e.g. the last will).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// StatePayload is the retained torch state message.
type StatePayload struct {
	Torch TorchPayload `json:"torch"`
}

// TorchPayload contains the torch state details.
type TorchPayload struct {
	Timestamp  string `json:"timestamp"`
	Name       string `json:"name"`
	Event      string `json:"event"`
	Registered bool   `json:"registered"`
	Brightness int    `json:"brightness"`
	Tier       string `json:"tier"`
	Low        int    `json:"low"`
	High       int    `json:"high"`
}

// FormatStatePayload creates the JSON payload for a registry event.
func FormatStatePayload(e led.Event) ([]byte, error) {
	p := e.State.Step.Pattern
	payload := StatePayload{
		Torch: TorchPayload{
			Timestamp:  e.Time.UTC().Format(time.RFC3339),
			Name:       e.Name,
			Event:      string(e.Kind),
			Registered: e.Registered(),
			Brightness: int(e.State.Brightness),
			Tier:       string(e.State.Step.Tier),
			Low:        p.Low,
			High:       p.High,
		},
	}
	return json.Marshal(payload)
}
