package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Name          string        `json:"name"`
	Registered    bool          `json:"registered"`
	Brightness    int           `json:"brightness"`
	Tier          string        `json:"tier"`
	Lines         LinesJSON     `json:"lines"`
	SetCount      int           `json:"set_count"`
	LastChange    string        `json:"last_change,omitempty"`
	Hardware      *HardwareJSON `json:"hardware,omitempty"`
	LoadError     string        `json:"load_error,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Config        ConfigJSON    `json:"config"`
}

// LinesJSON reports the level on each control line.
type LinesJSON struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// HardwareJSON is the JSON representation of the bound hardware.
type HardwareJSON struct {
	Node string `json:"node"`
	Chip string `json:"chip"`
	Low  int    `json:"low"`
	High int    `json:"high"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Compatible string `json:"compatible"`
	Chip       string `json:"chip"`
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	tier := string(snap.Tier)
	if tier == "" {
		tier = "UNKNOWN"
	}

	inner := StatusInner{
		Name:          snap.Name,
		Registered:    snap.Registered,
		Brightness:    int(snap.Brightness),
		Tier:          tier,
		Lines:         LinesJSON{Low: snap.Pattern.Low, High: snap.Pattern.High},
		SetCount:      snap.SetCount,
		LoadError:     snap.LoadError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Compatible: snap.Config.Compatible,
			Chip:       snap.Config.Chip,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
		},
	}
	if !snap.LastChange.IsZero() {
		inner.LastChange = snap.LastChange.UTC().Format(time.RFC3339)
	}
	if snap.Hardware != nil {
		inner.Hardware = &HardwareJSON{
			Node: snap.Hardware.Node,
			Chip: snap.Hardware.Chip,
			Low:  snap.Hardware.Low,
			High: snap.Hardware.High,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
