package internal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sweeney/flashlight/internal/driver"
	"github.com/sweeney/flashlight/internal/gpio"
	"github.com/sweeney/flashlight/internal/hwdesc"
	"github.com/sweeney/flashlight/internal/led"
	"github.com/sweeney/flashlight/internal/logic"
	"github.com/sweeney/flashlight/internal/metrics"
	"github.com/sweeney/flashlight/internal/mqtt"
	"github.com/sweeney/flashlight/internal/status"
)

// deviceTree builds a flattened device tree with a camera-flash node whose
// flash-gpios property lists offsets.
func deviceTree(offsets ...uint32) fstest.MapFS {
	var gpios []byte
	for _, off := range offsets {
		gpios = binary.BigEndian.AppendUint32(gpios, 7)
		gpios = binary.BigEndian.AppendUint32(gpios, off)
		gpios = binary.BigEndian.AppendUint32(gpios, 0)
	}
	return fstest.MapFS{
		"compatible":                        {Data: []byte("vendor,board\x00")},
		"soc/gpio@1000/compatible":          {Data: []byte("vendor,gpio\x00")},
		"soc/camera-flash/compatible":       {Data: []byte("qcom,camera-flash\x00")},
		"soc/camera-flash/qcom,flash-gpios": {Data: gpios},
	}
}

type harness struct {
	chip     *gpio.FakeChip
	registry *led.Registry
	tracker  *status.Tracker
	metrics  *metrics.Metrics
	client   *mqtt.FakeClient
	bridge   *mqtt.Bridge
	topics   mqtt.Topics
	module   *driver.Module
}

func newHarness(t *testing.T, tree fstest.MapFS) *harness {
	t.Helper()
	h := &harness{
		chip:     gpio.NewFakeChip(32),
		registry: led.NewRegistry(nil),
		tracker:  status.NewTracker(time.Now(), status.Config{}),
		metrics:  metrics.New(),
		client:   mqtt.NewFakeClient(),
		topics:   mqtt.NewTopics(""),
	}
	h.registry.Observe(h.tracker.Observe)
	h.registry.Observe(h.metrics.Observe)
	h.bridge = mqtt.NewBridge(h.client, h.topics, h.registry, led.TorchName, nil)
	h.registry.Observe(h.bridge.Observe)
	if err := h.bridge.Start(); err != nil {
		t.Fatalf("bridge start: %v", err)
	}

	open := func(string) (gpio.Chip, error) { return h.chip, nil }
	h.module = driver.New(driver.DefaultConfig(), hwdesc.NewDeviceTreeFS(tree), open, h.registry, nil)
	return h
}

func (h *harness) states(t *testing.T) []mqtt.TorchPayload {
	t.Helper()
	h.bridge.Flush()
	var out []mqtt.TorchPayload
	for _, m := range h.client.Messages(h.topics.State) {
		var p mqtt.StatePayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			t.Fatalf("invalid state JSON: %v", err)
		}
		out = append(out, p.Torch)
	}
	return out
}

// TestIntegrationFullFlow drives the torch from device tree discovery through
// MQTT commands to line levels and back out as state, status and metrics.
func TestIntegrationFullFlow(t *testing.T) {
	h := newHarness(t, deviceTree(12, 13))

	if err := h.module.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	steps := []struct {
		cmd       string
		low, high int
		tier      string
	}{
		{"0", 0, 0, "OFF"},
		{"1", 1, 0, "LOW"},
		{"49", 1, 0, "LOW"},
		{"50", 0, 1, "HIGH"},
		{"ON", 0, 1, "HIGH"},
		{"OFF", 0, 0, "OFF"},
		{"75", 0, 1, "HIGH"},
	}
	for _, s := range steps {
		h.client.Deliver(h.topics.Command, []byte(s.cmd))
		if got := [2]int{h.chip.Level(12), h.chip.Level(13)}; got != [2]int{s.low, s.high} {
			t.Errorf("command %q: lines got %v, want (%d,%d)", s.cmd, got, s.low, s.high)
		}
	}

	states := h.states(t)
	// REGISTERED plus one state per command.
	if len(states) != len(steps)+1 {
		t.Fatalf("state messages: got %d, want %d", len(states), len(steps)+1)
	}
	if states[0].Event != "REGISTERED" {
		t.Errorf("first state event: got %s, want REGISTERED", states[0].Event)
	}
	for i, s := range steps {
		got := states[i+1]
		if got.Tier != s.tier || got.Low != s.low || got.High != s.high {
			t.Errorf("state %d (%q): got %+v", i, s.cmd, got)
		}
	}

	snap := h.tracker.Snapshot()
	if snap.Brightness != 75 || snap.Tier != logic.TierHigh || snap.SetCount != len(steps) {
		t.Errorf("tracker: brightness=%d tier=%s sets=%d", snap.Brightness, snap.Tier, snap.SetCount)
	}

	rec := httptest.NewRecorder()
	h.metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`flashlight_brightness_sets_total{led="led:torch",tier="HIGH"} 3`,
		`flashlight_brightness_sets_total{led="led:torch",tier="LOW"} 2`,
		`flashlight_brightness{led="led:torch"} 75`,
		`flashlight_registered{led="led:torch"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}

	h.module.Unload()

	for _, off := range []int{12, 13} {
		if _, ok := h.chip.Claimed(off); ok {
			t.Errorf("line %d still claimed after unload", off)
		}
	}
	states = h.states(t)
	last := states[len(states)-1]
	if last.Event != "DEREGISTERED" || last.Registered || last.Brightness != 0 {
		t.Errorf("final state: got %+v", last)
	}
	if h.tracker.Snapshot().Registered {
		t.Error("tracker still reports registered")
	}
}

func TestIntegrationBusyRollbackThenRetry(t *testing.T) {
	h := newHarness(t, deviceTree(12, 13))
	h.chip.Hogs = map[int]string{13: "camera"}

	err := h.module.Load()
	if !errors.Is(err, gpio.ErrResourceBusy) {
		t.Fatalf("expected ErrResourceBusy, got %v", err)
	}
	if driver.Code(err) != driver.Code(gpio.ErrResourceBusy) {
		t.Errorf("Code: got %d", driver.Code(err))
	}
	if _, ok := h.chip.Claimed(12); ok {
		t.Error("line 12 not rolled back")
	}
	if states := h.states(t); len(states) != 0 {
		t.Errorf("no state expected after failed load, got %d", len(states))
	}

	// The other consumer lets go; a fresh load now succeeds.
	h.chip.Hogs = nil
	h.chip.Closed = false
	if err := h.module.Load(); err != nil {
		t.Fatalf("retry load: %v", err)
	}
	if owner, _ := h.chip.Claimed(12); owner != gpio.DefaultConsumerLow {
		t.Errorf("line 12 owner: got %q", owner)
	}
	h.module.Unload()
}

func TestIntegrationInvalidDescription(t *testing.T) {
	h := newHarness(t, deviceTree(12))

	err := h.module.Load()
	if !errors.Is(err, gpio.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if h.chip.ClaimCalls != 0 {
		t.Errorf("expected zero claims, got %d", h.chip.ClaimCalls)
	}
}

func TestIntegrationRegistrationConflict(t *testing.T) {
	h := newHarness(t, deviceTree(12, 13))

	// Another torch already owns the name.
	other := driver.New(driver.DefaultConfig(), hwdesc.NewDeviceTreeFS(deviceTree(20, 21)),
		func(string) (gpio.Chip, error) { return h.chip, nil }, h.registry, nil)
	if err := other.Load(); err != nil {
		t.Fatalf("first load: %v", err)
	}

	err := h.module.Load()
	if !errors.Is(err, led.ErrRegistrationConflict) {
		t.Fatalf("expected ErrRegistrationConflict, got %v", err)
	}
	for _, off := range []int{12, 13} {
		if _, ok := h.chip.Claimed(off); ok {
			t.Errorf("line %d leaked after conflict", off)
		}
	}
	if _, ok := h.chip.Claimed(20); !ok {
		t.Error("first torch lost its line")
	}

	// Commands still reach the torch that won.
	h.client.Deliver(h.topics.Command, []byte("10"))
	if h.chip.Level(20) != 1 {
		t.Errorf("line 20: got %d, want 1", h.chip.Level(20))
	}
	other.Unload()
}

func TestIntegrationNotFound(t *testing.T) {
	h := newHarness(t, fstest.MapFS{"compatible": {Data: []byte("vendor,board\x00")}})

	err := h.module.Load()
	if !errors.Is(err, hwdesc.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if driver.IsFatal(err) {
		t.Error("not found should not be fatal")
	}

	h.client.Deliver(h.topics.Command, []byte("ON"))
	if n := len(h.states(t)); n != 0 {
		t.Errorf("no state expected without a torch, got %d", n)
	}
}

func TestIntegrationSetFailureDoesNotPublish(t *testing.T) {
	h := newHarness(t, deviceTree(12, 13))
	if err := h.module.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := len(h.states(t))

	h.chip.SetError = errors.New("write failed")
	h.client.Deliver(h.topics.Command, []byte("200"))

	if n := len(h.states(t)); n != before {
		t.Errorf("state published after failed set: %d -> %d", before, n)
	}
	if h.tracker.Snapshot().SetCount != 0 {
		t.Error("failed set counted")
	}

	h.chip.SetError = nil
	h.module.Unload()
}

func TestIntegrationShutdownPayload(t *testing.T) {
	h := newHarness(t, deviceTree(12, 13))
	if err := h.module.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	h.client.Deliver(h.topics.Command, []byte("30"))
	h.module.Unload()
	h.bridge.Flush()

	snap := h.tracker.Snapshot()
	err := h.bridge.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	})
	if err != nil {
		t.Fatalf("publish shutdown: %v", err)
	}

	msgs := h.client.Messages(h.topics.System)
	if len(msgs) != 1 {
		t.Fatalf("system messages: got %d, want 1", len(msgs))
	}
	var sj status.StatusJSON
	if err := json.Unmarshal(msgs[0].Payload, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %s/%s", sj.Status.Event, sj.Status.Reason)
	}
	if sj.Status.Registered || sj.Status.SetCount != 1 {
		t.Errorf("status: registered=%v sets=%d", sj.Status.Registered, sj.Status.SetCount)
	}
}
