package mqtt

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sweeney/flashlight/internal/led"
	"github.com/sweeney/flashlight/internal/logic"
)

// Setter applies a brightness to a named LED. *led.Registry satisfies it.
type Setter interface {
	Set(name string, v logic.Brightness) error
}

// Bridge relays brightness commands from MQTT into the LED registry and
// registry events back out as retained state messages.
type Bridge struct {
	client Client
	topics Topics
	setter Setter
	name   string
	events chan led.Event
	logger *slog.Logger
}

// NewBridge creates a bridge for the LED called name. A nil logger discards output.
func NewBridge(client Client, topics Topics, setter Setter, name string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{
		client: client,
		topics: topics,
		setter: setter,
		name:   name,
		events: make(chan led.Event, 32),
		logger: logger,
	}
}

// Start subscribes to the command topic.
func (b *Bridge) Start() error {
	if err := b.client.Subscribe(b.topics.Command, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.topics.Command, err)
	}
	b.logger.Info("mqtt bridge started", "command", b.topics.Command, "state", b.topics.State)
	return nil
}

// Observe queues a registry event for publishing. It never blocks: when the
// queue is full the event is dropped, since a later state supersedes it.
// Pass it to led.Registry.Observe.
func (b *Bridge) Observe(e led.Event) {
	if e.Name != b.name {
		return
	}
	select {
	case b.events <- e:
	default:
		b.logger.Warn("mqtt state queue full, dropping event", "kind", e.Kind)
	}
}

// Run publishes queued events until ctx is done.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.events:
			if err := b.publishState(e); err != nil {
				// Don't crash on publish failure
				b.logger.Warn("state publish error", "error", err)
			}
		}
	}
}

// Flush publishes every queued event without waiting for more.
func (b *Bridge) Flush() {
	for {
		select {
		case e := <-b.events:
			if err := b.publishState(e); err != nil {
				b.logger.Warn("state publish error", "error", err)
			}
		default:
			return
		}
	}
}

// PublishSystem sends a lifecycle event on the system topic.
func (b *Bridge) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return b.client.Publish(b.topics.System, 1, event.Retained, payload)
}

func (b *Bridge) publishState(e led.Event) error {
	payload, err := FormatStatePayload(e)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	return b.client.Publish(b.topics.State, 1, true, payload)
}

func (b *Bridge) handleCommand(payload []byte) {
	v, err := logic.ParseBrightness(string(payload))
	if err != nil {
		b.logger.Warn("ignoring brightness command", "error", err)
		return
	}
	if err := b.setter.Set(b.name, v); err != nil {
		b.logger.Error("brightness command failed", "brightness", v, "error", err)
		return
	}
	b.logger.Info("brightness command applied", "brightness", v)
}
