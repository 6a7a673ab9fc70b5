// Package led provides the illumination sink registry and the torch device
// that registers with it.
package led

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sweeney/flashlight/internal/logic"
)

var (
	// ErrRegistrationConflict is returned when a sink name is already taken.
	ErrRegistrationConflict = errors.New("led name already registered")

	// ErrNoSuchDevice is returned when addressing an unregistered sink.
	ErrNoSuchDevice = errors.New("no such led")
)

// State is the current state of a sink.
type State struct {
	Brightness logic.Brightness
	Step       logic.Step
}

// Sink is a device that accepts brightness commands.
type Sink interface {
	Name() string
	SetBrightness(v logic.Brightness) error
	State() State
}

// EventKind says what changed.
type EventKind string

const (
	EventRegistered   EventKind = "REGISTERED"
	EventBrightness   EventKind = "BRIGHTNESS"
	EventDeregistered EventKind = "DEREGISTERED"
)

// Event is delivered to observers after every successful brightness change
// and on registration changes.
type Event struct {
	Time  time.Time
	Kind  EventKind
	Name  string
	State State
}

// Registered reports whether the sink is registered after the event.
func (e Event) Registered() bool { return e.Kind != EventDeregistered }

// Registry holds sinks by name. All brightness changes go through Set, which
// serializes them so no two run concurrently.
type Registry struct {
	mu        sync.Mutex
	sinks     map[string]Sink
	observers []func(Event)
	now       func() time.Time
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		sinks:  make(map[string]Sink),
		now:    time.Now,
		logger: logger,
	}
}

// Observe adds fn to the functions called after every change. Observers run
// with the registry lock held and must not call back into the registry.
func (r *Registry) Observe(fn func(Event)) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// Register publishes s under its name.
func (r *Registry) Register(s Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, ok := r.sinks[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrRegistrationConflict)
	}
	r.sinks[name] = s
	r.logger.Info("led registered", "name", name)
	r.notify(Event{Kind: EventRegistered, Name: name, State: s.State()})
	return nil
}

// Deregister turns the sink called name off and removes it. It reports
// whether one was removed.
func (r *Registry) Deregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sinks[name]
	if !ok {
		return false
	}
	if err := s.SetBrightness(0); err != nil {
		r.logger.Warn("failed to turn led off on deregister", "name", name, "error", err)
	}
	delete(r.sinks, name)
	r.logger.Info("led deregistered", "name", name)
	r.notify(Event{Kind: EventDeregistered, Name: name, State: s.State()})
	return true
}

// Set applies brightness v to the sink called name.
func (r *Registry) Set(name string, v logic.Brightness) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sinks[name]
	if !ok {
		return fmt.Errorf("set %q: %w", name, ErrNoSuchDevice)
	}
	if err := s.SetBrightness(v); err != nil {
		return fmt.Errorf("set %q to %d: %w", name, v, err)
	}
	st := s.State()
	r.logger.Debug("brightness set", "name", name, "brightness", v, "tier", st.Step.Tier)
	r.notify(Event{Kind: EventBrightness, Name: name, State: st})
	return nil
}

// Lookup returns the state of the sink called name.
func (r *Registry) Lookup(name string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sinks[name]
	if !ok {
		return State{}, false
	}
	return s.State(), true
}

// Names returns the registered sink names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.sinks))
	for n := range r.sinks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) notify(e Event) {
	e.Time = r.now()
	for _, fn := range r.observers {
		fn(e)
	}
}
