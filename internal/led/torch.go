package led

import (
	"errors"
	"fmt"

	"github.com/sweeney/flashlight/internal/gpio"
	"github.com/sweeney/flashlight/internal/logic"
)

// TorchName is the name the torch registers under.
const TorchName = "led:torch"

// ErrNotReady is returned when registering a torch whose lines are not claimed.
var ErrNotReady = errors.New("torch lines not claimed")

// Torch drives a two-line flashlight. It holds the lines but does not own
// them: claiming and releasing belong to gpio.Manager.
type Torch struct {
	name       string
	low        *gpio.Line
	high       *gpio.Line
	table      logic.Table
	brightness logic.Brightness
	registry   *Registry
}

// NewTorch creates an unregistered torch named TorchName driving low and high
// through logic.DefaultTable.
func NewTorch(low, high *gpio.Line) *Torch {
	return &Torch{
		name:  TorchName,
		low:   low,
		high:  high,
		table: logic.DefaultTable,
	}
}

// WithTable replaces the tier table after validating it with logic.NewTable.
// On error the torch keeps its current table.
func (t *Torch) WithTable(table logic.Table) (*Torch, error) {
	checked, err := logic.NewTable(table...)
	if err != nil {
		return t, fmt.Errorf("torch %q: %w", t.name, err)
	}
	t.table = checked
	return t, nil
}

// Name returns the registry name.
func (t *Torch) Name() string { return t.name }

// SetBrightness drives both lines to the pattern for v. The pattern is looked
// up from v alone on every call. Errors come only from the line backend.
func (t *Torch) SetBrightness(v logic.Brightness) error {
	step := t.table.Lookup(v)
	if err := t.low.Set(step.Pattern.Low); err != nil {
		return err
	}
	if err := t.high.Set(step.Pattern.High); err != nil {
		return err
	}
	t.brightness = v
	return nil
}

// State returns the last brightness applied and its table step.
func (t *Torch) State() State {
	return State{Brightness: t.brightness, Step: t.table.Lookup(t.brightness)}
}

// Lines returns the levels currently driven on the low and high lines.
func (t *Torch) Lines() logic.Pattern {
	return logic.Pattern{Low: t.low.Level(), High: t.high.Level()}
}

// Registered reports whether the torch is published in a registry.
func (t *Torch) Registered() bool { return t.registry != nil }

// Register publishes the torch in r. Both lines must be claimed.
func (t *Torch) Register(r *Registry) error {
	if t.registry != nil {
		return fmt.Errorf("register %q: %w", t.name, ErrRegistrationConflict)
	}
	if !t.low.Claimed() || !t.high.Claimed() {
		return fmt.Errorf("register %q: %w (low %v, high %v)", t.name, ErrNotReady, t.low, t.high)
	}
	if err := r.Register(t); err != nil {
		return err
	}
	t.registry = r
	return nil
}

// Deregister removes the torch from its registry, turning it off. It is a
// no-op when the torch is not registered.
func (t *Torch) Deregister() {
	if t.registry == nil {
		return
	}
	t.registry.Deregister(t.name)
	t.registry = nil
}
