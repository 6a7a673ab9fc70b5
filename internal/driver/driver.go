// Package driver ties hardware discovery, line ownership and LED registration
// together into a loadable torch module.
package driver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sweeney/flashlight/internal/gpio"
	"github.com/sweeney/flashlight/internal/hwdesc"
	"github.com/sweeney/flashlight/internal/led"
)

// Config selects the hardware the module binds to.
type Config struct {
	Compatible   string // hardware description compatible tag
	Property     string // property listing the low and high line offsets
	Chip         string // chip used when the node names none
	ConsumerLow  string
	ConsumerHigh string
}

// DefaultConfig returns the camera-flash binding on gpiochip0.
func DefaultConfig() Config {
	return Config{
		Compatible:   hwdesc.DefaultCompatible,
		Property:     hwdesc.DefaultProperty,
		Chip:         "gpiochip0",
		ConsumerLow:  gpio.DefaultConsumerLow,
		ConsumerHigh: gpio.DefaultConsumerHigh,
	}
}

// ChipOpener opens a GPIO chip by name.
type ChipOpener func(name string) (gpio.Chip, error)

// Module is one instance of the torch driver. It carries all state shared
// between Load and Unload.
type Module struct {
	cfg      Config
	source   hwdesc.Source
	open     ChipOpener
	registry *led.Registry
	logger   *slog.Logger

	node   *hwdesc.Node
	chip   gpio.Chip
	lines  *gpio.Manager
	torch  *led.Torch
	loaded bool
}

// New creates an unloaded module. A nil logger discards output.
func New(cfg Config, source hwdesc.Source, open ChipOpener, registry *led.Registry, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Module{
		cfg:      cfg,
		source:   source,
		open:     open,
		registry: registry,
		logger:   logger,
	}
}

// Load discovers the hardware, claims and configures both lines and registers
// the torch. On any failure everything done so far is undone before the error
// is returned; Code maps the error to a negative errno.
func (m *Module) Load() error {
	if m.loaded {
		return fmt.Errorf("load: %w", led.ErrRegistrationConflict)
	}

	node, err := m.source.FindCompatible(m.cfg.Compatible)
	if err != nil {
		return fmt.Errorf("discover %s: %w", m.cfg.Compatible, err)
	}

	chipName := node.Chip
	if chipName == "" {
		chipName = m.cfg.Chip
	}
	chip, err := m.open(chipName)
	if err != nil {
		return fmt.Errorf("%w: %w", gpio.ErrResourceUnavailable, err)
	}

	lines := gpio.NewManager(chip, m.logger)
	if err := lines.Bind(node, m.cfg.Property); err != nil {
		chip.Close()
		return err
	}
	if err := lines.Acquire(m.cfg.ConsumerLow, m.cfg.ConsumerHigh); err != nil {
		chip.Close()
		return err
	}

	torch := led.NewTorch(lines.Low(), lines.High())
	if err := torch.Register(m.registry); err != nil {
		lines.ReleaseAll()
		chip.Close()
		return err
	}

	m.node, m.chip, m.lines, m.torch = node, chip, lines, torch
	m.loaded = true
	m.logger.Info("torch loaded", "name", torch.Name(), "node", node.Path, "chip", chip.Name(),
		"low", lines.Low(), "high", lines.High())
	return nil
}

// Unload deregisters the torch, releases both lines and closes the chip.
// It never fails and may be called on a module that never loaded.
func (m *Module) Unload() {
	if m.torch != nil {
		m.torch.Deregister()
	}
	if m.lines != nil {
		m.lines.ReleaseAll()
	}
	if m.chip != nil {
		if err := m.chip.Close(); err != nil {
			m.logger.Warn("close gpio chip", "chip", m.chip.Name(), "error", err)
		}
		m.chip = nil
	}
	if m.loaded {
		m.logger.Info("torch unloaded")
	}
	m.torch = nil
	m.loaded = false
}

// Loaded reports whether the torch is registered.
func (m *Module) Loaded() bool { return m.loaded }

// Torch returns the registered torch, or nil.
func (m *Module) Torch() *led.Torch { return m.torch }

// Lines returns the line manager of the last successful load, or nil.
func (m *Module) Lines() *gpio.Manager { return m.lines }

// Node returns the hardware description node of the last successful load.
func (m *Module) Node() *hwdesc.Node { return m.node }

// ChipName returns the name of the open chip, or "" when unloaded.
func (m *Module) ChipName() string {
	if m.chip == nil {
		return ""
	}
	return m.chip.Name()
}

// IsFatal reports whether a Load error should stop the caller. A missing
// hardware description only means the module does not activate.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, hwdesc.ErrNotFound)
}
