package gpio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sweeney/flashlight/internal/hwdesc"
)

// Consumer labels reported to the kernel for the two lines.
const (
	DefaultConsumerLow  = "flashlight_gpio_a"
	DefaultConsumerHigh = "flashlight_gpio_b"
)

// Manager owns the torch's two control lines: low (A) and high (B).
// It is not safe for concurrent use; the lifecycle driver serializes calls.
type Manager struct {
	chip   Chip
	low    *Line
	high   *Line
	logger *slog.Logger
}

// NewManager creates a Manager for lines on chip. A nil logger discards output.
func NewManager(chip Chip, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		chip:   chip,
		low:    NewLine("low"),
		high:   NewLine("high"),
		logger: logger,
	}
}

// Low returns line A. The Manager keeps ownership.
func (m *Manager) Low() *Line { return m.low }

// High returns line B. The Manager keeps ownership.
func (m *Manager) High() *Line { return m.high }

// Discover assigns the first two identifiers listed under property on the
// first node compatible with compatible. Identifiers missing from the
// property leave the corresponding line unassigned, which Acquire rejects.
func (m *Manager) Discover(src hwdesc.Source, compatible, property string) (*hwdesc.Node, error) {
	node, err := src.FindCompatible(compatible)
	if err != nil {
		return nil, err
	}
	if err := m.Bind(node, property); err != nil {
		return nil, err
	}
	return node, nil
}

// Bind assigns the first two identifiers listed under property on an
// already located node.
func (m *Manager) Bind(node *hwdesc.Node, property string) error {
	ids := node.Lines(property)
	if err := m.Assign(at(ids, 0), at(ids, 1)); err != nil {
		return err
	}
	m.logger.Info("discovered torch lines", "node", node.Path, "property", property, "low", m.low, "high", m.high)
	return nil
}

// Assign sets both line identifiers. A negative id leaves that line unassigned.
func (m *Manager) Assign(low, high int) error {
	if err := m.low.Assign(low); err != nil {
		return err
	}
	return m.high.Assign(high)
}

// Validate reports whether l has an identifier addressable on the chip.
func (m *Manager) Validate(l *Line) bool {
	id, ok := l.ID()
	return ok && id >= 0 && id < m.chip.Lines()
}

// Acquire validates both lines, then claims and configures low before high.
// If either line fails validation nothing is claimed. If anything fails after
// low was claimed, low is released before the error is returned.
func (m *Manager) Acquire(consumerLow, consumerHigh string) error {
	for _, l := range []*Line{m.low, m.high} {
		if !m.Validate(l) {
			m.logger.Error("invalid gpio", "line", l, "chip", m.chip.Name(), "lines", m.chip.Lines())
			return fmt.Errorf("%w: %s line %v on %s", ErrInvalidConfiguration, l.Name(), l, m.chip.Name())
		}
	}

	if err := m.claimConfigured(m.low, consumerLow); err != nil {
		return err
	}
	if err := m.claimConfigured(m.high, consumerHigh); err != nil {
		m.Release(m.low)
		return err
	}
	return nil
}

func (m *Manager) claimConfigured(l *Line, consumer string) error {
	if err := m.Claim(l, consumer); err != nil {
		m.logger.Error("failed to request gpio", "line", l, "error", err)
		return err
	}
	if err := m.Configure(l); err != nil {
		m.logger.Error("failed to configure gpio", "line", l, "error", err)
		m.Release(l)
		return err
	}
	return nil
}

// Claim takes exclusive ownership of l, which must be assigned and valid.
func (m *Manager) Claim(l *Line, consumer string) error {
	if l.phase == Claimed {
		return fmt.Errorf("claim %s line %d: %w", l.name, l.id, ErrResourceBusy)
	}
	if !m.Validate(l) {
		return fmt.Errorf("claim %v: %w", l, ErrInvalidConfiguration)
	}
	out, err := m.chip.Claim(l.id, consumer)
	if err != nil {
		if !errors.Is(err, ErrResourceBusy) && !errors.Is(err, ErrResourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
		}
		return fmt.Errorf("claim %s line %d: %w", l.name, l.id, err)
	}
	l.out = out
	l.phase = Claimed
	l.level = 0
	return nil
}

// Configure forces a claimed line into output mode at level 0.
func (m *Manager) Configure(l *Line) error {
	if l.phase != Claimed {
		return fmt.Errorf("configure %s line: %w", l.name, ErrNotClaimed)
	}
	if err := l.out.Configure(0); err != nil {
		return fmt.Errorf("configure %s line %d as output: %w", l.name, l.id, err)
	}
	l.level = 0
	return nil
}

// Release gives up ownership of l. Lines that are not claimed are left alone.
// Release failures are logged; the line is considered released regardless.
func (m *Manager) Release(l *Line) {
	if l.phase != Claimed {
		return
	}
	if err := l.out.Release(); err != nil {
		m.logger.Warn("release gpio", "line", l, "error", err)
	}
	l.out = nil
	l.phase = Assigned
	l.level = 0
}

// ReleaseAll releases low then high.
func (m *Manager) ReleaseAll() {
	m.Release(m.low)
	m.Release(m.high)
}

func at(ids []int, i int) int {
	if i < len(ids) {
		return ids[i]
	}
	return -1
}
