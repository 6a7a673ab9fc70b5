// Package gpio owns the torch's output lines.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when a line identifier does not
	// denote an addressable line on the chip.
	ErrInvalidConfiguration = errors.New("invalid gpio configuration")

	// ErrResourceBusy is returned when another consumer holds the line.
	ErrResourceBusy = errors.New("gpio line busy")

	// ErrResourceUnavailable is returned when a claim fails for any reason
	// other than contention.
	ErrResourceUnavailable = errors.New("gpio line unavailable")

	// ErrNotClaimed is returned when driving a line that is not claimed.
	ErrNotClaimed = errors.New("gpio line not claimed")
)

// Chip provides the claim primitives of a GPIO controller.
type Chip interface {
	// Name identifies the chip, e.g. "gpiochip0".
	Name() string

	// Lines returns the number of lines on the chip.
	Lines() int

	// Claim requests exclusive ownership of the line at offset, leaving its
	// direction and value untouched. Errors wrap ErrResourceBusy or
	// ErrResourceUnavailable.
	Claim(offset int, consumer string) (Output, error)

	// Close releases the chip handle. Claimed outputs stay valid until released.
	Close() error
}

// Output is a claimed line.
type Output interface {
	// Configure switches the line to output mode driving level.
	Configure(level int) error

	// SetValue drives the line to level (0 or 1).
	SetValue(level int) error

	// Release gives up ownership of the line.
	Release() error
}

// Phase is the lifecycle phase of a Line.
type Phase int

const (
	// Unassigned: no identifier has been discovered.
	Unassigned Phase = iota
	// Assigned: an identifier is known but the line is not owned.
	Assigned
	// Claimed: the line is owned and configured as an output.
	Claimed
)

func (p Phase) String() string {
	switch p {
	case Unassigned:
		return "unassigned"
	case Assigned:
		return "assigned"
	case Claimed:
		return "claimed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Line is one control line of the torch.
type Line struct {
	name  string
	phase Phase
	id    int
	level int
	out   Output
}

// NewLine returns an unassigned line. The name is used in logs and errors.
func NewLine(name string) *Line {
	return &Line{name: name}
}

// Name returns the line's role name ("low" or "high").
func (l *Line) Name() string { return l.name }

// Phase returns the line's lifecycle phase.
func (l *Line) Phase() Phase { return l.phase }

// ID returns the line identifier and whether one has been assigned.
func (l *Line) ID() (int, bool) {
	return l.id, l.phase != Unassigned
}

// Level returns the last level driven onto the line. It is 0 unless claimed.
func (l *Line) Level() int { return l.level }

// Claimed reports whether the line is currently owned.
func (l *Line) Claimed() bool { return l.phase == Claimed }

// Assign records the identifier discovered for the line. A negative id
// leaves the line unassigned. Assigning a claimed line is not allowed.
func (l *Line) Assign(id int) error {
	if l.phase == Claimed {
		return fmt.Errorf("assign %s line: already claimed as %d", l.name, l.id)
	}
	if id < 0 {
		l.Reset()
		return nil
	}
	l.id = id
	l.phase = Assigned
	return nil
}

// Reset forgets the identifier of an unclaimed line.
func (l *Line) Reset() {
	if l.phase == Claimed {
		return
	}
	l.phase = Unassigned
	l.id = 0
	l.level = 0
}

// Set drives the line to level. The line must be claimed.
func (l *Line) Set(level int) error {
	if l.phase != Claimed {
		return fmt.Errorf("set %s line: %w", l.name, ErrNotClaimed)
	}
	if level != 0 {
		level = 1
	}
	if err := l.out.SetValue(level); err != nil {
		return fmt.Errorf("set %s line %d: %w", l.name, l.id, err)
	}
	l.level = level
	return nil
}

func (l *Line) String() string {
	if l.phase == Unassigned {
		return l.name + "(unassigned)"
	}
	return fmt.Sprintf("%s(%d %s)", l.name, l.id, l.phase)
}
