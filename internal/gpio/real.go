//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// RealChip claims lines on a Linux GPIO character device.
type RealChip struct {
	chip *gpiocdev.Chip
}

// OpenChip opens the named chip, e.g. "gpiochip0".
func OpenChip(name string) (*RealChip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &RealChip{chip: chip}, nil
}

// Name returns the chip's device name.
func (c *RealChip) Name() string { return c.chip.Name }

// Lines returns the number of lines on the chip.
func (c *RealChip) Lines() int { return c.chip.Lines() }

// Claim requests the line as-is, leaving direction to Configure.
func (c *RealChip) Claim(offset int, consumer string) (Output, error) {
	l, err := c.chip.RequestLine(offset, gpiocdev.WithConsumer(consumer))
	if err != nil {
		if errors.Is(err, unix.EBUSY) {
			return nil, fmt.Errorf("request line %d: %w: %w", offset, ErrResourceBusy, err)
		}
		return nil, fmt.Errorf("request line %d: %w: %w", offset, ErrResourceUnavailable, err)
	}
	return &realOutput{line: l}, nil
}

// Close releases the chip handle.
func (c *RealChip) Close() error {
	return c.chip.Close()
}

type realOutput struct {
	line *gpiocdev.Line
}

func (o *realOutput) Configure(level int) error {
	return o.line.Reconfigure(gpiocdev.AsOutput(level))
}

func (o *realOutput) SetValue(level int) error {
	return o.line.SetValue(level)
}

// Release drives the line low before closing so the torch is left off.
func (o *realOutput) Release() error {
	var errs []error
	if err := o.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drive low: %w", err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	return errors.Join(errs...)
}
