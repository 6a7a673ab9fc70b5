package gpio

import (
	"errors"
	"fmt"
)

// FakeChip is a test double that simulates a GPIO controller's line table.
type FakeChip struct {
	// Label is returned by Name.
	Label string

	// NumLines is returned by Lines.
	NumLines int

	// Hogs marks lines held by another consumer; claiming them fails with
	// ErrResourceBusy.
	Hogs map[int]string

	// ClaimErrors, if set for an offset, is returned by Claim for that offset.
	ClaimErrors map[int]error

	// ConfigureError, if set, is returned by every Output.Configure.
	ConfigureError error

	// SetError, if set, is returned by every Output.SetValue.
	SetError error

	// ClaimCalls counts calls to Claim, successful or not.
	ClaimCalls int

	// Closed tracks if Close was called.
	Closed bool

	owners  map[int]string
	outputs map[int]bool
	levels  map[int]int
}

// NewFakeChip creates a FakeChip with numLines free lines.
func NewFakeChip(numLines int) *FakeChip {
	return &FakeChip{
		Label:    "fakechip0",
		NumLines: numLines,
		owners:   make(map[int]string),
		outputs:  make(map[int]bool),
		levels:   make(map[int]int),
	}
}

// Name returns the chip label.
func (f *FakeChip) Name() string { return f.Label }

// Lines returns the number of simulated lines.
func (f *FakeChip) Lines() int { return f.NumLines }

// Claim marks offset as owned by consumer.
func (f *FakeChip) Claim(offset int, consumer string) (Output, error) {
	f.ClaimCalls++
	if err := f.ClaimErrors[offset]; err != nil {
		return nil, err
	}
	if offset < 0 || offset >= f.NumLines {
		return nil, fmt.Errorf("offset %d out of range: %w", offset, ErrResourceUnavailable)
	}
	if owner, ok := f.Hogs[offset]; ok {
		return nil, fmt.Errorf("line %d held by %q: %w", offset, owner, ErrResourceBusy)
	}
	if owner, ok := f.owners[offset]; ok {
		return nil, fmt.Errorf("line %d held by %q: %w", offset, owner, ErrResourceBusy)
	}
	f.owners[offset] = consumer
	return &fakeOutput{chip: f, offset: offset}, nil
}

// Close marks the chip as closed.
func (f *FakeChip) Close() error {
	f.Closed = true
	return nil
}

// Claimed reports whether offset is currently owned, and by whom.
func (f *FakeChip) Claimed(offset int) (string, bool) {
	c, ok := f.owners[offset]
	return c, ok
}

// IsOutput reports whether offset has been configured as an output.
func (f *FakeChip) IsOutput(offset int) bool {
	return f.outputs[offset]
}

// Level returns the level last driven onto offset.
func (f *FakeChip) Level(offset int) int {
	return f.levels[offset]
}

type fakeOutput struct {
	chip     *FakeChip
	offset   int
	released bool
}

func (o *fakeOutput) Configure(level int) error {
	if o.released {
		return errors.New("fake: configure after release")
	}
	if o.chip.ConfigureError != nil {
		return o.chip.ConfigureError
	}
	o.chip.outputs[o.offset] = true
	o.chip.levels[o.offset] = level
	return nil
}

func (o *fakeOutput) SetValue(level int) error {
	if o.released {
		return errors.New("fake: set after release")
	}
	if o.chip.SetError != nil {
		return o.chip.SetError
	}
	if !o.chip.outputs[o.offset] {
		return errors.New("fake: set on line not configured as output")
	}
	o.chip.levels[o.offset] = level
	return nil
}

func (o *fakeOutput) Release() error {
	if o.released {
		return errors.New("fake: double release")
	}
	o.released = true
	delete(o.chip.owners, o.offset)
	delete(o.chip.outputs, o.offset)
	return nil
}
