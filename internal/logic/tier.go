package logic

import (
	"errors"
	"fmt"
)

// ErrBadTable is returned by NewTable for tables that do not cover the whole
// brightness range in ascending order.
var ErrBadTable = errors.New("invalid tier table")

// Table is an ordered list of steps. The first step starts at 0 and each
// following step starts strictly above the previous one, so every brightness
// maps to exactly one step.
type Table []Step

// DefaultTable is the torch mapping: 0 is off, 1..49 drives the low line,
// 50 and above drives the high line.
var DefaultTable = Table{
	{Min: 0, Tier: TierOff, Pattern: Pattern{Low: 0, High: 0}},
	{Min: 1, Tier: TierLow, Pattern: Pattern{Low: 1, High: 0}},
	{Min: 50, Tier: TierHigh, Pattern: Pattern{Low: 0, High: 1}},
}

// NewTable validates steps and returns them as a Table.
func NewTable(steps ...Step) (Table, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrBadTable)
	}
	if steps[0].Min != 0 {
		return nil, fmt.Errorf("%w: first step starts at %d, want 0", ErrBadTable, steps[0].Min)
	}
	for i := 1; i < len(steps); i++ {
		if steps[i].Min <= steps[i-1].Min {
			return nil, fmt.Errorf("%w: step %d starts at %d, not above %d",
				ErrBadTable, i, steps[i].Min, steps[i-1].Min)
		}
	}
	for i, s := range steps {
		if !validLevel(s.Pattern.Low) || !validLevel(s.Pattern.High) {
			return nil, fmt.Errorf("%w: step %d has levels (%d,%d)", ErrBadTable, i, s.Pattern.Low, s.Pattern.High)
		}
	}
	t := make(Table, len(steps))
	copy(t, steps)
	return t, nil
}

// Lookup returns the step for v: the last step whose Min is <= v.
// The result depends only on v; nothing is remembered between calls.
// When no step covers v (an empty table, or one built without NewTable
// that starts above v) the lines are driven off.
func (t Table) Lookup(v Brightness) Step {
	s := Step{Tier: TierOff}
	for _, step := range t {
		if v < step.Min {
			break
		}
		s = step
	}
	return s
}

// Resolve maps v through the DefaultTable.
func Resolve(v Brightness) Step {
	return DefaultTable.Lookup(v)
}

func validLevel(l int) bool {
	return l == 0 || l == 1
}
