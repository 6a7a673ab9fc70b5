package logic

import (
	"errors"
	"testing"
)

func TestResolveBoundaries(t *testing.T) {
	tests := []struct {
		v    Brightness
		tier Tier
		want Pattern
	}{
		{0, TierOff, Pattern{0, 0}},
		{1, TierLow, Pattern{1, 0}},
		{25, TierLow, Pattern{1, 0}},
		{49, TierLow, Pattern{1, 0}},
		{50, TierHigh, Pattern{0, 1}},
		{75, TierHigh, Pattern{0, 1}},
		{255, TierHigh, Pattern{0, 1}},
	}

	for _, tt := range tests {
		s := Resolve(tt.v)
		if s.Tier != tt.tier {
			t.Errorf("Resolve(%d).Tier: got %s, want %s", tt.v, s.Tier, tt.tier)
		}
		if s.Pattern != tt.want {
			t.Errorf("Resolve(%d).Pattern: got %+v, want %+v", tt.v, s.Pattern, tt.want)
		}
	}
}

func TestResolveWholeRange(t *testing.T) {
	allowed := map[Pattern]bool{
		{0, 0}: true,
		{1, 0}: true,
		{0, 1}: true,
	}

	for i := 0; i <= int(MaxBrightness); i++ {
		v := Brightness(i)
		first := Resolve(v)
		if !allowed[first.Pattern] {
			t.Fatalf("Resolve(%d): unexpected pattern %+v", v, first.Pattern)
		}
		// Same input, same output, regardless of what came before.
		Resolve(Brightness(255 - i))
		if again := Resolve(v); again != first {
			t.Fatalf("Resolve(%d) not repeatable: %+v then %+v", v, first, again)
		}
	}
}

func TestNewTableValid(t *testing.T) {
	tbl, err := NewTable(
		Step{Min: 0, Tier: TierOff},
		Step{Min: 128, Tier: TierHigh, Pattern: Pattern{Low: 1, High: 1}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tbl.Lookup(127).Tier; got != TierOff {
		t.Errorf("Lookup(127): got %s, want OFF", got)
	}
	if got := tbl.Lookup(128).Tier; got != TierHigh {
		t.Errorf("Lookup(128): got %s, want HIGH", got)
	}
}

func TestNewTableRejects(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
	}{
		{"empty", nil},
		{"first not zero", []Step{{Min: 1}}},
		{"not ascending", []Step{{Min: 0}, {Min: 50}, {Min: 50}}},
		{"descending", []Step{{Min: 0}, {Min: 50}, {Min: 10}}},
		{"bad level", []Step{{Min: 0, Pattern: Pattern{Low: 2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.steps...)
			if !errors.Is(err, ErrBadTable) {
				t.Errorf("expected ErrBadTable, got %v", err)
			}
		})
	}
}

func TestDefaultTableIsValid(t *testing.T) {
	if _, err := NewTable(DefaultTable...); err != nil {
		t.Fatalf("DefaultTable rejected: %v", err)
	}
}

func TestLookupUncoveredIsOff(t *testing.T) {
	for _, tbl := range []Table{nil, {}, {{Min: 10, Tier: TierHigh, Pattern: Pattern{Low: 1, High: 1}}}} {
		for _, v := range []Brightness{0, 5, 9} {
			got := tbl.Lookup(v)
			if got.Tier != TierOff || got.Pattern != (Pattern{}) {
				t.Errorf("%v.Lookup(%d): got %+v, want OFF (0,0)", tbl, v, got)
			}
		}
	}
}
