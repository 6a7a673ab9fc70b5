package logic

import (
	"errors"
	"testing"
)

func TestParseBrightness(t *testing.T) {
	tests := []struct {
		in   string
		want Brightness
	}{
		{"0", 0},
		{"1", 1},
		{"49", 49},
		{" 50\n", 50},
		{"255", 255},
		{"ON", 255},
		{"on", 255},
		{"OFF", 0},
	}
	for _, tt := range tests {
		got, err := ParseBrightness(tt.in)
		if err != nil {
			t.Errorf("ParseBrightness(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBrightness(%q): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseBrightnessRejects(t *testing.T) {
	for _, in := range []string{"", "-1", "256", "bright", "1.5"} {
		if _, err := ParseBrightness(in); !errors.Is(err, ErrBadBrightness) {
			t.Errorf("ParseBrightness(%q): expected ErrBadBrightness, got %v", in, err)
		}
	}
}
