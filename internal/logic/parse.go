package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadBrightness is returned for brightness commands that cannot be parsed.
var ErrBadBrightness = errors.New("bad brightness")

// ParseBrightness parses a brightness command: a decimal 0-255, "ON" (full
// brightness) or "OFF". Surrounding whitespace is ignored.
func ParseBrightness(s string) (Brightness, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "ON":
		return MaxBrightness, nil
	case "OFF":
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadBrightness, s)
	}
	if n < 0 || n > int(MaxBrightness) {
		return 0, fmt.Errorf("%w: %d out of range 0-%d", ErrBadBrightness, n, MaxBrightness)
	}
	return Brightness(n), nil
}
