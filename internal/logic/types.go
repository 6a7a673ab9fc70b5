// Package logic contains the pure brightness-to-output mapping for the torch.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time).
package logic

// Brightness is a brightness command as received from the LED registry.
// The full uint8 range is valid input.
type Brightness uint8

// MaxBrightness is the largest brightness the torch reports.
const MaxBrightness Brightness = 255

// Tier names one of the output levels the two-line hardware can produce.
type Tier string

const (
	TierOff  Tier = "OFF"
	TierLow  Tier = "LOW"
	TierHigh Tier = "HIGH"
)

// Pattern is the pair of logical levels driven onto the two control lines.
// Low is line A ("low" in the hardware description), High is line B.
type Pattern struct {
	Low  int
	High int
}

// Step is one row of a tier table: every brightness >= Min (and below the
// next row's Min) selects Tier and drives Pattern.
type Step struct {
	Min     Brightness
	Tier    Tier
	Pattern Pattern
}
