//go:build !linux

package gpio

import "errors"

// RealChip is not available on non-Linux platforms.
type RealChip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*RealChip, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Name returns an empty name on non-Linux platforms.
func (c *RealChip) Name() string { return "" }

// Lines reports no lines on non-Linux platforms.
func (c *RealChip) Lines() int { return 0 }

// Claim is not implemented on non-Linux platforms.
func (c *RealChip) Claim(offset int, consumer string) (Output, error) {
	return nil, ErrResourceUnavailable
}

// Close is not implemented on non-Linux platforms.
func (c *RealChip) Close() error {
	return nil
}
