package driver

import (
	"errors"
	"syscall"

	"github.com/sweeney/flashlight/internal/gpio"
	"github.com/sweeney/flashlight/internal/hwdesc"
	"github.com/sweeney/flashlight/internal/led"
)

// Code converts a Load error to the negative errno a module loader reports.
func Code(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, hwdesc.ErrNotFound):
		return -int(syscall.ENODEV)
	case errors.Is(err, gpio.ErrInvalidConfiguration):
		return -int(syscall.EINVAL)
	case errors.Is(err, gpio.ErrResourceBusy):
		return -int(syscall.EBUSY)
	case errors.Is(err, gpio.ErrResourceUnavailable):
		return -int(syscall.ENXIO)
	case errors.Is(err, led.ErrRegistrationConflict):
		return -int(syscall.EEXIST)
	}
	return -int(syscall.EIO)
}
