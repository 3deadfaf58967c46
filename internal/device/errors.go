package device

import "errors"

var (
	// ErrDeviceNotFound means no device exists on the requested channel.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrChannelExists means a device already occupies the channel.
	ErrChannelExists = errors.New("channel already in use")

	// ErrInvalidDevice means the device definition fails validation.
	ErrInvalidDevice = errors.New("invalid device definition")
)
