// Package hardware defines the digital pin I/O boundary used by the device
// registry and the input poller.
//
// The core never talks to GPIO registers directly. It drives a PinDriver,
// which a deployment satisfies with a platform-specific implementation.
// The in-process Memory driver backs tests and the "memory" driver mode
// used for development without real hardware.
package hardware
