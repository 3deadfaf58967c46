// Package voice adapts the device registry to voice-assistant integrations
// that model everything as a dimmable lamp.
package voice

import (
	"context"

	"github.com/nerrad567/relaycore/internal/device"
)

// Device is the voice-assistant view of a relay channel. Binary state is
// presented as a brightness level because the assistant protocol has no
// plain switch type: 255 for on, 0 for off.
type Device struct {
	Channel     int    `json:"channel"`
	DisplayName string `json:"display_name"`
	Level       uint8  `json:"level"`
}

// Logger is the minimal logging surface the bridge needs.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Bridge exposes voice-enabled devices and translates brightness commands
// into binary state changes.
//
// Voice commands bypass the authorization gate: the assistant lives on the
// trusted LAN and carries no user identity to authorise against.
type Bridge struct {
	registry *device.Registry
	logger   Logger
}

// NewBridge wires a bridge over the registry.
func NewBridge(registry *device.Registry, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{registry: registry, logger: logger}
}

// Devices returns the voice-exposed devices with their current levels.
func (b *Bridge) Devices() []Device {
	var out []Device
	for _, d := range b.registry.List() {
		if !d.VoiceExposed {
			continue
		}
		out = append(out, Device{
			Channel:     d.Channel,
			DisplayName: d.DisplayName,
			Level:       stateLevel(d.State),
		})
	}
	return out
}

// HandleCommand applies a brightness command to a channel. Any level above
// zero means on; zero means off. Commands for channels that are not voice
// exposed are refused with device.ErrDeviceNotFound so the assistant cannot
// reach hidden devices.
func (b *Bridge) HandleCommand(ctx context.Context, channel int, level uint8) error {
	d, err := b.registry.Get(channel)
	if err != nil {
		return err
	}
	if !d.VoiceExposed {
		return device.ErrDeviceNotFound
	}

	on := level > 0
	b.logger.Info("voice command", "channel", channel, "name", d.Name, "on", on)
	_, err = b.registry.Apply(ctx, channel, device.Explicit(on))
	return err
}

func stateLevel(on bool) uint8 {
	if on {
		return 255
	}
	return 0
}
