// Package poller samples physical input pins and flips devices on rising
// edges, standing in for the interrupt wiring a microcontroller would use.
package poller

import (
	"context"
	"time"

	"github.com/nerrad567/relaycore/internal/device"
	"github.com/nerrad567/relaycore/internal/hardware"
)

// DefaultInterval is the sampling period. 30ms is fast enough that a button
// press never feels laggy and slow enough to debounce mechanical contacts.
const DefaultInterval = 30 * time.Millisecond

// Logger is the minimal logging surface the poller needs.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

type pinKey struct {
	channel int
	pin     int
}

// Poller owns the sampling loop. Buttons are momentary and active high
// through the pull-up wiring: idle Low, High while pressed. Only the
// Low-to-High transition triggers; holding the button does nothing further
// until it is released and pressed again.
type Poller struct {
	registry *device.Registry
	pins     hardware.PinDriver
	interval time.Duration
	logger   Logger

	last map[pinKey]hardware.Level
}

// New creates a poller over the registry's devices. interval <= 0 selects
// DefaultInterval.
func New(registry *device.Registry, pins hardware.PinDriver, interval time.Duration, logger Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Poller{
		registry: registry,
		pins:     pins,
		interval: interval,
		logger:   logger,
		last:     make(map[pinKey]hardware.Level),
	}
}

// Run samples until ctx is cancelled. Returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one sampling pass over every input pin of every device.
// Exported so tests can drive the loop deterministically.
func (p *Poller) Poll(ctx context.Context) {
	seen := make(map[pinKey]struct{})

	for _, d := range p.registry.List() {
		for _, pin := range d.InputPins {
			key := pinKey{channel: d.Channel, pin: pin}
			seen[key] = struct{}{}

			level, err := p.pins.ReadDigital(pin)
			if err != nil {
				p.logger.Warn("input pin read failed", "pin", pin, "error", err)
				continue
			}

			prev, known := p.last[key]
			p.last[key] = level

			// First sighting of a pin just records a baseline; an edge
			// needs two samples.
			if !known {
				continue
			}

			if prev == hardware.Low && level == hardware.High {
				p.logger.Debug("button press", "channel", d.Channel, "pin", pin)
				if _, err := p.registry.Apply(ctx, d.Channel, device.Flip()); err != nil {
					p.logger.Warn("button toggle failed", "channel", d.Channel, "error", err)
				}
			}
		}
	}

	// Drop edge state for pins that no longer belong to any device, so a
	// reused pin number starts from a clean baseline.
	for key := range p.last {
		if _, ok := seen[key]; !ok {
			delete(p.last, key)
		}
	}
}
