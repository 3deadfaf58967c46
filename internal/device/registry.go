package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/relaycore/internal/hardware"
	"github.com/nerrad567/relaycore/internal/storage"
)

// Logger is the minimal logging surface the registry needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the device set, mirrors logical state to relay outputs,
// and persists every mutation.
type Registry struct {
	mu      sync.RWMutex
	devices map[int]*Device

	store  storage.Store
	pins   hardware.PinDriver
	logger Logger

	listenerMu sync.RWMutex
	listeners  []Listener

	// now is swappable for tests.
	now func() time.Time
}

// NewRegistry creates an empty registry. Call Load and then SetupPins
// before serving traffic.
func NewRegistry(store storage.Store, pins hardware.PinDriver, logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		devices: make(map[int]*Device),
		store:   store,
		pins:    pins,
		logger:  logger,
		now:     time.Now,
	}
}

// Subscribe registers a listener for state changes. Not safe to call after
// mutations begin racing with it; wire all listeners during startup.
func (r *Registry) Subscribe(fn Listener) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Load populates the registry from durable storage. An absent or corrupt
// blob yields the factory defaults, persisted immediately.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.store.Load(ctx, storage.KeyDevices)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		r.logger.Info("no stored devices, seeding defaults")
		return r.seedDefaultsLocked(ctx)
	case err != nil:
		return fmt.Errorf("loading devices: %w", err)
	}

	var devices []Device
	if err := json.Unmarshal(data, &devices); err != nil {
		r.logger.Error("stored devices corrupt, seeding defaults", "error", err)
		return r.seedDefaultsLocked(ctx)
	}

	r.devices = make(map[int]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.devices[d.Channel] = &d
	}
	r.logger.Info("devices loaded", "count", len(r.devices))
	return nil
}

func (r *Registry) seedDefaultsLocked(ctx context.Context) error {
	defaults := Defaults()
	r.devices = make(map[int]*Device, len(defaults))
	for i := range defaults {
		d := defaults[i]
		r.devices[d.Channel] = &d
	}
	return r.persistLocked(ctx)
}

// SetupPins configures pin directions and drives every output to its
// persisted logical state. Run once at startup, after Load.
func (r *Registry) SetupPins() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.devices {
		for _, pin := range d.InputPins {
			if err := r.pins.SetDirection(pin, hardware.ModeInputPullUp); err != nil {
				return fmt.Errorf("configuring input pin %d: %w", pin, err)
			}
		}
		for _, pin := range d.OutputPins {
			if err := r.pins.SetDirection(pin, hardware.ModeOutput); err != nil {
				return fmt.Errorf("configuring output pin %d: %w", pin, err)
			}
			if err := r.pins.WriteDigital(pin, outputLevel(d.State)); err != nil {
				return fmt.Errorf("restoring output pin %d: %w", pin, err)
			}
		}
	}
	r.logger.Info("hardware pins configured", "devices", len(r.devices))
	return nil
}

// Get returns a copy of the device on channel.
func (r *Registry) Get(channel int) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[channel]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return d.clone(), nil
}

// List returns copies of all devices sorted by channel.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Count reports the number of devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Apply executes a command against the device on channel: resolves the
// target state, drives the output pins, persists, and notifies listeners.
//
// An explicit command that matches the current state is a no-op: no pin
// writes, no persistence, no notification. The returned state is the
// device's state after the command.
//
// Listener notification happens even when persistence fails; consumers must
// reflect what the hardware is actually doing. The persistence error is
// still returned.
func (r *Registry) Apply(ctx context.Context, channel int, cmd Command) (bool, error) {
	r.mu.Lock()

	d, ok := r.devices[channel]
	if !ok {
		r.mu.Unlock()
		return false, ErrDeviceNotFound
	}

	next := cmd.apply(d.State)
	if next == d.State {
		r.mu.Unlock()
		return next, nil
	}

	for _, pin := range d.OutputPins {
		if err := r.pins.WriteDigital(pin, outputLevel(next)); err != nil {
			r.mu.Unlock()
			return d.State, fmt.Errorf("driving output pin %d: %w", pin, err)
		}
	}

	d.State = next
	change := StateChange{
		Channel:   d.Channel,
		Name:      d.Name,
		State:     next,
		Timestamp: r.now(),
	}
	persistErr := r.persistLocked(ctx)
	r.mu.Unlock()

	if persistErr != nil {
		r.logger.Error("state change not persisted", "channel", channel, "error", persistErr)
	}
	r.logger.Info("device state changed", "channel", channel, "name", change.Name, "state", next)
	r.notify(change)
	return next, persistErr
}

// Add registers a new device, configures its pins, and persists.
func (r *Registry) Add(ctx context.Context, d Device) error {
	if err := validate(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[d.Channel]; exists {
		return ErrChannelExists
	}

	for _, pin := range d.InputPins {
		if err := r.pins.SetDirection(pin, hardware.ModeInputPullUp); err != nil {
			return fmt.Errorf("configuring input pin %d: %w", pin, err)
		}
	}
	for _, pin := range d.OutputPins {
		if err := r.pins.SetDirection(pin, hardware.ModeOutput); err != nil {
			return fmt.Errorf("configuring output pin %d: %w", pin, err)
		}
		if err := r.pins.WriteDigital(pin, outputLevel(d.State)); err != nil {
			return fmt.Errorf("initialising output pin %d: %w", pin, err)
		}
	}

	cp := d.clone()
	r.devices[d.Channel] = &cp
	r.logger.Info("device added", "channel", d.Channel, "name", d.Name)
	return r.persistLocked(ctx)
}

// Update replaces the metadata of an existing device. Channel and live
// state are preserved; pins are reconfigured if they changed.
func (r *Registry) Update(ctx context.Context, channel int, d Device) error {
	d.Channel = channel
	if err := validate(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.devices[channel]
	if !ok {
		return ErrDeviceNotFound
	}

	d.State = cur.State
	for _, pin := range d.InputPins {
		if err := r.pins.SetDirection(pin, hardware.ModeInputPullUp); err != nil {
			return fmt.Errorf("configuring input pin %d: %w", pin, err)
		}
	}
	for _, pin := range d.OutputPins {
		if err := r.pins.SetDirection(pin, hardware.ModeOutput); err != nil {
			return fmt.Errorf("configuring output pin %d: %w", pin, err)
		}
		if err := r.pins.WriteDigital(pin, outputLevel(d.State)); err != nil {
			return fmt.Errorf("initialising output pin %d: %w", pin, err)
		}
	}

	cp := d.clone()
	r.devices[channel] = &cp
	r.logger.Info("device updated", "channel", channel, "name", d.Name)
	return r.persistLocked(ctx)
}

// Delete removes the device on channel. Its relay is switched off first so
// an orphaned output never stays energised.
func (r *Registry) Delete(ctx context.Context, channel int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[channel]
	if !ok {
		return ErrDeviceNotFound
	}

	for _, pin := range d.OutputPins {
		if err := r.pins.WriteDigital(pin, outputLevel(false)); err != nil {
			r.logger.Warn("switching off pin before delete failed", "pin", pin, "error", err)
		}
	}

	delete(r.devices, channel)
	r.logger.Info("device deleted", "channel", channel, "name", d.Name)
	return r.persistLocked(ctx)
}

func (r *Registry) notify(change StateChange) {
	r.listenerMu.RLock()
	listeners := r.listeners
	r.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
}

// persistLocked serialises the full device set and saves it. The in-memory
// and hardware state stand even when the save fails.
func (r *Registry) persistLocked(ctx context.Context) error {
	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d.clone())
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Channel < devices[j].Channel })

	data, err := json.Marshal(devices)
	if err != nil {
		return fmt.Errorf("%w: encoding devices: %v", storage.ErrPersistence, err)
	}
	if err := r.store.Save(ctx, storage.KeyDevices, data); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrPersistence, err)
	}
	return nil
}

func validate(d Device) error {
	if d.Channel < 0 {
		return fmt.Errorf("%w: negative channel", ErrInvalidDevice)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDevice)
	}
	if len(d.OutputPins) == 0 {
		return fmt.Errorf("%w: no output pins", ErrInvalidDevice)
	}
	return nil
}

// outputLevel maps logical state to the electrical level of an active-low
// relay input: ON is Low, OFF is High.
func outputLevel(on bool) hardware.Level {
	if on {
		return hardware.Low
	}
	return hardware.High
}
