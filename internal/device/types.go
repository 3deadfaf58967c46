package device

import (
	"slices"
	"time"
)

// Device is a single binary relay channel.
type Device struct {
	// Channel is the stable identity of the device. API routes, allowlists,
	// and persistence all key on it; it never changes for the life of the
	// device.
	Channel int `json:"channel"`

	// Name is the internal identifier, e.g. "Luz_Cozinha".
	Name string `json:"name"`

	// DisplayName is what voice assistants and UIs show, e.g. "Kitchen Light".
	DisplayName string `json:"display_name"`

	// VoiceExposed controls whether the voice bridge advertises the device.
	VoiceExposed bool `json:"voice_exposed"`

	// InputPins are momentary button inputs that flip the device on a
	// rising edge. May be empty for API-only devices.
	InputPins []int `json:"input_pins"`

	// OutputPins drive the relay(s). All outputs of one device always carry
	// the same logical state.
	OutputPins []int `json:"output_pins"`

	// State is the logical on/off state. Persisted so devices come back up
	// as they were.
	State bool `json:"state"`
}

func (d *Device) clone() Device {
	cp := *d
	cp.InputPins = slices.Clone(d.InputPins)
	cp.OutputPins = slices.Clone(d.OutputPins)
	return cp
}

// Command expresses a requested state transition: either an explicit target
// or a flip of whatever the current state is.
type Command struct {
	flip   bool
	target bool
}

// Explicit returns a command that sets the state to on.
func Explicit(on bool) Command {
	return Command{target: on}
}

// Flip returns a command that inverts the current state.
func Flip() Command {
	return Command{flip: true}
}

// apply resolves the command against the current state.
func (c Command) apply(current bool) bool {
	if c.flip {
		return !current
	}
	return c.target
}

// StateChange describes one applied transition, delivered to listeners.
type StateChange struct {
	Channel   int       `json:"channel"`
	Name      string    `json:"name"`
	State     bool      `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives state changes. Callbacks run outside the registry lock
// but on the mutating goroutine, so they must not block for long.
type Listener func(StateChange)
