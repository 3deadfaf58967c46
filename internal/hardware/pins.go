package hardware

// Level is the electrical level of a digital pin.
type Level bool

// Electrical levels.
const (
	Low  Level = false
	High Level = true
)

// String returns "high" or "low" for logging.
func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Mode is the direction/pull configuration of a pin.
type Mode int

// Pin modes.
const (
	ModeInput Mode = iota
	ModeInputPullUp
	ModeOutput
)

// PinDriver is the hardware access contract consumed by the core.
//
// Implementations must be safe for concurrent use: the input poller reads
// pins while the device registry writes outputs.
type PinDriver interface {
	// SetDirection configures a pin's mode. Called once per pin at boot,
	// before any read or write.
	SetDirection(pin int, mode Mode) error

	// ReadDigital samples the current level of an input pin.
	ReadDigital(pin int) (Level, error)

	// WriteDigital drives an output pin to the given level.
	WriteDigital(pin int, level Level) error
}
