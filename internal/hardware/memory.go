package hardware

import (
	"fmt"
	"sync"
)

// Memory is an in-process PinDriver.
//
// Output writes are recorded and readable back via OutputLevel; input levels
// are injected with SetInputLevel. Pins configured with ModeInputPullUp idle
// at Low until a level is injected, matching an inactive button.
//
// All methods are safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	pins map[int]*memoryPin
}

type memoryPin struct {
	mode  Mode
	level Level
}

// NewMemory creates an empty memory pin driver.
func NewMemory() *Memory {
	return &Memory{pins: make(map[int]*memoryPin)}
}

// SetDirection implements PinDriver.
func (m *Memory) SetDirection(pin int, mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pins[pin]
	if !ok {
		p = &memoryPin{}
		m.pins[pin] = p
	}
	p.mode = mode
	return nil
}

// ReadDigital implements PinDriver. Reading an unconfigured pin is an error
// so miswired pin numbers surface immediately instead of reading as Low.
func (m *Memory) ReadDigital(pin int) (Level, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pins[pin]
	if !ok {
		return Low, fmt.Errorf("reading pin %d: not configured", pin)
	}
	return p.level, nil
}

// WriteDigital implements PinDriver.
func (m *Memory) WriteDigital(pin int, level Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pins[pin]
	if !ok {
		return fmt.Errorf("writing pin %d: not configured", pin)
	}
	p.level = level
	return nil
}

// SetInputLevel injects the sampled level of an input pin.
// Used by tests and simulations to model button presses.
func (m *Memory) SetInputLevel(pin int, level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pins[pin]
	if !ok {
		p = &memoryPin{mode: ModeInput}
		m.pins[pin] = p
	}
	p.level = level
}

// OutputLevel reports the last level written to a pin.
// The second return is false if the pin was never configured.
func (m *Memory) OutputLevel(pin int) (Level, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pins[pin]
	if !ok {
		return Low, false
	}
	return p.level, true
}

// Mode reports the configured mode of a pin.
func (m *Memory) Mode(pin int) (Mode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pins[pin]
	if !ok {
		return ModeInput, false
	}
	return p.mode, true
}
