package hardware

import "testing"

func TestMemory_UnconfiguredPins(t *testing.T) {
	m := NewMemory()

	if _, err := m.ReadDigital(5); err == nil {
		t.Error("ReadDigital() on unconfigured pin should error")
	}
	if err := m.WriteDigital(5, High); err == nil {
		t.Error("WriteDigital() on unconfigured pin should error")
	}
	if _, ok := m.OutputLevel(5); ok {
		t.Error("OutputLevel() on unconfigured pin should report false")
	}
	if _, ok := m.Mode(5); ok {
		t.Error("Mode() on unconfigured pin should report false")
	}
}

func TestMemory_WriteReadBack(t *testing.T) {
	m := NewMemory()

	if err := m.SetDirection(21, ModeOutput); err != nil {
		t.Fatalf("SetDirection() error = %v", err)
	}
	if err := m.WriteDigital(21, High); err != nil {
		t.Fatalf("WriteDigital() error = %v", err)
	}

	level, ok := m.OutputLevel(21)
	if !ok || level != High {
		t.Errorf("OutputLevel() = %v, %v; want High, true", level, ok)
	}

	if err := m.WriteDigital(21, Low); err != nil {
		t.Fatalf("WriteDigital() error = %v", err)
	}
	if level, _ := m.OutputLevel(21); level != Low {
		t.Errorf("OutputLevel() after rewrite = %v, want Low", level)
	}
}

func TestMemory_InputInjection(t *testing.T) {
	m := NewMemory()

	if err := m.SetDirection(25, ModeInputPullUp); err != nil {
		t.Fatalf("SetDirection() error = %v", err)
	}

	// Configured inputs idle Low until a level is injected.
	level, err := m.ReadDigital(25)
	if err != nil {
		t.Fatalf("ReadDigital() error = %v", err)
	}
	if level != Low {
		t.Errorf("idle input = %v, want Low", level)
	}

	m.SetInputLevel(25, High)
	if level, _ := m.ReadDigital(25); level != High {
		t.Errorf("injected input = %v, want High", level)
	}
}

func TestMemory_ModeTracking(t *testing.T) {
	m := NewMemory()

	if err := m.SetDirection(19, ModeOutput); err != nil {
		t.Fatalf("SetDirection() error = %v", err)
	}
	mode, ok := m.Mode(19)
	if !ok || mode != ModeOutput {
		t.Errorf("Mode() = %v, %v; want ModeOutput, true", mode, ok)
	}
}

func TestLevel_String(t *testing.T) {
	if High.String() != "high" || Low.String() != "low" {
		t.Error("Level strings are wrong")
	}
}
