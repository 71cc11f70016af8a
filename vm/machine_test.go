package vm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/regvm/regvm/isa"
	"github.com/regvm/regvm/vm"
)

func newMachine(t *testing.T, image []byte) *vm.Machine {
	t.Helper()
	m, err := vm.NewMachine(image)
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	m.OutputWriter = &bytes.Buffer{}
	return m
}

func TestNewMachine_LoadsImageAtZero(t *testing.T) {
	image := []byte{0x0E, 0x04, 0x41, 0xFF}
	m := newMachine(t, image)

	for i, b := range image {
		if m.Memory[i] != b {
			t.Errorf("memory[%d] = 0x%02X, want 0x%02X", i, m.Memory[i], b)
		}
	}
	// Remainder is zero-filled
	for i := len(image); i < isa.MemorySize; i++ {
		if m.Memory[i] != 0 {
			t.Fatalf("memory[%d] = 0x%02X, want 0", i, m.Memory[i])
		}
	}

	if m.State != vm.StateNull {
		t.Errorf("state %v, want null", m.State)
	}
}

func TestNewMachine_RejectsOversizedImage(t *testing.T) {
	_, err := vm.NewMachine(make([]byte, isa.MemorySize+1))
	if !errors.Is(err, vm.ErrImageTooLarge) {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}

	// Exactly memory-sized is fine
	if _, err := vm.NewMachine(make([]byte, isa.MemorySize)); err != nil {
		t.Errorf("full-size image rejected: %v", err)
	}
}

// TestReset_RestoresImage verifies that Reset undoes self-modification of
// the program image.
func TestReset_RestoresImage(t *testing.T) {
	// mov 99 to $ 0 overwrites the first code byte, then halt
	image := []byte{0xE1, 0x00, 0x63, 0xFF}
	m := newMachine(t, image)

	if err := m.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if m.Memory[0] != 0x63 {
		t.Fatalf("self-modification did not happen: memory[0]=0x%02X", m.Memory[0])
	}

	m.Reset()
	if m.Memory[0] != 0xE1 {
		t.Errorf("memory[0] = 0x%02X after reset, want 0xE1", m.Memory[0])
	}
	if m.State != vm.StateNull || m.PC != 0 || m.Ticks != 0 {
		t.Errorf("state not reset: %v pc=%d ticks=%d", m.State, m.PC, m.Ticks)
	}
	if m.Registers != [isa.NumRegisters]uint8{} {
		t.Errorf("registers not cleared: %v", m.Registers)
	}
}

func TestTerminated(t *testing.T) {
	m := newMachine(t, []byte{0xFF})

	if m.Terminated() {
		t.Error("null machine should not be terminated")
	}

	m.Start()
	if m.Terminated() {
		t.Error("running machine should not be terminated")
	}

	if err := m.Step(); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if !m.Terminated() {
		t.Error("halted machine should be terminated")
	}
}

func TestStep_NotRunning(t *testing.T) {
	m := newMachine(t, []byte{0xFF})
	if err := m.Step(); err == nil {
		t.Error("expected error stepping a machine that has not started")
	}
}
