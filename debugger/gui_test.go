package debugger

import (
	"bytes"
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"

	"github.com/regvm/regvm/vm"
)

// guiFixture builds GUI components with Fyne's test driver instead of a
// real display.
func guiFixture(t *testing.T, image []byte) *GUI {
	t.Helper()

	m, err := vm.NewMachine(image)
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	m.OutputWriter = &bytes.Buffer{}
	m.TickLimit = 100000

	dbg := NewDebugger(m, 100, 16)

	testApp := test.NewApp()
	t.Cleanup(testApp.Quit)

	gui := &GUI{
		Debugger:    dbg,
		App:         testApp,
		breakpoints: []string{},
	}
	gui.initializeViews()

	return gui
}

// TestGUIViews tests that all view panels are created and render content
func TestGUIViews(t *testing.T) {
	gui := guiFixture(t, []byte{0x0E, 0x04, 0x41, 0xFF}) // MOVRN a 65, HALT

	if gui.DisassemblyView == nil || gui.RegisterView == nil || gui.MemoryView == nil {
		t.Fatal("view panels not created")
	}
	if gui.BreakpointsList == nil || gui.ConsoleOutput == nil || gui.Toolbar == nil {
		t.Fatal("controls not created")
	}

	if text := gui.RegisterView.Text(); !strings.Contains(text, "a = ") {
		t.Errorf("register view has no registers:\n%s", text)
	}
	if text := gui.DisassemblyView.Text(); !strings.Contains(text, "MOVRN a, 65") {
		t.Errorf("disassembly view missing instruction:\n%s", text)
	}
	if text := gui.MemoryView.Text(); !strings.Contains(text, "0x00:") {
		t.Errorf("memory view has no dump:\n%s", text)
	}
}

// TestGUIBreakpointManagement tests breakpoint operations
func TestGUIBreakpointManagement(t *testing.T) {
	gui := guiFixture(t, []byte{0x0E, 0x04, 0x41, 0xFF})

	if len(gui.breakpoints) != 0 {
		t.Errorf("expected 0 breakpoints, got %d", len(gui.breakpoints))
	}

	gui.addBreakpoint()
	if len(gui.breakpoints) != 1 {
		t.Errorf("expected 1 breakpoint after adding, got %d", len(gui.breakpoints))
	}

	gui.clearBreakpoints()
	if len(gui.breakpoints) != 0 {
		t.Errorf("expected 0 breakpoints after clearing, got %d", len(gui.breakpoints))
	}
}

// TestGUIStepExecution tests single-step execution
func TestGUIStepExecution(t *testing.T) {
	gui := guiFixture(t, []byte{0x0E, 0x04, 0x2A, 0xFF}) // MOVRN a 42, HALT
	m := gui.Debugger.Machine

	gui.stepProgram()

	if m.PC != 3 {
		t.Errorf("pc = %d after step, want 3", m.PC)
	}
	if m.Registers[4] != 42 {
		t.Errorf("a = %d after step, want 42", m.Registers[4])
	}
}

// TestGUIConsoleWriter tests that machine output lands in the console
// buffer.
func TestGUIConsoleWriter(t *testing.T) {
	gui := guiFixture(t, []byte{0x0E, 0x04, 0x41, 0xA0, 0x04, 0xFF}) // print 'A'
	m := gui.Debugger.Machine
	m.OutputWriter = &guiWriter{gui: gui}

	if err := m.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	gui.consoleMutex.Lock()
	out := gui.consoleBuffer.String()
	gui.consoleMutex.Unlock()

	if !strings.Contains(out, "A") || !strings.Contains(out, "VM HALTED") {
		t.Errorf("console output %q", out)
	}
}
