package debugger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/regvm/regvm/debugger"
	"github.com/regvm/regvm/encoder"
	"github.com/regvm/regvm/isa"
	"github.com/regvm/regvm/parser"
	"github.com/regvm/regvm/vm"
)

func newDebugger(t *testing.T, source string) *debugger.Debugger {
	t.Helper()

	program, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	image, err := encoder.Encode(program.Ops)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	m, err := vm.NewMachine(image)
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	m.OutputWriter = &bytes.Buffer{}
	m.TickLimit = 100000

	return debugger.NewDebugger(m, 100, 16)
}

func TestResolveAddress(t *testing.T) {
	d := newDebugger(t, "halt")

	tests := []struct {
		input string
		want  uint8
	}{
		{"0", 0},
		{"42", 42},
		{"255", 255},
		{"0x00", 0},
		{"0xFF", 255},
		{"0x2a", 42},
	}
	for _, tt := range tests {
		got, err := d.ResolveAddress(tt.input)
		if err != nil {
			t.Errorf("%q: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %d, want %d", tt.input, got, tt.want)
		}
	}

	for _, bad := range []string{"", "wible", "256", "0x100", "-1"} {
		if _, err := d.ResolveAddress(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestRunToHalt(t *testing.T) {
	d := newDebugger(t, "mov 42 to c halt")

	if err := d.ExecuteCommand("run"); err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if !d.Running {
		t.Fatal("run should set Running")
	}

	reason := d.RunToBreak()
	if !strings.Contains(reason, "exit code 42") {
		t.Errorf("stop reason %q", reason)
	}
	if d.Running {
		t.Error("Running should be cleared after termination")
	}
}

func TestBreakpointStopsExecution(t *testing.T) {
	// Offsets: mov(3) add(3) add(6) halt(9)
	d := newDebugger(t, "mov 1 to x add 1 to x add 1 to x halt")

	if err := d.ExecuteCommand("break 6"); err != nil {
		t.Fatalf("break command failed: %v", err)
	}
	if err := d.ExecuteCommand("run"); err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	reason := d.RunToBreak()
	if !strings.Contains(reason, "Breakpoint 1 at 0x06") {
		t.Errorf("stop reason %q", reason)
	}
	if d.Machine.PC != 6 {
		t.Errorf("pc = %d, want 6", d.Machine.PC)
	}
	// The op at the breakpoint has not executed yet
	if d.Machine.Registers[isa.RegX] != 2 {
		t.Errorf("x = %d, want 2", d.Machine.Registers[isa.RegX])
	}

	// Continue executes through the breakpoint to the halt
	if err := d.ExecuteCommand("continue"); err != nil {
		t.Fatalf("continue command failed: %v", err)
	}
	reason = d.RunToBreak()
	if !strings.Contains(reason, "exit code") {
		t.Errorf("stop reason %q", reason)
	}
	if d.Machine.Registers[isa.RegX] != 3 {
		t.Errorf("x = %d, want 3", d.Machine.Registers[isa.RegX])
	}
}

func TestStepCommand(t *testing.T) {
	d := newDebugger(t, "mov 1 to x add 1 to x halt")

	if err := d.ExecuteCommand("step"); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if d.Machine.PC != 3 {
		t.Errorf("pc = %d, want 3", d.Machine.PC)
	}
	if d.Machine.Registers[isa.RegX] != 1 {
		t.Errorf("x = %d, want 1", d.Machine.Registers[isa.RegX])
	}
	d.GetOutput()

	if err := d.ExecuteCommand("step"); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if d.Machine.Registers[isa.RegX] != 2 {
		t.Errorf("x = %d, want 2", d.Machine.Registers[isa.RegX])
	}
}

func TestEmptyCommandRepeatsLast(t *testing.T) {
	d := newDebugger(t, "mov 1 to x add 1 to x add 1 to x halt")

	if err := d.ExecuteCommand("step"); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if err := d.ExecuteCommand(""); err != nil {
		t.Fatalf("empty command failed: %v", err)
	}
	if d.Machine.PC != 6 {
		t.Errorf("pc = %d, want 6 after repeated step", d.Machine.PC)
	}
}

func TestRegistersCommand(t *testing.T) {
	d := newDebugger(t, "mov 65 to a halt")
	if err := d.ExecuteCommand("step"); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	d.GetOutput()

	if err := d.ExecuteCommand("registers"); err != nil {
		t.Fatalf("registers failed: %v", err)
	}
	out := d.GetOutput()
	if !strings.Contains(out, "a = 0x41 ( 65)") {
		t.Errorf("register dump missing a:\n%s", out)
	}
	if !strings.Contains(out, "pc = 0x03") {
		t.Errorf("register dump missing pc:\n%s", out)
	}
}

func TestMemoryCommand(t *testing.T) {
	d := newDebugger(t, "mov 65 to a halt")

	if err := d.ExecuteCommand("memory 0 1"); err != nil {
		t.Fatalf("memory failed: %v", err)
	}
	out := d.GetOutput()
	if !strings.Contains(out, "0x00: 0E 04 41 FF") {
		t.Errorf("memory dump:\n%s", out)
	}
}

func TestDisassembleCommand(t *testing.T) {
	d := newDebugger(t, "mov 65 to a print a halt")

	if err := d.ExecuteCommand("dis 0 3"); err != nil {
		t.Fatalf("dis failed: %v", err)
	}
	out := d.GetOutput()
	if !strings.Contains(out, "MOVRN a, 65") || !strings.Contains(out, "PRINT a") || !strings.Contains(out, "HALT") {
		t.Errorf("disassembly:\n%s", out)
	}
	// The current instruction is marked
	if !strings.Contains(out, "=>") {
		t.Errorf("missing current-instruction marker:\n%s", out)
	}
}

func TestBreakpointManagement(t *testing.T) {
	d := newDebugger(t, "halt")

	if err := d.ExecuteCommand("break 0x10"); err != nil {
		t.Fatalf("break failed: %v", err)
	}
	if err := d.ExecuteCommand("break 32"); err != nil {
		t.Fatalf("break failed: %v", err)
	}
	d.GetOutput()

	if err := d.ExecuteCommand("breakpoints"); err != nil {
		t.Fatalf("breakpoints failed: %v", err)
	}
	out := d.GetOutput()
	if !strings.Contains(out, "1: 0x10") || !strings.Contains(out, "2: 0x20") {
		t.Errorf("breakpoint list:\n%s", out)
	}

	if err := d.ExecuteCommand("delete 1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	d.GetOutput()

	list := d.Breakpoints.List()
	if len(list) != 1 || list[0].ID != 2 {
		t.Errorf("breakpoints after delete: %+v", list)
	}

	if err := d.ExecuteCommand("delete"); err != nil {
		t.Fatalf("delete all failed: %v", err)
	}
	if len(d.Breakpoints.List()) != 0 {
		t.Error("expected no breakpoints after delete all")
	}
}

func TestWatchpointRegisterStopsExecution(t *testing.T) {
	// x changes at offset 6; a watchpoint on x must stop there, after
	// the writing instruction has executed.
	d := newDebugger(t, "mov 1 to a add 1 to a mov 5 to x halt")

	if err := d.ExecuteCommand("watch x"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if err := d.ExecuteCommand("run"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	d.GetOutput()

	reason := d.RunToBreak()
	if !strings.Contains(reason, "Watchpoint 1 (x): 0x00 -> 0x05") {
		t.Errorf("stop reason %q", reason)
	}
	if d.Machine.PC != 9 {
		t.Errorf("pc = %d, want 9", d.Machine.PC)
	}

	// Continuing runs to the halt without re-triggering.
	if err := d.ExecuteCommand("continue"); err != nil {
		t.Fatalf("continue failed: %v", err)
	}
	if reason = d.RunToBreak(); !strings.Contains(reason, "exit code") {
		t.Errorf("stop reason %q", reason)
	}
}

func TestWatchpointMemoryStopsExecution(t *testing.T) {
	d := newDebugger(t, "mov 200 to y mov 7 to $ y halt")

	if err := d.ExecuteCommand("watch 200"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if err := d.ExecuteCommand("run"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	d.GetOutput()

	reason := d.RunToBreak()
	if !strings.Contains(reason, "Watchpoint 1 ($0xC8): 0x00 -> 0x07") {
		t.Errorf("stop reason %q", reason)
	}
	if d.Machine.Memory[200] != 7 {
		t.Errorf("memory[200] = %d, want 7", d.Machine.Memory[200])
	}
}

func TestWatchpointManagement(t *testing.T) {
	d := newDebugger(t, "halt")

	if err := d.ExecuteCommand("watch a"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if err := d.ExecuteCommand("watch 0x10"); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	d.GetOutput()

	if err := d.ExecuteCommand("watchpoints"); err != nil {
		t.Fatalf("watchpoints failed: %v", err)
	}
	out := d.GetOutput()
	if !strings.Contains(out, "1: a") || !strings.Contains(out, "2: $0x10") {
		t.Errorf("watchpoint list:\n%s", out)
	}

	if err := d.ExecuteCommand("unwatch 1"); err != nil {
		t.Fatalf("unwatch failed: %v", err)
	}
	if d.Watchpoints.Count() != 1 {
		t.Errorf("watchpoints after unwatch: %d", d.Watchpoints.Count())
	}

	if err := d.ExecuteCommand("unwatch"); err != nil {
		t.Fatalf("unwatch all failed: %v", err)
	}
	if d.Watchpoints.Count() != 0 {
		t.Error("expected no watchpoints after unwatch all")
	}

	// Unknown targets are rejected
	if err := d.ExecuteCommand("watch wible"); err == nil {
		t.Error("expected an error for an unknown watch target")
	}
}

func TestPrintModeCommand(t *testing.T) {
	d := newDebugger(t, "mov 65 to a halt")
	if err := d.ExecuteCommand("step"); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	d.GetOutput()

	// Default shows both forms
	if err := d.ExecuteCommand("print-mode"); err != nil {
		t.Fatalf("print-mode failed: %v", err)
	}
	if out := d.GetOutput(); !strings.Contains(out, "Number format: both") {
		t.Errorf("print-mode output:\n%s", out)
	}

	if err := d.ExecuteCommand("print-mode dec"); err != nil {
		t.Fatalf("print-mode dec failed: %v", err)
	}
	d.GetOutput()
	if err := d.ExecuteCommand("registers"); err != nil {
		t.Fatalf("registers failed: %v", err)
	}
	out := d.GetOutput()
	if !strings.Contains(out, "a =  65") || strings.Contains(out, "0x41") {
		t.Errorf("decimal register dump:\n%s", out)
	}

	if err := d.ExecuteCommand("print-mode hex"); err != nil {
		t.Fatalf("print-mode hex failed: %v", err)
	}
	d.GetOutput()
	if err := d.ExecuteCommand("registers"); err != nil {
		t.Fatalf("registers failed: %v", err)
	}
	out = d.GetOutput()
	if !strings.Contains(out, "a = 0x41") || strings.Contains(out, "( 65)") {
		t.Errorf("hex register dump:\n%s", out)
	}

	// Memory dump switches too
	if err := d.ExecuteCommand("print-mode dec"); err != nil {
		t.Fatalf("print-mode dec failed: %v", err)
	}
	d.GetOutput()
	if err := d.ExecuteCommand("memory 0 1"); err != nil {
		t.Fatalf("memory failed: %v", err)
	}
	out = d.GetOutput()
	if !strings.Contains(out, "0x00:  14   4  65 255") {
		t.Errorf("decimal memory dump:\n%s", out)
	}

	if err := d.ExecuteCommand("print-mode wible"); err == nil {
		t.Error("expected an error for an unknown number format")
	}
}

func TestUnknownCommand(t *testing.T) {
	d := newDebugger(t, "halt")
	if err := d.ExecuteCommand("wible"); err == nil {
		t.Error("expected an error for an unknown command")
	}
}

func TestHistory(t *testing.T) {
	h := debugger.NewCommandHistory(3)

	h.Add("one")
	h.Add("two")
	h.Add("two") // duplicate, skipped
	h.Add("three")

	if got := h.Previous(); got != "three" {
		t.Errorf("Previous = %q, want three", got)
	}
	if got := h.Previous(); got != "two" {
		t.Errorf("Previous = %q, want two", got)
	}
	if got := h.Next(); got != "three" {
		t.Errorf("Next = %q, want three", got)
	}

	// Exceed the size limit: oldest entries fall off
	h.Add("four")
	h.Add("five")
	for i := 0; i < 10; i++ {
		h.Previous()
	}
	if got := h.Previous(); got != "" {
		t.Errorf("Previous past the start = %q, want empty", got)
	}
}
