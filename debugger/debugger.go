// Package debugger provides interactive control over a machine: stepping,
// breakpoints, register and memory inspection, with a command-line
// interface and a full-screen TUI.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/regvm/regvm/isa"
	"github.com/regvm/regvm/vm"
)

// Debugger represents the debugger state and functionality
type Debugger struct {
	Machine *vm.Machine

	// Breakpoint management
	Breakpoints *BreakpointManager

	// Watchpoint management
	Watchpoints *WatchpointManager

	// Command history
	History *CommandHistory

	// Execution control
	Running bool

	// Last command (for repeat on empty input)
	LastCommand string

	// Display settings
	BytesPerLine int
	NumberFormat string // hex, dec, both

	// Output buffer
	Output strings.Builder
}

// NewDebugger creates a new debugger for a machine.
func NewDebugger(machine *vm.Machine, historySize, bytesPerLine int) *Debugger {
	if bytesPerLine <= 0 {
		bytesPerLine = 16
	}
	return &Debugger{
		Machine:      machine,
		Breakpoints:  NewBreakpointManager(),
		Watchpoints:  NewWatchpointManager(),
		History:      NewCommandHistory(historySize),
		BytesPerLine: bytesPerLine,
		NumberFormat: "both",
	}
}

// Printf writes formatted output to the debugger's output buffer
func (d *Debugger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.Output, format, args...)
}

// Println writes a line to the debugger's output buffer
func (d *Debugger) Println(args ...interface{}) {
	fmt.Fprintln(&d.Output, args...)
}

// GetOutput returns and clears the buffered output
func (d *Debugger) GetOutput() string {
	out := d.Output.String()
	d.Output.Reset()
	return out
}

// ResolveAddress parses a memory address, hex (0xNN) or decimal.
func (d *Debugger) ResolveAddress(s string) (uint8, error) {
	var value uint64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		value, err = strconv.ParseUint(s[2:], 16, 16)
	} else {
		value, err = strconv.ParseUint(s, 10, 16)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid address: %s", s)
	}
	if value >= isa.MemorySize {
		return 0, fmt.Errorf("address 0x%X is outside memory (0..0x%02X)", value, isa.MemorySize-1)
	}
	return uint8(value), nil
}

// RunToBreak executes until a breakpoint, a watchpoint, termination, or
// an error, and returns the stop reason. The instruction under a
// breakpoint the machine is currently stopped at executes before
// breakpoints are checked again, so continue makes progress.
func (d *Debugger) RunToBreak() string {
	m := d.Machine
	first := true

	for {
		if m.Terminated() {
			d.Running = false
			return d.terminationMessage()
		}
		if !first {
			if bp, ok := d.Breakpoints.Hit(uint8(m.PC)); ok {
				d.Running = false
				return fmt.Sprintf("Breakpoint %d at 0x%02X", bp.ID, m.PC)
			}
		}
		first = false

		if err := m.Step(); err != nil {
			d.Running = false
			return fmt.Sprintf("Error: %v", err)
		}

		if wp, old, hit := d.Watchpoints.Check(m); hit {
			d.Running = false
			return fmt.Sprintf("Watchpoint %d (%s): 0x%02X -> 0x%02X at 0x%02X",
				wp.ID, wp.Target, old, wp.LastValue, m.PC)
		}
	}
}

// StepOnce executes a single instruction, starting the machine first if
// execution has not begun.
func (d *Debugger) StepOnce() error {
	m := d.Machine
	if m.State == vm.StateNull {
		m.Start()
	}
	if m.Terminated() {
		return fmt.Errorf("program has terminated")
	}
	return m.Step()
}

func (d *Debugger) terminationMessage() string {
	if d.Machine.State == vm.StateHalted {
		return fmt.Sprintf("Program halted with exit code %d", d.Machine.ExitCode)
	}
	return "Program ran off the end of memory"
}

// formatByte renders a byte value in the current number format.
func (d *Debugger) formatByte(v uint8) string {
	switch d.NumberFormat {
	case "hex":
		return fmt.Sprintf("0x%02X", v)
	case "dec":
		return fmt.Sprintf("%3d", v)
	default:
		return fmt.Sprintf("0x%02X (%3d)", v, v)
	}
}

// FormatRegisters renders the register file and machine status.
func (d *Debugger) FormatRegisters() string {
	var sb strings.Builder
	m := d.Machine

	for i := 0; i < isa.NumRegisters; i++ {
		fmt.Fprintf(&sb, "%s = %s", isa.RegisterName(uint8(i)), d.formatByte(m.Registers[i]))
		if (i+1)%4 == 0 {
			sb.WriteByte('\n')
		} else {
			sb.WriteString("   ")
		}
	}
	fmt.Fprintf(&sb, "pc = 0x%02X   state %s   ticks %d\n", m.PC, m.State, m.Ticks)

	return sb.String()
}

// FormatMemory renders rows of memory starting at start: a hex dump, or
// decimal columns when the number format is dec.
func (d *Debugger) FormatMemory(start uint8, rows int) string {
	var sb strings.Builder
	m := d.Machine

	addr := int(start)
	for r := 0; r < rows && addr < isa.MemorySize; r++ {
		fmt.Fprintf(&sb, "0x%02X:", addr)
		for c := 0; c < d.BytesPerLine && addr < isa.MemorySize; c++ {
			if d.NumberFormat == "dec" {
				fmt.Fprintf(&sb, " %3d", m.Memory[addr])
			} else {
				fmt.Fprintf(&sb, " %02X", m.Memory[addr])
			}
			addr++
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// FormatDisassembly renders count instructions starting at start. The
// current instruction is marked with "=>", breakpoints with "*".
func (d *Debugger) FormatDisassembly(start uint8, count int) string {
	var sb strings.Builder
	m := d.Machine

	off := int(start)
	for i := 0; i < count && off < isa.MemorySize; i++ {
		marker := "  "
		if off == m.PC {
			marker = "=>"
		}
		bp := " "
		if _, ok := d.Breakpoints.At(uint8(off)); ok {
			bp = "*"
		}

		line, size := isa.DisassembleAt(m.Memory[:], off)
		fmt.Fprintf(&sb, "%s%s 0x%02X: %s\n", marker, bp, off, line)
		off += size
	}

	return sb.String()
}
