// Package vm implements the 8-bit register machine: eight byte-wide
// registers, a 256-byte flat memory shared by code and data, and a
// fetch-decode-execute loop over the isa opcode table.
package vm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/regvm/regvm/isa"
)

// State represents the execution state of the machine
type State int

const (
	// StateNull is the pre-run state: an image is loaded but execution
	// has not started.
	StateNull State = iota
	// StateRunning means the program counter is live.
	StateRunning
	// StateHalted means a HALT executed; the exit code has been latched.
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrImageTooLarge reports an image that does not fit in memory.
var ErrImageTooLarge = errors.New("image too large")

// ErrTickLimit reports that the configured tick limit was reached.
var ErrTickLimit = errors.New("tick limit exceeded")

// Machine is the complete virtual machine. The program image is copied to
// memory offset 0 and the rest of memory is zero; code and data share the
// address space, so self-modifying programs are legal.
type Machine struct {
	Registers [isa.NumRegisters]uint8
	Memory    [isa.MemorySize]uint8

	State    State
	PC       int
	ExitCode uint8

	// Ticks counts executed instructions. TickLimit aborts runaway
	// programs when non-zero.
	Ticks     uint64
	TickLimit uint64

	// OutputWriter receives PRINT output and the termination line.
	// Defaults to os.Stdout; the TUI and tests redirect it.
	OutputWriter io.Writer

	// Trace, when non-nil, records every executed instruction.
	Trace *ExecutionTrace

	image []byte
}

// NewMachine creates a machine with the given program image loaded at
// offset 0.
func NewMachine(image []byte) (*Machine, error) {
	if len(image) > isa.MemorySize {
		return nil, fmt.Errorf("%w: %d bytes, memory is %d", ErrImageTooLarge, len(image), isa.MemorySize)
	}

	m := &Machine{
		OutputWriter: os.Stdout,
		image:        append([]byte(nil), image...),
	}
	copy(m.Memory[:], m.image)
	return m, nil
}

// Reset restores the machine to its pre-run state: the original image
// reloaded, registers and counters zeroed. Needed because programs may
// have rewritten their own code.
func (m *Machine) Reset() {
	m.Registers = [isa.NumRegisters]uint8{}
	m.Memory = [isa.MemorySize]uint8{}
	copy(m.Memory[:], m.image)
	m.State = StateNull
	m.PC = 0
	m.ExitCode = 0
	m.Ticks = 0
}

// Start transitions the machine from Null to Running with the program
// counter at 0.
func (m *Machine) Start() {
	m.State = StateRunning
	m.PC = 0
}

// Terminated reports whether execution has ended, either by HALT or by
// the program counter reaching the end of memory.
func (m *Machine) Terminated() bool {
	if m.State == StateHalted {
		return true
	}
	return m.State == StateRunning && m.PC >= isa.MemorySize
}

// reg returns the register cell for an encoded index. The assembler only
// emits indices 0..7; indices from hand-built images wrap.
func (m *Machine) reg(i uint8) *uint8 {
	return &m.Registers[i%isa.NumRegisters]
}
