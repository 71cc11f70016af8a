package vm

import (
	"fmt"
	"io"

	"github.com/regvm/regvm/isa"
)

// ExecutionTrace logs every executed instruction to a writer: tick number,
// program counter, and the disassembled instruction as it sits in memory
// at execution time (self-modified code traces as what actually ran).
type ExecutionTrace struct {
	Writer io.Writer
}

// NewExecutionTrace creates a trace that writes to w.
func NewExecutionTrace(w io.Writer) *ExecutionTrace {
	return &ExecutionTrace{Writer: w}
}

func (t *ExecutionTrace) record(tick uint64, pc int, memory []byte) {
	line, _ := isa.DisassembleAt(memory, pc)
	fmt.Fprintf(t.Writer, "%6d  0x%02X: %s\n", tick, pc, line)
}
