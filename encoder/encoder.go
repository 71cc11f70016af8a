// Package encoder serializes typed ops into the flat byte image executed
// by the virtual machine. The operand layout comes from the isa opcode
// table, so the encoder and the machine's decoder cannot disagree.
package encoder

import (
	"errors"
	"fmt"

	"github.com/regvm/regvm/isa"
)

// ErrImageTooLarge reports a program that cannot fit in the machine's
// memory image.
var ErrImageTooLarge = errors.New("program image too large")

// Encode serializes ops in order: for each op the opcode byte, then the
// operand bytes in declared order. For a conditional jump the case
// discriminator and its two operands precede the target byte. The output
// length always equals the sum of the op sizes.
func Encode(ops []isa.Op) ([]byte, error) {
	size := 0
	for _, op := range ops {
		size += op.Size()
	}
	if size > isa.MemorySize {
		return nil, fmt.Errorf("%w: %d bytes, memory is %d", ErrImageTooLarge, size, isa.MemorySize)
	}

	out := make([]byte, 0, size)
	for _, op := range ops {
		info := op.Kind.Info()
		out = append(out, info.Opcode)
		if info.HasCase {
			out = append(out, byte(op.Cond.Kind), op.Cond.Left, op.Cond.Right)
		}
		switch info.Operands {
		case 2:
			out = append(out, op.A, op.B)
		case 1:
			out = append(out, op.A)
		}
	}
	return out, nil
}
