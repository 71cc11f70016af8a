package isa

import (
	"fmt"
	"io"
	"strings"
)

// Decode decodes the instruction starting at off in image. It returns the
// decoded op, the number of bytes consumed, and whether the opcode byte was
// recognized. An unrecognized opcode consumes exactly one byte. Operand
// bytes past the end of the image read as zero, matching the machine's
// zero-filled memory.
func Decode(image []byte, off int) (Op, int, bool) {
	byteAt := func(i int) uint8 {
		if i < len(image) {
			return image[i]
		}
		return 0
	}

	kind, ok := Lookup(byteAt(off))
	if !ok {
		return Op{}, 1, false
	}

	info := kind.Info()
	op := Op{Kind: kind}
	next := off + 1

	if info.HasCase {
		op.Cond = Case{
			Kind:  CaseKind(byteAt(next)),
			Left:  byteAt(next + 1),
			Right: byteAt(next + 2),
		}
		next += 3
	}
	switch info.Operands {
	case 2:
		op.A = byteAt(next)
		op.B = byteAt(next + 1)
	case 1:
		op.A = byteAt(next)
	}
	next += info.Operands

	return op, next - off, true
}

// DisassembleAt renders the instruction at off as a listing line without
// the address prefix, and returns the number of bytes consumed. Unknown
// opcode bytes render as "??".
func DisassembleAt(image []byte, off int) (string, int) {
	op, size, ok := Decode(image, off)

	var hex strings.Builder
	for i := 0; i < size; i++ {
		if i > 0 {
			hex.WriteByte(' ')
		}
		b := uint8(0)
		if off+i < len(image) {
			b = image[off+i]
		}
		fmt.Fprintf(&hex, "%02X", b)
	}

	text := "??"
	if ok {
		text = op.String()
	}
	return fmt.Sprintf("%-15s %s", hex.String(), text), size
}

// WriteListing writes a full disassembly of image to w, one instruction
// per line, prefixed with the byte offset.
func WriteListing(w io.Writer, image []byte) error {
	for off := 0; off < len(image); {
		line, size := DisassembleAt(image, off)
		if _, err := fmt.Fprintf(w, "0x%02X: %s\n", off, line); err != nil {
			return err
		}
		off += size
	}
	return nil
}
