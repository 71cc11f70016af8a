// Package isa defines the instruction set shared by the assembler and the
// virtual machine: opcode bytes, operand layouts and serialized sizes.
// Both sides derive their wire knowledge from the single opcode table in
// this package so the two cannot drift apart.
package isa

import "fmt"

// Primitive operand types. All four share the same 8-bit space; the names
// document intent at use sites.
type (
	// Register is an index into the register file (0..7).
	Register = uint8
	// Numeral is an immediate literal embedded in the instruction stream.
	Numeral = uint8
	// CAddress is a byte value used directly as a memory index.
	CAddress = uint8
	// VAddress is a register index whose current value is used as the
	// memory index.
	VAddress = uint8
)

// NumRegisters is the size of the register file.
const NumRegisters = 8

// MemorySize is the size of the machine's flat memory, and therefore the
// maximum length of a program image.
const MemorySize = 256

// Register indices as named by the assembly language.
const (
	RegN Register = 0
	RegX Register = 1
	RegY Register = 2
	RegZ Register = 3
	RegA Register = 4
	RegB Register = 5
	RegC Register = 6
	RegI Register = 7
)

// ExitCodeRegister is read as the process exit code when the machine halts.
const ExitCodeRegister = RegC

var registerNames = [NumRegisters]string{"n", "x", "y", "z", "a", "b", "c", "i"}

// RegisterName returns the assembly-language name of a register index.
func RegisterName(r Register) string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("r%d", r)
}

// RegisterByName maps an assembly-language register name (any case) to its
// index. Names are single letters, so callers lowercase before calling.
func RegisterByName(name string) (Register, bool) {
	for i, n := range registerNames {
		if n == name {
			return Register(i), true // #nosec G115 -- i < NumRegisters
		}
	}
	return 0, false
}

// OpKind identifies an instruction variant.
type OpKind uint8

// Instruction variants. The two letters after the operation name encode the
// destination and source kinds, in that order: R register, A absolute
// address, X indirect through a register, N immediate.
const (
	NOOP OpKind = iota
	HALT

	MOVRN
	MOVRR
	MOVRA
	MOVRX
	MOVAN
	MOVAR
	MOVAA
	MOVAX
	MOVXN
	MOVXR
	MOVXA
	MOVXX

	ADDRN
	ADDRR
	SUBRN
	SUBRR
	MULRN
	MULRR
	DIVRN
	DIVRR

	ANDRR
	ANDRN
	XORRR
	XORRN
	ORRR
	ORRN

	SHR
	SHL

	PRINT

	JMP
	JMPIF

	numOpKinds
)

// CaseKind identifies a comparison predicate carried by JMPIF. The constant
// values are the wire discriminators.
type CaseKind uint8

const (
	CaseEQ    CaseKind = 0x00
	CaseNEQ   CaseKind = 0x01
	CaseLSR   CaseKind = 0x02
	CaseGRT   CaseKind = 0x03
	CaseLSREQ CaseKind = 0x04
	CaseGRTEQ CaseKind = 0x05
)

var caseSymbols = map[CaseKind]string{
	CaseEQ:    "==",
	CaseNEQ:   "!=",
	CaseLSR:   "<",
	CaseGRT:   ">",
	CaseLSREQ: "<=",
	CaseGRTEQ: ">=",
}

func (c CaseKind) String() string {
	if s, ok := caseSymbols[c]; ok {
		return s
	}
	return fmt.Sprintf("case(0x%02X)", uint8(c))
}

// Case is the comparison attached to a conditional jump: an unsigned
// byte comparison between two registers.
type Case struct {
	Kind  CaseKind
	Left  Register
	Right Register
}

// Op is a single typed instruction. A and B are the operand bytes in wire
// order (destination or left-hand side first). For JMPIF, Cond holds the
// comparison and A holds the jump target.
type Op struct {
	Kind OpKind
	A    uint8
	B    uint8
	Cond Case
}

// OperandRole describes how an operand byte is interpreted, for listing
// and trace output.
type OperandRole uint8

const (
	// RoleNone marks an absent operand.
	RoleNone OperandRole = iota
	// RoleReg is a register index.
	RoleReg
	// RoleImm is an immediate byte.
	RoleImm
	// RoleAddr is an absolute memory address.
	RoleAddr
)

// OpInfo is one row of the opcode table.
type OpInfo struct {
	Name     string
	Opcode   byte
	Operands int         // plain operand bytes following the opcode
	HasCase  bool        // JMPIF carries a 3-byte case block before the target
	A, B     OperandRole // interpretation of the operand bytes
}

// Size returns the serialized size in bytes, opcode included.
func (info OpInfo) Size() int {
	size := 1 + info.Operands
	if info.HasCase {
		size += 3
	}
	return size
}

// opcodeTable is the authoritative description of the binary format. The
// encoder, the decoder and the disassembler all read their layout from here.
var opcodeTable = [numOpKinds]OpInfo{
	NOOP: {Name: "NOOP", Opcode: 0x00},
	HALT: {Name: "HALT", Opcode: 0xFF},

	MOVRN: {Name: "MOVRN", Opcode: 0x0E, Operands: 2, A: RoleReg, B: RoleImm},
	MOVRR: {Name: "MOVRR", Opcode: 0x1E, Operands: 2, A: RoleReg, B: RoleReg},
	MOVRA: {Name: "MOVRA", Opcode: 0xAE, Operands: 2, A: RoleReg, B: RoleAddr},
	MOVRX: {Name: "MOVRX", Opcode: 0xBE, Operands: 2, A: RoleReg, B: RoleReg},
	MOVAN: {Name: "MOVAN", Opcode: 0xE1, Operands: 2, A: RoleAddr, B: RoleImm},
	MOVAR: {Name: "MOVAR", Opcode: 0xE2, Operands: 2, A: RoleAddr, B: RoleReg},
	MOVAA: {Name: "MOVAA", Opcode: 0xE3, Operands: 2, A: RoleAddr, B: RoleAddr},
	MOVAX: {Name: "MOVAX", Opcode: 0xE4, Operands: 2, A: RoleAddr, B: RoleReg},
	MOVXN: {Name: "MOVXN", Opcode: 0xEA, Operands: 2, A: RoleReg, B: RoleImm},
	MOVXR: {Name: "MOVXR", Opcode: 0xEB, Operands: 2, A: RoleReg, B: RoleReg},
	MOVXA: {Name: "MOVXA", Opcode: 0xEC, Operands: 2, A: RoleReg, B: RoleAddr},
	MOVXX: {Name: "MOVXX", Opcode: 0xED, Operands: 2, A: RoleReg, B: RoleReg},

	ADDRN: {Name: "ADDRN", Opcode: 0x0A, Operands: 2, A: RoleReg, B: RoleImm},
	ADDRR: {Name: "ADDRR", Opcode: 0x1A, Operands: 2, A: RoleReg, B: RoleReg},
	SUBRN: {Name: "SUBRN", Opcode: 0x0B, Operands: 2, A: RoleReg, B: RoleImm},
	SUBRR: {Name: "SUBRR", Opcode: 0x1B, Operands: 2, A: RoleReg, B: RoleReg},
	MULRN: {Name: "MULRN", Opcode: 0x0C, Operands: 2, A: RoleReg, B: RoleImm},
	MULRR: {Name: "MULRR", Opcode: 0x1C, Operands: 2, A: RoleReg, B: RoleReg},
	DIVRN: {Name: "DIVRN", Opcode: 0x0D, Operands: 2, A: RoleReg, B: RoleImm},
	DIVRR: {Name: "DIVRR", Opcode: 0x1D, Operands: 2, A: RoleReg, B: RoleReg},

	ANDRR: {Name: "ANDRR", Opcode: 0xC5, Operands: 2, A: RoleReg, B: RoleReg},
	ANDRN: {Name: "ANDRN", Opcode: 0xC6, Operands: 2, A: RoleReg, B: RoleImm},
	XORRR: {Name: "XORRR", Opcode: 0xD5, Operands: 2, A: RoleReg, B: RoleReg},
	XORRN: {Name: "XORRN", Opcode: 0xD6, Operands: 2, A: RoleReg, B: RoleImm},
	ORRR:  {Name: "ORRR", Opcode: 0xE5, Operands: 2, A: RoleReg, B: RoleReg},
	ORRN:  {Name: "ORRN", Opcode: 0xE6, Operands: 2, A: RoleReg, B: RoleImm},

	SHR: {Name: "SHR", Opcode: 0x2D, Operands: 1, A: RoleReg},
	SHL: {Name: "SHL", Opcode: 0x3D, Operands: 1, A: RoleReg},

	PRINT: {Name: "PRINT", Opcode: 0xA0, Operands: 1, A: RoleReg},

	JMP:   {Name: "JMP", Opcode: 0x0F, Operands: 1, A: RoleAddr},
	JMPIF: {Name: "JMPIF", Opcode: 0x1F, Operands: 1, HasCase: true, A: RoleAddr},
}

// kindByOpcode is the decoder's view of the table.
var kindByOpcode = func() map[byte]OpKind {
	m := make(map[byte]OpKind, numOpKinds)
	for kind, info := range opcodeTable {
		m[info.Opcode] = OpKind(kind) // #nosec G115 -- kind < numOpKinds
	}
	return m
}()

// Info returns the table row for a variant.
func (k OpKind) Info() OpInfo {
	return opcodeTable[k]
}

func (k OpKind) String() string {
	if k < numOpKinds {
		return opcodeTable[k].Name
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// Lookup maps an opcode byte back to its variant. The second result is
// false for bytes that encode no instruction.
func Lookup(opcode byte) (OpKind, bool) {
	kind, ok := kindByOpcode[opcode]
	return kind, ok
}

// Opcode returns the wire opcode byte of an op.
func (o Op) Opcode() byte {
	return opcodeTable[o.Kind].Opcode
}

// Size returns the serialized size of an op in bytes, opcode included.
func (o Op) Size() int {
	return opcodeTable[o.Kind].Size()
}

func (o Op) String() string {
	info := opcodeTable[o.Kind]
	switch {
	case info.HasCase:
		return fmt.Sprintf("%s %s %s %s -> 0x%02X", info.Name,
			RegisterName(o.Cond.Left), o.Cond.Kind, RegisterName(o.Cond.Right), o.A)
	case info.Operands == 2:
		return fmt.Sprintf("%s %s, %s", info.Name, formatOperand(info.A, o.A), formatOperand(info.B, o.B))
	case info.Operands == 1:
		return fmt.Sprintf("%s %s", info.Name, formatOperand(info.A, o.A))
	default:
		return info.Name
	}
}

func formatOperand(role OperandRole, value uint8) string {
	switch role {
	case RoleReg:
		return RegisterName(value)
	case RoleAddr:
		return fmt.Sprintf("0x%02X", value)
	default:
		return fmt.Sprintf("%d", value)
	}
}
