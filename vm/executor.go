package vm

import (
	"fmt"

	"github.com/regvm/regvm/isa"
)

// Step executes one tick: fetch the byte at the program counter, decode
// the operand bytes the opcode implies, execute, and advance. A byte that
// encodes no instruction consumes one tick and one byte and has no other
// effect.
func (m *Machine) Step() error {
	if m.State != StateRunning {
		return fmt.Errorf("machine is not running (state %s)", m.State)
	}
	if m.TickLimit > 0 && m.Ticks >= m.TickLimit {
		return fmt.Errorf("%w (%d ticks)", ErrTickLimit, m.TickLimit)
	}

	op, size, ok := isa.Decode(m.Memory[:], m.PC)

	if m.Trace != nil {
		m.Trace.record(m.Ticks, m.PC, m.Memory[:])
	}

	m.PC += size
	m.Ticks++

	if ok {
		m.execute(op)
	}
	return nil
}

// Run drives the machine from the beginning to termination and writes the
// termination line. The exit code after a HALT is whatever the exit-code
// register held at that moment; termination by running off the end of
// memory reports EOF instead.
func (m *Machine) Run() error {
	m.Start()
	for {
		if err := m.Step(); err != nil {
			return err
		}
		if m.State == StateHalted {
			fmt.Fprintf(m.OutputWriter, "\nVM HALTED. EXIT CODE: %d\n", m.ExitCode)
			return nil
		}
		if m.PC >= isa.MemorySize {
			fmt.Fprint(m.OutputWriter, "\nVM HALTED. REACHED EOF\n")
			return nil
		}
	}
}

// execute mutates register, memory and machine state for one decoded op.
// The letters after MOV name destination then source: R register,
// A absolute address, X indirect through a register, N immediate.
func (m *Machine) execute(op isa.Op) {
	mem := &m.Memory

	switch op.Kind {
	case isa.NOOP:

	case isa.HALT:
		m.ExitCode = *m.reg(isa.ExitCodeRegister)
		m.State = StateHalted

	case isa.MOVRN:
		*m.reg(op.A) = op.B
	case isa.MOVRR:
		*m.reg(op.A) = *m.reg(op.B)
	case isa.MOVRA:
		*m.reg(op.A) = mem[op.B]
	case isa.MOVRX:
		*m.reg(op.A) = mem[*m.reg(op.B)]

	case isa.MOVAN:
		mem[op.A] = op.B
	case isa.MOVAR:
		mem[op.A] = *m.reg(op.B)
	case isa.MOVAA:
		mem[op.A] = mem[op.B]
	case isa.MOVAX:
		mem[op.A] = mem[*m.reg(op.B)]

	case isa.MOVXN:
		mem[*m.reg(op.A)] = op.B
	case isa.MOVXR:
		mem[*m.reg(op.A)] = *m.reg(op.B)
	case isa.MOVXA:
		mem[*m.reg(op.A)] = mem[op.B]
	case isa.MOVXX:
		mem[*m.reg(op.A)] = mem[*m.reg(op.B)]

	case isa.ADDRN:
		*m.reg(op.A) += op.B
	case isa.ADDRR:
		*m.reg(op.A) += *m.reg(op.B)
	case isa.SUBRN:
		*m.reg(op.A) -= op.B
	case isa.SUBRR:
		*m.reg(op.A) -= *m.reg(op.B)
	case isa.MULRN:
		*m.reg(op.A) *= op.B
	case isa.MULRR:
		*m.reg(op.A) *= *m.reg(op.B)
	case isa.DIVRN:
		if op.B != 0 {
			*m.reg(op.A) /= op.B
		}
	case isa.DIVRR:
		if *m.reg(op.B) != 0 {
			*m.reg(op.A) /= *m.reg(op.B)
		}

	case isa.ANDRR:
		*m.reg(op.A) &= *m.reg(op.B)
	case isa.ANDRN:
		*m.reg(op.A) &= op.B
	case isa.XORRR:
		*m.reg(op.A) ^= *m.reg(op.B)
	case isa.XORRN:
		*m.reg(op.A) ^= op.B
	case isa.ORRR:
		*m.reg(op.A) |= *m.reg(op.B)
	case isa.ORRN:
		*m.reg(op.A) |= op.B

	case isa.SHR:
		*m.reg(op.A) >>= 1
	case isa.SHL:
		*m.reg(op.A) <<= 1

	case isa.PRINT:
		fmt.Fprintf(m.OutputWriter, "%c", rune(*m.reg(op.A)))

	case isa.JMP:
		m.PC = int(op.A)

	case isa.JMPIF:
		if m.evaluate(op.Cond) {
			m.PC = int(op.A)
		}
	}
}

// evaluate computes a conditional jump's predicate as an unsigned byte
// comparison between two registers.
func (m *Machine) evaluate(c isa.Case) bool {
	left, right := *m.reg(c.Left), *m.reg(c.Right)
	switch c.Kind {
	case isa.CaseEQ:
		return left == right
	case isa.CaseNEQ:
		return left != right
	case isa.CaseLSR:
		return left < right
	case isa.CaseGRT:
		return left > right
	case isa.CaseLSREQ:
		return left <= right
	case isa.CaseGRTEQ:
		return left >= right
	default:
		return false
	}
}
