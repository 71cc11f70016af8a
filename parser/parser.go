package parser

import (
	"github.com/regvm/regvm/isa"
)

// Program is the parser's output: the typed instruction stream in source
// order and the resolved label addresses.
type Program struct {
	Ops    []isa.Op
	Labels map[string]int
}

// Size returns the total encoded size of the program in bytes.
func (p *Program) Size() int {
	total := 0
	for _, op := range p.Ops {
		total += op.Size()
	}
	return total
}

// relocation names a jump whose target label was not resolvable when the
// op was emitted. The target byte of the op at opIndex is rewritten once
// all labels are known.
type relocation struct {
	label   string
	opIndex int
	token   Token
}

// Parser consumes tokens in order and produces typed ops plus resolved
// labels, failing with a located error at the first invalid construct.
type Parser struct {
	tokens []Token
	pos    int

	code   []isa.Op
	labels map[string]int
	relocs []relocation
}

// NewParser creates a parser over a token stream.
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens: tokens,
		labels: make(map[string]int),
	}
}

// Parse lexes and parses source text in one step.
func Parse(source string) (*Program, error) {
	return NewParser(NewLexer(source).Lex()).Parse()
}

// Parse consumes the whole token stream. Every statement starts with a
// mnemonic; the statement's shape is decided by that keyword. After the
// stream is consumed, pending jump targets are patched in place.
func (p *Parser) Parse() (*Program, error) {
	for {
		tok, ok := p.next()
		if !ok {
			break
		}
		if tok.Kind != TokenMnemonic {
			return nil, &Error{Cause: "Expected an operation or directive here", Token: tok}
		}

		var err error
		switch tok.Mnem {
		case MnemHalt:
			p.emit(isa.Op{Kind: isa.HALT})
		case MnemPrint, MnemShl, MnemShr:
			err = p.parseUnary(tok)
		case MnemAdd, MnemMul:
			err = p.parseArith(tok)
		case MnemSub, MnemDiv:
			err = p.parseArith(tok)
		case MnemAnd, MnemOr, MnemXor:
			err = p.parseLogical(tok)
		case MnemMov:
			err = p.parseMov(tok)
		case MnemJmp:
			err = p.parseJmp(tok)
		case MnemLabel:
			err = p.parseLabel(tok)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := p.resolve(); err != nil {
		return nil, err
	}

	return &Program{Ops: p.code, Labels: p.labels}, nil
}

// next returns the next token, or ok=false at end of stream.
func (p *Parser) next() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, true
}

// need returns the next token, or an error attributed to the token the
// missing one should have followed.
func (p *Parser) need(cause string, after Token) (Token, error) {
	tok, ok := p.next()
	if !ok {
		return Token{}, &Error{Cause: cause, Token: after}
	}
	return tok, nil
}

func (p *Parser) emit(op isa.Op) {
	p.code = append(p.code, op)
}

// currentAddress is the byte offset at which the next op will be emitted.
func (p *Parser) currentAddress() int {
	total := 0
	for _, op := range p.code {
		total += op.Size()
	}
	return total
}

// resolve rewrites the target byte of every pending jump. An unresolved
// label is fatal, attributed to the target token.
func (p *Parser) resolve() error {
	for _, rel := range p.relocs {
		addr, ok := p.labels[rel.label]
		if !ok {
			return &Error{Cause: "Jumping to undefined label", Token: rel.token}
		}
		if addr > 0xFF {
			return &Error{Cause: "Label address exceeds addressable memory", Token: rel.token}
		}
		p.code[rel.opIndex].A = uint8(addr)
	}
	return nil
}

// expectRegister narrows a token to a register index.
func expectRegister(tok Token, cause string) (isa.Register, error) {
	if tok.Kind != TokenRegister {
		return 0, &Error{Cause: cause, Token: tok}
	}
	return tok.Reg, nil
}

// asByte narrows a number token to the unsigned byte range.
func asByte(tok Token) (uint8, error) {
	if tok.Value < 0 || tok.Value > 0xFF {
		return 0, &Error{Cause: "Integers should be between 0 and 255 (included)", Token: tok}
	}
	return uint8(tok.Value), nil
}

// parseUnary handles print/shl/shr: mnemonic followed by one register.
func (p *Parser) parseUnary(ins Token) error {
	tok, err := p.need("Missing a register after here", ins)
	if err != nil {
		return err
	}
	reg, err := expectRegister(tok, "Expected a register here")
	if err != nil {
		return err
	}

	var kind isa.OpKind
	switch ins.Mnem {
	case MnemPrint:
		kind = isa.PRINT
	case MnemShl:
		kind = isa.SHL
	case MnemShr:
		kind = isa.SHR
	}
	p.emit(isa.Op{Kind: kind, A: reg})
	return nil
}

// parseArith handles the "rhs to reg" / "rhs from reg" statements:
// add/mul use to, sub/div use from. The rhs may be a number or a register;
// the destination must be a register.
func (p *Parser) parseArith(ins Token) error {
	a, err := p.need("Missing register or number after here", ins)
	if err != nil {
		return err
	}

	linkCause := "Missing 'to' after here"
	if ins.Mnem == MnemSub || ins.Mnem == MnemDiv {
		linkCause = "Missing 'from' after here"
	}
	w, err := p.need(linkCause, a)
	if err != nil {
		return err
	}

	b, err := p.need("Missing register after here", w)
	if err != nil {
		return err
	}
	dst, err := expectRegister(b, "Expected a register here")
	if err != nil {
		return err
	}

	switch ins.Mnem {
	case MnemAdd, MnemMul:
		if w.Kind != TokenTo {
			return &Error{Cause: "Expected 'to' here", Token: w}
		}
	case MnemSub, MnemDiv:
		if w.Kind != TokenFrom {
			return &Error{Cause: "Expected 'from' here", Token: w}
		}
	}

	switch a.Kind {
	case TokenNumber:
		n, err := asByte(a)
		if err != nil {
			return err
		}
		var kind isa.OpKind
		switch ins.Mnem {
		case MnemAdd:
			kind = isa.ADDRN
		case MnemSub:
			kind = isa.SUBRN
		case MnemMul:
			kind = isa.MULRN
		case MnemDiv:
			kind = isa.DIVRN
		}
		p.emit(isa.Op{Kind: kind, A: dst, B: n})
	case TokenRegister:
		var kind isa.OpKind
		switch ins.Mnem {
		case MnemAdd:
			kind = isa.ADDRR
		case MnemSub:
			kind = isa.SUBRR
		case MnemMul:
			kind = isa.MULRR
		case MnemDiv:
			kind = isa.DIVRR
		}
		p.emit(isa.Op{Kind: kind, A: dst, B: a.Reg})
	default:
		return &Error{Cause: "Expected a register or a number here", Token: a}
	}
	return nil
}

// parseLogical handles "and/or/xor reg with rhs".
func (p *Parser) parseLogical(ins Token) error {
	a, err := p.need("Missing register after here", ins)
	if err != nil {
		return err
	}
	w, err := p.need("Missing 'with' after here", a)
	if err != nil {
		return err
	}
	b, err := p.need("Missing register or number after here", w)
	if err != nil {
		return err
	}

	dst, err := expectRegister(a, "Expected a register here")
	if err != nil {
		return err
	}

	if w.Kind != TokenWith {
		return &Error{Cause: "Expected 'with' here", Token: w}
	}

	switch b.Kind {
	case TokenNumber:
		n, err := asByte(b)
		if err != nil {
			return err
		}
		var kind isa.OpKind
		switch ins.Mnem {
		case MnemAnd:
			kind = isa.ANDRN
		case MnemXor:
			kind = isa.XORRN
		case MnemOr:
			kind = isa.ORRN
		}
		p.emit(isa.Op{Kind: kind, A: dst, B: n})
	case TokenRegister:
		var kind isa.OpKind
		switch ins.Mnem {
		case MnemAnd:
			kind = isa.ANDRR
		case MnemXor:
			kind = isa.XORRR
		case MnemOr:
			kind = isa.ORRR
		}
		p.emit(isa.Op{Kind: kind, A: dst, B: b.Reg})
	default:
		return &Error{Cause: "Expected a register or a number here", Token: b}
	}
	return nil
}

// parseMov handles the twelve concrete mov encodings. The source may be a
// number, a register, or either behind a $; the destination may be a
// register, a $ number, or a $ register. A bare number is not a valid
// destination.
func (p *Parser) parseMov(ins Token) error {
	a, err := p.need("Missing source after here", ins)
	if err != nil {
		return err
	}
	derefSrc := false
	if a.Kind == TokenDeref {
		derefSrc = true
		a, err = p.need("Nothing to dereference after here", a)
		if err != nil {
			return err
		}
	}

	w, err := p.need("Missing 'to' after here", a)
	if err != nil {
		return err
	}
	if w.Kind != TokenTo {
		return &Error{Cause: "Expected 'to' here", Token: w}
	}

	b, err := p.need("Missing destination after here", w)
	if err != nil {
		return err
	}
	derefDst := false
	if b.Kind == TokenDeref {
		derefDst = true
		b, err = p.need("Nothing to dereference after here", b)
		if err != nil {
			return err
		}
	}

	switch a.Kind {
	case TokenNumber:
		src, err := asByte(a)
		if err != nil {
			return err
		}
		switch {
		case b.Kind == TokenRegister:
			dst := b.Reg
			kind := pickMov(derefDst, derefSrc, isa.MOVXA, isa.MOVXN, isa.MOVRA, isa.MOVRN)
			p.emit(isa.Op{Kind: kind, A: dst, B: src})
		case b.Kind == TokenNumber && derefDst:
			dst, err := asByte(b)
			if err != nil {
				return err
			}
			kind := isa.MOVAN
			if derefSrc {
				kind = isa.MOVAA
			}
			p.emit(isa.Op{Kind: kind, A: dst, B: src})
		default:
			return &Error{Cause: "Expected a register or an address here", Token: b}
		}
	case TokenRegister:
		src := a.Reg
		switch {
		case b.Kind == TokenRegister:
			dst := b.Reg
			kind := pickMov(derefDst, derefSrc, isa.MOVXX, isa.MOVXR, isa.MOVRX, isa.MOVRR)
			p.emit(isa.Op{Kind: kind, A: dst, B: src})
		case b.Kind == TokenNumber && derefDst:
			dst, err := asByte(b)
			if err != nil {
				return err
			}
			kind := isa.MOVAR
			if derefSrc {
				kind = isa.MOVAX
			}
			p.emit(isa.Op{Kind: kind, A: dst, B: src})
		default:
			return &Error{Cause: "Expected a register or an address here", Token: b}
		}
	default:
		return &Error{Cause: "Expected a register, an address or a number here", Token: a}
	}
	return nil
}

// pickMov selects among the four register-destination mov variants by the
// two deref flags.
func pickMov(derefDst, derefSrc bool, xx, xn, rx, rn isa.OpKind) isa.OpKind {
	if derefDst {
		if derefSrc {
			return xx
		}
		return xn
	}
	if derefSrc {
		return rx
	}
	return rn
}

// parseJmp handles "jmp [if reg cmp reg] to symbol". The comparison
// operators ==, !=, <= and >= arrive as two adjacent punctuation tokens;
// the second is consumed only when the pair forms a recognized case.
func (p *Parser) parseJmp(ins Token) error {
	w, err := p.need("Missing 'to' or 'if' here", ins)
	if err != nil {
		return err
	}

	var cond *isa.Case
	if w.Kind == TokenIf {
		x, err := p.need("Missing left-hand side of comparison after here", w)
		if err != nil {
			return err
		}
		c, err := p.need("Missing comparison operator after here", x)
		if err != nil {
			return err
		}
		y, err := p.need("Missing right-hand side of comparison after here", c)
		if err != nil {
			return err
		}

		second := TokenKind(-1)
		switch y.Kind {
		case TokenRegister:
			// single-token operator, y already holds the rhs
		case TokenEqual, TokenGreater, TokenLesser:
			second = y.Kind
			y, err = p.need("Missing right-hand side of comparison after here", y)
			if err != nil {
				return err
			}
		default:
			return &Error{Cause: "Must be a register", Token: y}
		}

		w, err = p.need("Missing 'to' after here", y)
		if err != nil {
			return err
		}

		left, err := expectRegister(x, "Must be a register")
		if err != nil {
			return err
		}
		right, err := expectRegister(y, "Must be a register")
		if err != nil {
			return err
		}

		var kind isa.CaseKind
		switch {
		case c.Kind == TokenGreater && second == TokenKind(-1):
			kind = isa.CaseGRT
		case c.Kind == TokenGreater && second == TokenEqual:
			kind = isa.CaseGRTEQ
		case c.Kind == TokenLesser && second == TokenKind(-1):
			kind = isa.CaseLSR
		case c.Kind == TokenLesser && second == TokenEqual:
			kind = isa.CaseLSREQ
		case c.Kind == TokenEqual && second == TokenEqual:
			kind = isa.CaseEQ
		case c.Kind == TokenExclaim && second == TokenEqual:
			kind = isa.CaseNEQ
		default:
			return &Error{Cause: "Expected a comparison operator here", Token: c}
		}
		cond = &isa.Case{Kind: kind, Left: left, Right: right}
	}

	if w.Kind != TokenTo {
		return &Error{Cause: "Expected 'to' here", Token: w}
	}

	to, err := p.need("Missing label after here", w)
	if err != nil {
		return err
	}
	if to.Kind != TokenSymbol {
		return &Error{Cause: "Is not a label", Token: to}
	}

	// Emit with a placeholder target byte; resolve() patches it once all
	// labels are known.
	off := len(p.code)
	op := isa.Op{Kind: isa.JMP, A: placeholderTarget}
	if cond != nil {
		op = isa.Op{Kind: isa.JMPIF, Cond: *cond, A: placeholderTarget}
	}
	p.emit(op)
	p.relocs = append(p.relocs, relocation{label: to.Text, opIndex: off, token: to})
	return nil
}

// placeholderTarget fills the target byte of a forward jump until its
// relocation is applied.
const placeholderTarget = 0xEA

// parseLabel handles "label as NAME". The label resolves to the byte
// offset at which the next op will be emitted.
func (p *Parser) parseLabel(ins Token) error {
	w, err := p.need("Missing 'as' after here", ins)
	if err != nil {
		return err
	}
	if w.Kind != TokenAs {
		return &Error{Cause: "Expected 'as' here", Token: w}
	}
	name, err := p.need("Missing a label name after here", w)
	if err != nil {
		return err
	}
	if name.Kind != TokenSymbol {
		return &Error{Cause: "Label name cannot be a number or a keyword", Token: name}
	}
	p.labels[name.Text] = p.currentAddress()
	return nil
}
