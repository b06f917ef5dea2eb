package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Instruction is a decoded JVM instruction.
type Instruction struct {
	Offset int // Offset of the opcode in the code array.
	Next   int // Offset of the following instruction.
	Op     Op
	Wide   bool // Prefixed by wide; Op is the modified opcode.

	Index  int // Local variable or constant pool index, -1 if none.
	Const  int // Immediate operand: bipush/sipush value, iinc delta, newarray type, dimensions, interface arg count.
	Target int // Branch target, -1 if none.

	// Switch operands.
	Default int
	Cases   []SwitchCase
}

// SwitchCase is a single match of a tableswitch or lookupswitch.
type SwitchCase struct {
	Match  int32
	Target int
}

// Category returns the control-flow category of the instruction.
func (ins *Instruction) Category() Category {
	return Categorize(ins.Op)
}

// Len returns the encoded length of the instruction in bytes.
func (ins *Instruction) Len() int {
	return ins.Next - ins.Offset
}

// Targets returns all explicit jump targets of the instruction.
func (ins *Instruction) Targets() []int {
	if ins.Target >= 0 {
		return []int{ins.Target}
	}
	if ins.Category() == MultiBranch {
		targets := make([]int, 0, len(ins.Cases)+1)
		for _, c := range ins.Cases {
			targets = append(targets, c.Target)
		}
		return append(targets, ins.Default)
	}
	return nil
}

// ErrTruncated is the error returned when code ends in the middle of an
// instruction.
type ErrTruncated struct {
	Offset int
}

func (e ErrTruncated) Error() string {
	return fmt.Sprintf("code truncated in instruction at %d", e.Offset)
}

// ErrBadOpcode is the error returned for undefined or reserved opcodes.
type ErrBadOpcode struct {
	Offset int
	Op     Op
}

func (e ErrBadOpcode) Error() string {
	return fmt.Sprintf("bad opcode 0x%02x at %d", uint8(e.Op), e.Offset)
}

// Decode decodes the whole code array into instructions in offset order.
func Decode(code []byte) ([]Instruction, error) {
	var instrs []Instruction
	for pc := 0; pc < len(code); {
		ins, err := DecodeAt(code, pc)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, ins)
		pc = ins.Next
	}
	return instrs, nil
}

// DecodeAt decodes the single instruction starting at pc.
func DecodeAt(code []byte, pc int) (Instruction, error) {
	r := reader{code: code, start: pc, pos: pc}
	op := Op(r.u1())
	ins := Instruction{Offset: pc, Op: op, Index: -1, Target: -1}
	if !op.Valid() {
		return ins, ErrBadOpcode{Offset: pc, Op: op}
	}
	switch {
	case op == Wide:
		ins.Wide = true
		ins.Op = Op(r.u1())
		ins.Index = int(r.u2())
		switch {
		case ins.Op == Iinc:
			ins.Const = int(r.s2())
		case Iload <= ins.Op && ins.Op <= Aload, Istore <= ins.Op && ins.Op <= Astore, ins.Op == Ret:
		default:
			return ins, ErrBadOpcode{Offset: pc + 1, Op: ins.Op}
		}

	case op == Tableswitch:
		r.align()
		ins.Default = pc + int(r.s4())
		low, high := r.s4(), r.s4()
		if r.err == nil && high >= low {
			if !r.fits((int64(high) - int64(low) + 1) * 4) {
				return ins, ErrTruncated{Offset: pc}
			}
			for m := int64(low); m <= int64(high) && r.err == nil; m++ {
				ins.Cases = append(ins.Cases, SwitchCase{Match: int32(m), Target: pc + int(r.s4())})
			}
		}

	case op == Lookupswitch:
		r.align()
		ins.Default = pc + int(r.s4())
		npairs := r.s4()
		if r.err == nil && !r.fits(int64(npairs)*8) {
			return ins, ErrTruncated{Offset: pc}
		}
		for i := int32(0); i < npairs && r.err == nil; i++ {
			match := r.s4()
			ins.Cases = append(ins.Cases, SwitchCase{Match: match, Target: pc + int(r.s4())})
		}

	case op == GotoW, op == JsrW:
		ins.Target = pc + int(r.s4())

	case op.IsBranch():
		ins.Target = pc + int(r.s2())

	case op == Bipush:
		ins.Const = int(int8(r.u1()))
	case op == Sipush:
		ins.Const = int(r.s2())
	case op == Newarray:
		ins.Const = int(r.u1())
	case op == Ldc:
		ins.Index = int(r.u1())
	case op == Iinc:
		ins.Index = int(r.u1())
		ins.Const = int(int8(r.u1()))
	case op == Multianewarray:
		ins.Index = int(r.u2())
		ins.Const = int(r.u1())
	case op == Invokeinterface:
		ins.Index = int(r.u2())
		ins.Const = int(r.u1())
		r.u1() // always 0
	case op == Invokedynamic:
		ins.Index = int(r.u2())
		r.u2() // always 0

	default:
		switch n, _ := op.OperandLen(); n {
		case 1:
			ins.Index = int(r.u1())
		case 2:
			ins.Index = int(r.u2())
		}
	}
	if r.err != nil {
		return ins, r.err
	}
	ins.Next = r.pos
	return ins, nil
}

// reader reads big-endian operands and records the first overrun.
type reader struct {
	code  []byte
	start int
	pos   int
	err   error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if r.pos+n > len(r.code) {
		r.err = ErrTruncated{Offset: r.start}
		r.pos = len(r.code)
		return make([]byte, n)
	}
	b := r.code[r.pos : r.pos+n]
	r.pos += n
	return b
}

// fits returns true if n more bytes are available.
func (r *reader) fits(n int64) bool {
	return n >= 0 && int64(r.pos)+n <= int64(len(r.code))
}

func (r *reader) u1() uint8  { return r.take(1)[0] }
func (r *reader) u2() uint16 { return binary.BigEndian.Uint16(r.take(2)) }
func (r *reader) s2() int16  { return int16(r.u2()) }
func (r *reader) s4() int32  { return int32(binary.BigEndian.Uint32(r.take(4))) }

// align skips the 0-3 padding bytes so the next operand starts at a multiple
// of four from the start of the code array.
func (r *reader) align() {
	if pad := (4 - r.pos%4) % 4; pad > 0 {
		r.take(pad)
	}
}
