package bytecode

import (
	"bytes"
	"fmt"
	"io"
)

// ConstantNamer renders the constant pool entry at index for listings.
type ConstantNamer interface {
	ConstantString(index int) string
}

// String returns a javap-like rendering of the instruction without constant
// pool resolution.
func (ins *Instruction) String() string {
	return ins.format(nil)
}

func (ins *Instruction) format(cp ConstantNamer) string {
	var buf bytes.Buffer
	if ins.Wide {
		buf.WriteString("wide ")
	}
	buf.WriteString(ins.Op.String())
	switch {
	case ins.Category() == MultiBranch:
		for _, c := range ins.Cases {
			fmt.Fprintf(&buf, " %d:%d", c.Match, c.Target)
		}
		fmt.Fprintf(&buf, " default:%d", ins.Default)
	case ins.Target >= 0:
		fmt.Fprintf(&buf, " %d", ins.Target)
	case ins.Op == Iinc:
		fmt.Fprintf(&buf, " %d %d", ins.Index, ins.Const)
	case ins.Op == Bipush, ins.Op == Sipush, ins.Op == Newarray:
		fmt.Fprintf(&buf, " %d", ins.Const)
	case ins.Index >= 0 && usesPool(ins.Op):
		if cp != nil {
			fmt.Fprintf(&buf, " #%d // %s", ins.Index, cp.ConstantString(ins.Index))
		} else {
			fmt.Fprintf(&buf, " #%d", ins.Index)
		}
		if ins.Op == Multianewarray {
			fmt.Fprintf(&buf, " %d", ins.Const)
		}
	case ins.Index >= 0:
		fmt.Fprintf(&buf, " %d", ins.Index)
	}
	return buf.String()
}

// usesPool returns true if the index operand of op refers to the constant
// pool rather than a local variable.
func usesPool(op Op) bool {
	switch op {
	case Ldc, LdcW, Ldc2W,
		Getstatic, Putstatic, Getfield, Putfield,
		Invokevirtual, Invokespecial, Invokestatic, Invokeinterface, Invokedynamic,
		New, Anewarray, Checkcast, Instanceof, Multianewarray:
		return true
	}
	return false
}

// WriteListing writes one line per instruction to w.
func WriteListing(w io.Writer, instrs []Instruction, cp ConstantNamer) (int64, error) {
	var n int64
	for i := range instrs {
		written, err := fmt.Fprintf(w, "%6d: %s\n", instrs[i].Offset, instrs[i].format(cp))
		n += int64(written)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
