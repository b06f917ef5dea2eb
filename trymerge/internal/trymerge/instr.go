package trymerge

import (
	"github.com/fatih/color"
	"github.com/nickng/trymerge/bytecode"
	"github.com/nickng/trymerge/classfile"
	"github.com/nickng/trymerge/instr"
	"github.com/nickng/trymerge/opstack"
)

var _ instr.Analyser = (*Instruction)(nil)

// Instruction is a visitor for the instructions of a method. It tracks the
// phase of every eligible region in a single forward pass.
type Instruction struct {
	Method *classfile.Method
	Stack  *opstack.Stack // Operand stack at the current instruction.

	Eligible []*Region // Regions still candidate for merging, in table order.
	Active   []*Region // Regions entered and not left, innermost last.

	*Logger
}

// NewInstruction returns a visitor over the code of m. The stack must be
// reset for m.
func NewInstruction(m *classfile.Method, stack *opstack.Stack, eligible []*Region) *Instruction {
	return &Instruction{
		Method:   m,
		Stack:    stack,
		Eligible: eligible,
		Logger:   nopLogger,
	}
}

// VisitInstr advances the phase of regions at ins, then the operand stack.
// The stack is queried before the effect of ins is applied.
func (v *Instruction) VisitInstr(ins *bytecode.Instruction) {
	defer v.Stack.Saw(ins)

	if r := v.startingAt(ins.Offset); r != nil {
		v.Active = append(v.Active, r)
		r.Phase = InTry
		v.Logger.Debugf("%s %d: enter try %v", v.Logger.Module(), ins.Offset, r)
	}
	inner := v.innermost()
	if inner == nil {
		return
	}
	switch {
	case inner.Handler == ins.Next:
		if ins.Category().IsUnconditionalJump() {
			inner.HandlerEnd = ins.Target
			v.Logger.Debugf("%s %d: try %v ends with %s", v.Logger.Module(), ins.Offset, inner, ins.Op)
		} else {
			v.disqualify(inner, ins)
		}
	case inner.Handler == ins.Offset:
		inner.Phase = InCatch
		v.Logger.Debugf("%s %d: enter catch %v", v.Logger.Module(), ins.Offset, inner)
	case inner.atHandlerEnd(ins.Offset):
		v.Active = v.Active[:len(v.Active)-1]
		inner.Phase = After
		v.Logger.Debugf("%s %d: leave %v", v.Logger.Module(), ins.Offset, inner)
	}
	if inner.Phase != InCatch {
		return
	}
	switch ins.Category() {
	case bytecode.CondBranch, bytecode.Jump, bytecode.JumpWide,
		bytecode.Subroutine, bytecode.SubroutineReturn, bytecode.MultiBranch:
		v.VisitBranch(ins)
	case bytecode.ReturnFamily:
		v.VisitReturn(ins)
	case bytecode.Raise:
		v.VisitRaise(ins)
	}
}

// VisitBranch disqualifies the innermost region if ins may leave its handler.
// Switches, null checks and jsr_w keep the region.
func (v *Instruction) VisitBranch(ins *bytecode.Instruction) {
	if !leavesHandler(ins.Op) {
		return
	}
	v.disqualify(v.innermost(), ins)
}

// leavesHandler reports whether op ends a handler that is not a plain
// rethrow: ifeq through ret, the return family and goto_w.
func leavesHandler(op bytecode.Op) bool {
	return bytecode.Ifeq <= op && op <= bytecode.Ret ||
		bytecode.Ireturn <= op && op <= bytecode.Return ||
		op == bytecode.GotoW
}

// VisitReturn disqualifies the innermost region, its handler returns.
func (v *Instruction) VisitReturn(ins *bytecode.Instruction) {
	if !leavesHandler(ins.Op) {
		return
	}
	v.disqualify(v.innermost(), ins)
}

// VisitRaise records the type raised by the handler of the innermost region.
func (v *Instruction) VisitRaise(ins *bytecode.Instruction) {
	inner := v.innermost()
	if v.Stack.Depth() == 0 {
		v.disqualify(inner, ins)
		return
	}
	if sig, ok := v.Stack.Signature(0); ok {
		inner.Thrown = Known(sig)
	} else {
		inner.Thrown = Unknown
	}
	v.Logger.Debugf("%s %d: catch %v raises %s",
		v.Logger.Module(), ins.Offset, inner, color.YellowString(inner.Thrown.String()))
}

// startingAt returns the first eligible region starting at pc.
func (v *Instruction) startingAt(pc int) *Region {
	for _, r := range v.Eligible {
		if r.Start == pc {
			return r
		}
	}
	return nil
}

func (v *Instruction) innermost() *Region {
	if len(v.Active) == 0 {
		return nil
	}
	return v.Active[len(v.Active)-1]
}

// disqualify removes r from the eligible and active regions.
func (v *Instruction) disqualify(r *Region, ins *bytecode.Instruction) {
	v.Eligible = remove(v.Eligible, r)
	v.Active = remove(v.Active, r)
	v.Logger.Debugf("%s %d: %s disqualifies %v",
		v.Logger.Module(), ins.Offset, color.RedString(ins.Op.String()), r)
}

func remove(regions []*Region, r *Region) []*Region {
	for i := range regions {
		if regions[i] == r {
			return append(regions[:i], regions[i+1:]...)
		}
	}
	return regions
}

// SetLogger sets logger for Instruction.
func (v *Instruction) SetLogger(l *Logger) {
	v.Logger = l.withModule(color.MagentaString("instr"))
}
