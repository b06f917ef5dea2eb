package opstack

import (
	"github.com/nickng/trymerge/bytecode"
)

// Signatures pushed by primitive operations, indexed by (op - base) % 4 for
// the I, L, F, D instruction groups.
var typed = [4]string{"I", "J", "F", "D"}

// newarray element types by atype operand.
var primArrays = map[int]string{
	4: "[Z", 5: "[C", 6: "[F", 7: "[D", 8: "[B", 9: "[S", 10: "[I", 11: "[J",
}

// apply performs the stack effect of ins.
func (s *Stack) apply(ins *bytecode.Instruction) {
	op := ins.Op
	switch {
	case op == bytecode.Nop, op == bytecode.Iinc, op == bytecode.Goto,
		op == bytecode.GotoW, op == bytecode.Ret, op == bytecode.Return,
		op == bytecode.Jsr, op == bytecode.JsrW:

	case op == bytecode.AconstNull:
		s.push(NullSig)
	case bytecode.IconstM1 <= op && op <= bytecode.Iconst5,
		op == bytecode.Bipush, op == bytecode.Sipush:
		s.push("I")
	case op == bytecode.Lconst0, op == bytecode.Lconst1:
		s.push("J")
	case bytecode.Fconst0 <= op && op <= bytecode.Fconst2:
		s.push("F")
	case op == bytecode.Dconst0, op == bytecode.Dconst1:
		s.push("D")
	case op == bytecode.Ldc, op == bytecode.LdcW, op == bytecode.Ldc2W:
		sig, err := s.cp.LdcSignature(ins.Index)
		if err != nil {
			s.logger.Printf("%d: %s: %v", ins.Offset, op, err)
		}
		s.push(sig)

	// Loads and stores.
	case bytecode.Iload <= op && op <= bytecode.Aload:
		s.load(int(op-bytecode.Iload), ins.Index)
	case bytecode.Iload0 <= op && op <= bytecode.Aload3:
		k := int(op - bytecode.Iload0)
		s.load(k/4, k%4)
	case bytecode.Istore <= op && op <= bytecode.Astore:
		s.store(int(op-bytecode.Istore), ins.Index)
	case bytecode.Istore0 <= op && op <= bytecode.Astore3:
		k := int(op - bytecode.Istore0)
		s.store(k/4, k%4)
	case bytecode.Iaload <= op && op <= bytecode.Saload:
		s.pop()
		array := s.pop()
		switch op {
		case bytecode.Laload:
			s.push("J")
		case bytecode.Faload:
			s.push("F")
		case bytecode.Daload:
			s.push("D")
		case bytecode.Aaload:
			s.push(bytecode.ArrayElement(array))
		default:
			s.push("I")
		}
	case bytecode.Iastore <= op && op <= bytecode.Sastore:
		s.popN(3)

	// Stack manipulation, on words.
	case op == bytecode.Pop:
		s.shuffle(1)
	case op == bytecode.Pop2:
		s.shuffle(2)
	case op == bytecode.Dup:
		s.shuffle(1, 0, 0)
	case op == bytecode.DupX1:
		s.shuffle(2, 1, 0, 1)
	case op == bytecode.DupX2:
		s.shuffle(3, 2, 0, 1, 2)
	case op == bytecode.Dup2:
		s.shuffle(2, 0, 1, 0, 1)
	case op == bytecode.Dup2X1:
		s.shuffle(3, 1, 2, 0, 1, 2)
	case op == bytecode.Dup2X2:
		s.shuffle(4, 2, 3, 0, 1, 2, 3)
	case op == bytecode.Swap:
		s.shuffle(2, 1, 0)

	// Arithmetic.
	case bytecode.Iadd <= op && op <= bytecode.Drem:
		s.popN(2)
		s.push(typed[(op-bytecode.Iadd)%4])
	case bytecode.Ineg <= op && op <= bytecode.Dneg:
		s.pop()
		s.push(typed[(op-bytecode.Ineg)%4])
	case bytecode.Ishl <= op && op <= bytecode.Lxor:
		s.popN(2)
		s.push(typed[(op-bytecode.Ishl)%2])
	case bytecode.I2l <= op && op <= bytecode.I2s:
		s.pop()
		s.push(conversions[op-bytecode.I2l])
	case bytecode.Lcmp <= op && op <= bytecode.Dcmpg:
		s.popN(2)
		s.push("I")

	// Control flow.
	case bytecode.Ifeq <= op && op <= bytecode.Ifle,
		op == bytecode.Ifnull, op == bytecode.Ifnonnull,
		op == bytecode.Tableswitch, op == bytecode.Lookupswitch:
		s.pop()
	case bytecode.IfIcmpeq <= op && op <= bytecode.IfAcmpne:
		s.popN(2)
	case bytecode.Ireturn <= op && op <= bytecode.Areturn, op == bytecode.Athrow:
		s.pop()

	// Fields and calls.
	case op == bytecode.Getstatic, op == bytecode.Getfield,
		op == bytecode.Putstatic, op == bytecode.Putfield:
		_, _, desc, err := s.cp.MemberRef(ins.Index)
		if err != nil {
			s.logger.Printf("%d: %s: %v", ins.Offset, op, err)
			s.loseTrack()
			return
		}
		switch op {
		case bytecode.Getstatic:
			s.push(desc)
		case bytecode.Getfield:
			s.pop()
			s.push(desc)
		case bytecode.Putstatic:
			s.pop()
		case bytecode.Putfield:
			s.popN(2)
		}
	case bytecode.Invokevirtual <= op && op <= bytecode.Invokedynamic:
		s.invoke(ins)

	// Objects and arrays.
	case op == bytecode.New:
		s.push(s.classSig(ins))
	case op == bytecode.Newarray:
		s.pop()
		s.push(primArrays[ins.Const])
	case op == bytecode.Anewarray:
		s.pop()
		if sig := s.classSig(ins); sig != unknownSig {
			s.push("[" + sig)
		} else {
			s.push(unknownSig)
		}
	case op == bytecode.Arraylength, op == bytecode.Instanceof:
		s.pop()
		s.push("I")
	case op == bytecode.Checkcast:
		s.pop()
		s.push(s.classSig(ins))
	case op == bytecode.Monitorenter, op == bytecode.Monitorexit:
		s.pop()
	case op == bytecode.Multianewarray:
		s.popN(ins.Const)
		s.push(s.classSig(ins))

	default:
		s.logger.Printf("%d: no stack model for %s", ins.Offset, op)
		s.loseTrack()
	}
}

var conversions = [...]string{
	bytecode.I2l - bytecode.I2l: "J",
	bytecode.I2f - bytecode.I2l: "F",
	bytecode.I2d - bytecode.I2l: "D",
	bytecode.L2i - bytecode.I2l: "I",
	bytecode.L2f - bytecode.I2l: "F",
	bytecode.L2d - bytecode.I2l: "D",
	bytecode.F2i - bytecode.I2l: "I",
	bytecode.F2l - bytecode.I2l: "J",
	bytecode.F2d - bytecode.I2l: "D",
	bytecode.D2i - bytecode.I2l: "I",
	bytecode.D2l - bytecode.I2l: "J",
	bytecode.D2f - bytecode.I2l: "F",
	bytecode.I2b - bytecode.I2l: "I",
	bytecode.I2c - bytecode.I2l: "I",
	bytecode.I2s - bytecode.I2l: "I",
}

// load pushes local index of kind k (0 int, 1 long, 2 float, 3 double,
// 4 reference).
func (s *Stack) load(k, index int) {
	if k == 4 {
		s.push(s.locals[index])
		return
	}
	s.push(typed[k])
}

func (s *Stack) store(k, index int) {
	sig := s.pop()
	if k == 4 {
		s.locals[index] = sig
	}
}

func (s *Stack) classSig(ins *bytecode.Instruction) string {
	name, err := s.cp.ClassName(ins.Index)
	if err != nil {
		s.logger.Printf("%d: %s: %v", ins.Offset, ins.Op, err)
		return unknownSig
	}
	return bytecode.ClassSignature(name)
}

func (s *Stack) invoke(ins *bytecode.Instruction) {
	var desc string
	var err error
	if ins.Op == bytecode.Invokedynamic {
		_, desc, err = s.cp.DynamicRef(ins.Index)
	} else {
		_, _, desc, err = s.cp.MemberRef(ins.Index)
	}
	if err != nil {
		s.logger.Printf("%d: %s: %v", ins.Offset, ins.Op, err)
		s.loseTrack()
		return
	}
	params, ret, err := bytecode.ParseMethodDescriptor(desc)
	if err != nil {
		s.logger.Printf("%d: %s: %v", ins.Offset, ins.Op, err)
		s.loseTrack()
		return
	}
	s.popN(len(params))
	if ins.Op != bytecode.Invokestatic && ins.Op != bytecode.Invokedynamic {
		s.pop() // receiver
	}
	if ret != "V" {
		s.push(ret)
	}
}
