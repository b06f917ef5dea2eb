package bytecode

// Category is the control-flow class of an opcode.
type Category int

const (
	Plain            Category = iota
	CondBranch                // if<cond>, if_icmp<cond>, if_acmp<cond>, ifnull, ifnonnull
	Jump                      // goto
	JumpWide                  // goto_w
	Subroutine                // jsr, jsr_w
	SubroutineReturn          // ret
	MultiBranch               // tableswitch, lookupswitch
	ReturnFamily              // ireturn .. return
	Raise                     // athrow
)

var categoryNames = [...]string{
	Plain:            "plain",
	CondBranch:       "cond-branch",
	Jump:             "jump",
	JumpWide:         "jump-wide",
	Subroutine:       "subroutine",
	SubroutineReturn: "subroutine-return",
	MultiBranch:      "multi-branch",
	ReturnFamily:     "return",
	Raise:            "raise",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Categorize maps a raw opcode to its control-flow category.
func Categorize(op Op) Category {
	switch {
	case Ifeq <= op && op <= IfAcmpne, op == Ifnull, op == Ifnonnull:
		return CondBranch
	case op == Goto:
		return Jump
	case op == GotoW:
		return JumpWide
	case op == Jsr, op == JsrW:
		return Subroutine
	case op == Ret:
		return SubroutineReturn
	case op == Tableswitch, op == Lookupswitch:
		return MultiBranch
	case Ireturn <= op && op <= Return:
		return ReturnFamily
	case op == Athrow:
		return Raise
	}
	return Plain
}

// IsUnconditionalJump returns true for goto and goto_w.
func (c Category) IsUnconditionalJump() bool {
	return c == Jump || c == JumpWide
}

// FallsThrough returns false if control never reaches the next instruction
// in sequence after an instruction of this category.
func (c Category) FallsThrough() bool {
	switch c {
	case Jump, JumpWide, SubroutineReturn, MultiBranch, ReturnFamily, Raise:
		return false
	}
	return true
}
