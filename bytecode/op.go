package bytecode

import "fmt"

// variable marks opcodes whose operand length depends on the code position
// or on the following bytes.
const variable = -1

// operandLen is the number of operand bytes following each opcode.
var operandLen [256]int

func init() {
	opByName = make(map[string]Op, len(opNames))
	for i, n := range opNames {
		opByName[n] = Op(i)
	}
	for _, op := range []Op{Bipush, Ldc, Iload, Lload, Fload, Dload, Aload,
		Istore, Lstore, Fstore, Dstore, Astore, Ret, Newarray} {
		operandLen[op] = 1
	}
	for _, op := range []Op{Sipush, LdcW, Ldc2W, Iinc, Goto, Jsr,
		Getstatic, Putstatic, Getfield, Putfield,
		Invokevirtual, Invokespecial, Invokestatic,
		New, Anewarray, Checkcast, Instanceof, Ifnull, Ifnonnull} {
		operandLen[op] = 2
	}
	for op := Ifeq; op <= IfAcmpne; op++ {
		operandLen[op] = 2
	}
	operandLen[Multianewarray] = 3
	for _, op := range []Op{Invokeinterface, Invokedynamic, GotoW, JsrW} {
		operandLen[op] = 4
	}
	for _, op := range []Op{Tableswitch, Lookupswitch, Wide} {
		operandLen[op] = variable
	}
}

// Valid returns true if op is a defined JVM opcode.
func (op Op) Valid() bool {
	return int(op) < len(opNames)
}

func (op Op) String() string {
	if op.Valid() {
		return opNames[op]
	}
	return fmt.Sprintf("op(0x%02x)", uint8(op))
}

var opByName map[string]Op

// Lookup returns the opcode with the given mnemonic, e.g. "athrow".
func Lookup(name string) (Op, bool) {
	op, ok := opByName[name]
	return op, ok
}

// OperandLen returns the fixed operand length of op in bytes, and false for
// tableswitch, lookupswitch and wide.
func (op Op) OperandLen() (int, bool) {
	n := operandLen[op]
	return n, n != variable
}

// IsBranch returns true if op carries a branch offset operand.
func (op Op) IsBranch() bool {
	switch {
	case Ifeq <= op && op <= Jsr:
		return true
	case op == Ifnull, op == Ifnonnull, op == GotoW, op == JsrW:
		return true
	}
	return false
}
