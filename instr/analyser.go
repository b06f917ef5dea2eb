// Package instr provides the Analyser interface for instructions.
package instr

import "github.com/nickng/trymerge/bytecode"

// Analyser is an interface for Instruction analysis,
// handles each decoded Instruction in code order.
//
// VisitInstr is called for every instruction and dispatches to the visit
// method of the instruction's category.
type Analyser interface {
	VisitInstr(ins *bytecode.Instruction)
	VisitBranch(ins *bytecode.Instruction) // Branches, jumps, switches and subroutines.
	VisitReturn(ins *bytecode.Instruction)
	VisitRaise(ins *bytecode.Instruction)
}
