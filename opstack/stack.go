// Package opstack simulates the JVM operand stack of a method, tracking the
// type signature of every stack item as instructions are seen in code order.
//
// The simulation is linear. The stack at a forward branch target is the stack
// recorded when the branch was seen; after an instruction that does not fall
// through, the next instruction starts from a recorded target state or from
// an empty stack. At an exception handler the stack holds exactly the caught
// exception.
package opstack

import (
	"io"
	"io/ioutil"
	"log"

	"github.com/nickng/trymerge/bytecode"
	"github.com/nickng/trymerge/classfile"
)

// Signatures of values that are not plain descriptors.
const (
	NullSig      = "null"                  // aconst_null.
	ThrowableSig = "Ljava/lang/Throwable;" // catch-all or mixed handlers.
	unknownSig   = ""
)

// slot is one stack word. Long and double values take two words: the value
// followed by a half word.
type slot struct {
	sig  string
	half bool
}

// Stack is an operand stack simulator for a single method at a time.
type Stack struct {
	slots    []slot
	locals   map[int]string
	targets  map[int][]slot // Stack state recorded for branch targets.
	handlers map[int]string // Caught signature by handler offset.
	lost     bool           // State is unknown until the next recorded target.

	cp     classfile.ConstantPool
	logger *log.Logger
}

// New returns an empty Stack.
func New() *Stack {
	return &Stack{
		locals:   make(map[int]string),
		targets:  make(map[int][]slot),
		handlers: make(map[int]string),
		logger:   log.New(ioutil.Discard, "opstack: ", 0),
	}
}

// SetLog redirects the simulator log to w.
func (s *Stack) SetLog(w io.Writer) {
	s.logger.SetOutput(w)
}

// ResetForMethodEntry discards all state and prepares the simulator for the
// first instruction of m.
func (s *Stack) ResetForMethodEntry(cls *classfile.Class, m *classfile.Method) {
	s.slots = s.slots[:0]
	s.lost = false
	s.cp = cls.ConstantPool
	for k := range s.locals {
		delete(s.locals, k)
	}
	for k := range s.targets {
		delete(s.targets, k)
	}
	for k := range s.handlers {
		delete(s.handlers, k)
	}

	local := 0
	if !m.IsStatic() {
		s.locals[local] = bytecode.ClassSignature(cls.Name)
		local++
	}
	if params, _, err := bytecode.ParseMethodDescriptor(m.Descriptor); err == nil {
		for _, p := range params {
			s.locals[local] = p
			local++
			if bytecode.IsWide(p) {
				local++
			}
		}
	}

	if m.Code == nil {
		return
	}
	for _, e := range m.Code.ExceptionTable {
		sig := ThrowableSig
		if e.CatchType != 0 {
			name, err := cls.ConstantPool.ClassName(int(e.CatchType))
			if err != nil {
				s.logger.Printf("%s: handler %d: %v", m, e.HandlerPC, err)
			} else {
				sig = bytecode.ClassSignature(name)
			}
		}
		pc := int(e.HandlerPC)
		if prev, ok := s.handlers[pc]; ok && prev != sig {
			sig = ThrowableSig
		}
		s.handlers[pc] = sig
	}
	s.enter(0)
}

// Depth returns the number of items on the stack.
func (s *Stack) Depth() int {
	n := 0
	for i := len(s.slots) - 1; i >= 0; i-- {
		if !s.slots[i].half {
			n++
		}
	}
	return n
}

// Signature returns the type signature of the item depth places below the
// top of the stack (0 is the top), and false if it is not known.
func (s *Stack) Signature(depth int) (string, bool) {
	if s.lost || depth < 0 {
		return unknownSig, false
	}
	for i := len(s.slots) - 1; i >= 0; i-- {
		if s.slots[i].half {
			continue
		}
		if depth == 0 {
			sig := s.slots[i].sig
			return sig, sig != unknownSig
		}
		depth--
	}
	return unknownSig, false
}

// Saw applies the effect of ins and prepares the state of the instruction
// that follows it in code order.
func (s *Stack) Saw(ins *bytecode.Instruction) {
	s.apply(ins)
	cat := ins.Category()
	switch {
	case cat.IsUnconditionalJump():
		s.record(ins.Target)
	case cat == bytecode.CondBranch:
		s.record(ins.Target)
	case cat == bytecode.MultiBranch:
		for _, t := range ins.Targets() {
			s.record(t)
		}
	case cat == bytecode.Subroutine:
		s.push(unknownSig) // return address
		s.record(ins.Target)
		s.pop()
	}
	if saved, ok := s.targets[ins.Next]; ok && (s.lost || !cat.FallsThrough()) {
		s.slots = append(s.slots[:0], saved...)
		s.lost = false
	} else if !cat.FallsThrough() {
		s.slots = s.slots[:0]
		s.lost = false
	}
	s.enter(ins.Next)
}

// enter sets the handler state if pc starts an exception handler.
func (s *Stack) enter(pc int) {
	if sig, ok := s.handlers[pc]; ok {
		s.slots = s.slots[:0]
		s.lost = false
		s.push(sig)
	}
}

// record saves the current state for target unless one is already saved.
func (s *Stack) record(target int) {
	if s.lost {
		return
	}
	if _, ok := s.targets[target]; ok {
		return
	}
	saved := make([]slot, len(s.slots))
	copy(saved, s.slots)
	s.targets[target] = saved
}

func (s *Stack) push(sig string) {
	s.slots = append(s.slots, slot{sig: sig})
	if bytecode.IsWide(sig) {
		s.slots = append(s.slots, slot{sig: sig, half: true})
	}
}

// pop removes the top item and returns its signature.
func (s *Stack) pop() string {
	n := len(s.slots)
	if n == 0 {
		return unknownSig
	}
	top := s.slots[n-1]
	if top.half && n >= 2 {
		s.slots = s.slots[:n-2]
	} else {
		s.slots = s.slots[:n-1]
	}
	return top.sig
}

func (s *Stack) popN(n int) {
	for i := 0; i < n; i++ {
		s.pop()
	}
}

// words returns the top n words, or false if the stack is shallower.
func (s *Stack) words(n int) ([]slot, bool) {
	if len(s.slots) < n {
		return nil, false
	}
	w := make([]slot, n)
	copy(w, s.slots[len(s.slots)-n:])
	return w, true
}

// shuffle pops n words and pushes them back in the order given by idx, where
// idx[i] is the index into the popped words (0 is the deepest).
func (s *Stack) shuffle(n int, idx ...int) {
	w, ok := s.words(n)
	if !ok {
		s.loseTrack()
		return
	}
	s.slots = s.slots[:len(s.slots)-n]
	for _, i := range idx {
		s.slots = append(s.slots, w[i])
	}
}

// loseTrack marks the state unknown until the next recorded state.
func (s *Stack) loseTrack() {
	s.slots = s.slots[:0]
	s.lost = true
}
