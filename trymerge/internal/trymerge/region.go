package trymerge

import (
	"fmt"

	"golang.org/x/tools/container/intsets"
)

// Phase is the position of the scan relative to a Region.
// Phases only move forward.
type Phase int

const (
	BeforeTry Phase = iota
	InTry
	InCatch
	After
)

func (p Phase) String() string {
	switch p {
	case BeforeTry:
		return "before-try"
	case InTry:
		return "in-try"
	case InCatch:
		return "in-catch"
	case After:
		return "after"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Signature is the type signature of the exception raised by a handler.
// The zero value is Unknown.
type Signature struct {
	sig   string
	known bool
}

// Unknown is the Signature of a handler not seen raising.
var Unknown Signature

// Known returns the Signature for type signature sig.
func Known(sig string) Signature {
	return Signature{sig: sig, known: true}
}

// IsKnown returns true if the signature was captured.
func (s Signature) IsKnown() bool { return s.known }

// Matches returns true if both s and t are known and equal. Unknown matches
// nothing, including itself.
func (s Signature) Matches(t Signature) bool {
	return s.known && t.known && s.sig == t.sig
}

func (s Signature) String() string {
	if !s.known {
		return "<unknown>"
	}
	return s.sig
}

// Region is a protected range of a method and its handler.
// Regions are identified by their [Start, End) range.
type Region struct {
	Start      int // First offset of the try range.
	End        int // End of the try range (exclusive).
	Handler    int // Handler of the first entry registered for the range.
	HandlerEnd int // Offset after the handler, -1 if not known.

	CatchTypes intsets.Sparse // Constant pool indices, 0 is catch-all.
	Thrown     Signature
	Phase      Phase
}

// CatchType returns the lowest catch type of r.
func (r *Region) CatchType() int {
	return r.CatchTypes.Min()
}

// atHandlerEnd returns true if pc is the known end of the handler.
func (r *Region) atHandlerEnd(pc int) bool {
	return r.HandlerEnd >= 0 && r.HandlerEnd == pc
}

func (r *Region) String() string {
	return fmt.Sprintf("{%d -> %d} (catch %s) {%d -> %d}",
		r.Start, r.End, r.CatchTypes.String(), r.Handler, r.HandlerEnd)
}
