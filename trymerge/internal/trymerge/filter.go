package trymerge

import (
	"github.com/nickng/trymerge/classfile"
)

// Reason is why a region is not eligible for merging.
type Reason int

const (
	MultipleHandlers Reason = iota + 1 // Multi-catch.
	Finally                            // Catch-all handler.
	CatchIsThrown                      // Caught type is declared thrown by the method.
	BadCatchType                       // Caught type does not resolve to a class.
)

func (r Reason) String() string {
	switch r {
	case MultipleHandlers:
		return "multiple handlers"
	case Finally:
		return "finally"
	case CatchIsThrown:
		return "catch is thrown"
	case BadCatchType:
		return "bad catch type"
	}
	return "eligible"
}

// Removal is a region removed by Filter.
type Removal struct {
	Region *Region
	Reason Reason
	Err    error // Set for BadCatchType.
}

// Filter returns the regions of m that may be merged with another one, and
// the removed regions with the reason of their removal. Order is preserved.
func Filter(regions []*Region, m *classfile.Method) (eligible []*Region, removed []Removal) {
	for _, r := range regions {
		switch {
		case r.CatchTypes.Len() > 1:
			removed = append(removed, Removal{Region: r, Reason: MultipleHandlers})
		case r.CatchTypes.Has(0):
			removed = append(removed, Removal{Region: r, Reason: Finally})
		case len(m.Exceptions) > 0:
			name, err := m.Class.ConstantPool.ClassName(r.CatchType())
			if err != nil {
				removed = append(removed, Removal{Region: r, Reason: BadCatchType, Err: err})
				continue
			}
			if m.Throws(name) {
				removed = append(removed, Removal{Region: r, Reason: CatchIsThrown})
				continue
			}
			eligible = append(eligible, r)
		default:
			eligible = append(eligible, r)
		}
	}
	return eligible, removed
}
