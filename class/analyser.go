// Package class provides the Analyser interface for classes.
package class

import "github.com/nickng/trymerge/classfile"

// Analyser is an interface for Class analysis,
// handles a class and dispatches its methods.
type Analyser interface {
	VisitClass(cls *classfile.Class)
}
