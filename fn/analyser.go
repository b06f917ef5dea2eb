// Package fn provides the Analyser interface for methods.
package fn

import "github.com/nickng/trymerge/classfile"

// Analyser is an interface for Method analysis,
// handles method entry and exit.
type Analyser interface {
	// EnterMethod analyses a Method.
	EnterMethod(m *classfile.Method)

	// ExitMethod finishes analysing a Method.
	// It should be used for cleanup etc.
	ExitMethod(m *classfile.Method)
}
