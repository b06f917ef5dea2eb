// Package prog provides the Analyser interface for a set of loaded classes.
package prog

// Analyser is an interface for whole program analysis.
type Analyser interface {
	// Analyse is the entry point to the static analyser.
	Analyse()
}
