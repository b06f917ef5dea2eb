package trymerge

import (
	"log"
	"os"

	"github.com/nickng/trymerge/classfile"
	"github.com/nickng/trymerge/report"
	"github.com/nickng/trymerge/stats"
)

// Environment captures the global environment of the analysis shared across
// classes and methods.
type Environment struct {
	Info     *classfile.Info
	Reporter report.Reporter
	Stats    *stats.Statistics
	Errors   chan error
}

// NewEnvironment initialises a new environment. Findings are discarded until
// a Reporter is set.
func NewEnvironment(info *classfile.Info) Environment {
	return Environment{
		Info:     info,
		Reporter: discard{},
		Stats:    stats.New(),
		Errors:   make(chan error),
	}
}

// Locator is an error with a location in the analysed classes.
type Locator interface {
	Location() string
}

func (env Environment) HandleErrors() {
	logger := log.New(os.Stderr, "ERROR: ", 0)
	for err := range env.Errors {
		if l, ok := err.(Locator); ok {
			logger.Printf("%s: %s", l.Location(), err)
		} else {
			logger.Println(err)
		}
	}
}

type discard struct{}

func (discard) Report(report.Finding) {}
