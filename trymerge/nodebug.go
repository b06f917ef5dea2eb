// +build !debug

package trymerge

import (
	"log"

	"github.com/fatih/color"
	"github.com/nickng/trymerge/trymerge/internal/trymerge"
	"go.uber.org/zap"
)

// newLogger returns a new logger with default options.
func newLogger() *trymerge.Logger {
	color.NoColor = true
	l, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Cannot create new logger:", err)
	}
	return trymerge.NewLogger(l.Sugar())
}

// newFileLogger returns a new logger and also writes the log output to files.
func newFileLogger(files ...string) *trymerge.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = append(cfg.OutputPaths, files...)
	l, err := cfg.Build()
	if err != nil {
		log.Fatal("Cannot create new logger:", err)
	}
	return trymerge.NewLogger(l.Sugar())
}
