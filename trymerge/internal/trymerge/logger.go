package trymerge

import "go.uber.org/zap"

// Logger encapsulates a Logger and module which it belongs to.
// Use this through SetLogger() of visitor.
type Logger struct {
	*zap.SugaredLogger
	module string
}

// NewLogger wraps l for use by the visitors.
func NewLogger(l *zap.SugaredLogger) *Logger {
	return &Logger{SugaredLogger: l}
}

var nopLogger = NewLogger(zap.NewNop().Sugar())

type LogSetter interface {
	SetLogger(*Logger)
}

// Module returns (stylised) module name.
func (l *Logger) Module() string {
	return l.module
}

// withModule returns a Logger sharing the output of l, tagged with module.
func (l *Logger) withModule(module string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger, module: module}
}
