// Package trymerge finds adjacent try blocks of JVM methods that catch the
// same exception type and rethrow the same exception type, and could be
// merged into one.
package trymerge

import (
	"io"
	"io/ioutil"

	"github.com/nickng/trymerge/classfile"
	"github.com/nickng/trymerge/prog"
	"github.com/nickng/trymerge/report"
	"github.com/nickng/trymerge/stats"
	"github.com/nickng/trymerge/trymerge/internal/trymerge"
	"github.com/pkg/errors"
)

var ErrEntryNotFound = errors.New("entry class or method not found")

var _ prog.Analyser = (*Detector)(nil)

// Detector is the main analysis entry point.
type Detector struct {
	Env        trymerge.Environment // Analysis environment.
	Info       *classfile.Info      // Loaded classes.
	EntryClass string               // Class or method to analyse, all if empty.

	errWriter io.Writer // Simulator log stream.
	*trymerge.Logger
}

// New returns a new Detector, and uses w for low level logging messages.
func New(info *classfile.Info, w io.Writer) *Detector {
	d := Detector{
		Env:       trymerge.NewEnvironment(info),
		Info:      info,
		errWriter: ioutil.Discard,
		Logger:    newLogger(),
	}
	if w != nil {
		d.errWriter = w
	}
	return &d
}

// SetEntryClass restricts the analysis to a class, or a single method given
// as Class.method or Class.method(desc). It returns ErrEntryNotFound if path
// names no loaded class or method with code, and leaves the entry unchanged.
func (d *Detector) SetEntryClass(path string) error {
	if path != "" && d.Info.FindClass(path) == nil {
		if m := d.Info.FindMethod(path); m == nil || m.Code == nil {
			return errors.Wrap(ErrEntryNotFound, path)
		}
	}
	d.EntryClass = path
	return nil
}

// SetReporter sets the sink of findings.
func (d *Detector) SetReporter(r report.Reporter) {
	if r != nil {
		d.Env.Reporter = r
	}
}

// SetStats sets the statistics store, replacing the detector's own.
func (d *Detector) SetStats(s *stats.Statistics) {
	if s != nil {
		d.Env.Stats = s
	}
}

// Stats returns the statistics recorded by the detector.
func (d *Detector) Stats() *stats.Statistics {
	return d.Env.Stats
}

// Analyse runs the detector over the classes in Info.
func (d *Detector) Analyse() {
	go d.Env.HandleErrors()
	// Sync error ignored. See https://github.com/uber-go/zap/issues/328
	defer d.Logger.Sync()

	cls := trymerge.NewClass(&d.Env)
	cls.SetLogger(d.Logger)
	cls.SetStackLog(d.errWriter)
	if d.EntryClass == "" {
		for _, c := range d.Info.Classes {
			cls.VisitClass(c)
		}
		return
	}
	if c := d.Info.FindClass(d.EntryClass); c != nil {
		cls.VisitClass(c)
		return
	}
	if m := d.Info.FindMethod(d.EntryClass); m != nil && m.Code != nil {
		cls.VisitMethod(m)
		return
	}
	d.Logger.Error(errors.Wrap(ErrEntryNotFound, d.EntryClass))
}

// AddLogFiles extends current Logger and writes additional log to files.
func (d *Detector) AddLogFiles(file ...string) {
	d.Logger = newFileLogger(file...)
}
