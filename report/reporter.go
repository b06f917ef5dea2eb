package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Reporter is a sink for findings.
type Reporter interface {
	Report(f Finding)
}

// Collector keeps findings in memory, in report order.
type Collector struct {
	mu       sync.Mutex
	findings []Finding
}

func (c *Collector) Report(f Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings = append(c.findings, f)
}

// Findings returns a copy of the findings reported so far.
func (c *Collector) Findings() []Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Finding(nil), c.findings...)
}

// Reset discards all findings.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings = nil
}

var (
	prioColor  = color.New(color.FgYellow, color.Bold).SprintFunc()
	typeColor  = color.New(color.FgMagenta).SprintFunc()
	classColor = color.New(color.FgCyan).SprintFunc()
)

// TextReporter writes findings in a human readable form, one finding per
// three lines.
type TextReporter struct {
	mu  sync.Mutex
	w   io.Writer
	Err error // First write error.
}

func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

func (r *TextReporter) Report(f Finding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return
	}
	_, r.Err = fmt.Fprintf(r.w, "%s %s %s.%s\n    %s\n    %s\n",
		prioColor(f.Priority), typeColor(f.Type), classColor(f.Class), f.Method,
		f.Ranges[0], f.Ranges[1])
}

// JSONReporter writes one JSON object per finding and line.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
	Err error // First encoding error.
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

func (r *JSONReporter) Report(f Finding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return
	}
	r.Err = r.enc.Encode(f)
}
