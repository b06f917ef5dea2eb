// Package report defines the findings produced by the detector and the sinks
// they are written to.
package report

import (
	"fmt"

	"github.com/nickng/trymerge/classfile"
	"github.com/pkg/errors"
)

// StackedTryBlocks is the code of a finding pairing two adjacent try blocks
// that catch and throw the same exception types.
const StackedTryBlocks = "STB_STACKED_TRY_BLOCKS"

// Priority is the severity of a finding.
type Priority int

const (
	High Priority = iota + 1
	Normal
	Low
)

var priorityNames = map[Priority]string{
	High:   "HIGH",
	Normal: "NORMAL",
	Low:    "LOW",
}

var ErrBadPriority = errors.New("unknown priority")

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	for prio, name := range priorityNames {
		if name == string(text) {
			*p = prio
			return nil
		}
	}
	return errors.Wrapf(ErrBadPriority, "%q", text)
}

// SourceRange is a range of bytecode offsets of a method and the source
// lines it covers. Lines are 0 when the class carries no line numbers; EndPC
// is -1 when the end of the range is unknown.
type SourceRange struct {
	SourceFile string `json:"sourceFile,omitempty"`
	StartPC    int    `json:"startPC"`
	EndPC      int    `json:"endPC"`
	StartLine  int    `json:"startLine,omitempty"`
	EndLine    int    `json:"endLine,omitempty"`
}

// NewSourceRange returns the range [start, end] of m, with lines resolved
// from its line number table.
func NewSourceRange(m *classfile.Method, start, end int) SourceRange {
	r := SourceRange{
		SourceFile: m.Class.SourceFile,
		StartPC:    start,
		EndPC:      end,
	}
	if m.Code != nil {
		r.StartLine = m.Code.LineAt(start)
		if end >= 0 {
			r.EndLine = m.Code.LineAt(end)
		}
	}
	return r
}

func (r SourceRange) String() string {
	end := "?"
	if r.EndPC >= 0 {
		end = fmt.Sprint(r.EndPC)
	}
	if r.StartLine == 0 {
		return fmt.Sprintf("pc %d-%s", r.StartPC, end)
	}
	file := r.SourceFile
	if file == "" {
		file = "<unknown>"
	}
	if r.EndLine == 0 || r.EndLine == r.StartLine {
		return fmt.Sprintf("%s:%d (pc %d-%s)", file, r.StartLine, r.StartPC, end)
	}
	return fmt.Sprintf("%s:%d-%d (pc %d-%s)", file, r.StartLine, r.EndLine, r.StartPC, end)
}

// Finding is a single detector result.
type Finding struct {
	Type     string         `json:"type"`
	Priority Priority       `json:"priority"`
	Class    string         `json:"class"`  // Dotted class name.
	Method   string         `json:"method"` // Name and descriptor.
	Ranges   [2]SourceRange `json:"ranges"`
}

// NewStackedTryBlocks returns the finding for two mergeable try blocks of m,
// given as [start, end] offset pairs.
func NewStackedTryBlocks(m *classfile.Method, first, second [2]int) Finding {
	return Finding{
		Type:     StackedTryBlocks,
		Priority: Normal,
		Class:    m.Class.String(),
		Method:   m.Name + m.Descriptor,
		Ranges: [2]SourceRange{
			NewSourceRange(m, first[0], first[1]),
			NewSourceRange(m, second[0], second[1]),
		},
	}
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s %s.%s: %s and %s",
		f.Priority, f.Type, f.Class, f.Method, f.Ranges[0], f.Ranges[1])
}
