// Package stats records per-method statistics gathered while classes are
// analysed.
package stats

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"sort"
	"strings"
	"sync"
)

// FQMethod is a fully qualified method: internal class name, method name and
// descriptor.
type FQMethod struct {
	Class      string
	Name       string
	Descriptor string
}

func (m FQMethod) String() string {
	return fmt.Sprintf("%s.%s%s", strings.Replace(m.Class, "/", ".", -1), m.Name, m.Descriptor)
}

// MethodInfo is the statistics of one method.
type MethodInfo struct {
	NumBytes       int
	NumMethodCalls int
	DeclaredAccess int
	NumRegions     int // Protected regions built from the exception table.
	NumFindings    int
}

// notFound is returned for methods without statistics. It is shared and must
// not be modified.
var notFound = &MethodInfo{}

// NotFound reports whether mi is the value returned for unknown methods.
func NotFound(mi *MethodInfo) bool { return mi == notFound }

// Statistics is a store of MethodInfo. It is safe for concurrent use.
type Statistics struct {
	mu      sync.Mutex
	methods map[FQMethod]*MethodInfo
	logger  *log.Logger
}

// New returns an empty Statistics.
func New() *Statistics {
	return &Statistics{
		methods: make(map[FQMethod]*MethodInfo),
		logger:  log.New(ioutil.Discard, "stats: ", 0),
	}
}

// SetLog sets debug output stream to w.
func (s *Statistics) SetLog(w io.Writer) {
	if w != nil {
		s.logger.SetOutput(w)
	}
}

// Clear removes all statistics.
func (s *Statistics) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = make(map[FQMethod]*MethodInfo)
}

// AddMethodStatistics records the size, call count and access flags of a
// method, replacing earlier values, and returns a copy of its MethodInfo.
func (s *Statistics) AddMethodStatistics(class, method, desc string, access, numBytes, numMethodCalls int) *MethodInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	mi := s.get(FQMethod{class, method, desc})
	mi.NumBytes = numBytes
	mi.NumMethodCalls = numMethodCalls
	mi.DeclaredAccess = access
	s.logger.Printf("%s.%s%s: %d bytes, %d calls", class, method, desc, numBytes, numMethodCalls)
	cp := *mi
	return &cp
}

// SetRegions sets the number of protected regions of a method.
func (s *Statistics) SetRegions(class, method, desc string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(FQMethod{class, method, desc}).NumRegions = n
}

// SetFindings sets the number of findings of a method.
func (s *Statistics) SetFindings(class, method, desc string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(FQMethod{class, method, desc}).NumFindings = n
}

// get returns the MethodInfo of key, creating it. s.mu must be held.
func (s *Statistics) get(key FQMethod) *MethodInfo {
	mi, ok := s.methods[key]
	if !ok {
		mi = new(MethodInfo)
		s.methods[key] = mi
	}
	return mi
}

// GetMethodStatistics returns a copy of the statistics of a method, or the
// shared not found value (see NotFound) if there are none.
func (s *Statistics) GetMethodStatistics(class, method, desc string) *MethodInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	mi, ok := s.methods[FQMethod{class, method, desc}]
	if !ok {
		return notFound
	}
	cp := *mi
	return &cp
}

// Len returns the number of methods with statistics.
func (s *Statistics) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.methods)
}

// Each calls fn for every method in class, name, descriptor order. fn gets a
// copy of the statistics and must not call back into s.
func (s *Statistics) Each(fn func(FQMethod, MethodInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]FQMethod, 0, len(s.methods))
	for k := range s.methods {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Descriptor < b.Descriptor
	})
	for _, k := range keys {
		fn(k, *s.methods[k])
	}
}

func (s *Statistics) String() string {
	var buf bytes.Buffer
	buf.WriteString("┌─────┄ method: bytes calls regions findings ┄──────\n")
	s.Each(func(m FQMethod, mi MethodInfo) {
		buf.WriteString(fmt.Sprintf("│ %v:\t%d\t%d\t%d\t%d\n",
			m, mi.NumBytes, mi.NumMethodCalls, mi.NumRegions, mi.NumFindings))
	})
	buf.WriteString("└───────────────────────────────────────────────────\n")
	return buf.String()
}
