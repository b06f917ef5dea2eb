// Package classfile is a library to load and work with JVM class files.
// For most part the package contains the class and method model consumed by
// the analysers, plus helpers to find and list methods.
//
// To populate an Info from class files or jar archives, the 'build'
// subpackage should be used.
//
package classfile

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
)

// Access flags used by the analysers.
const (
	AccStatic   = 0x0008
	AccNative   = 0x0100
	AccAbstract = 0x0400
)

// Info holds the results of a class file build for analysis.
type Info struct {
	IgnoredClasses []string // Record of ignored classes during the build process.

	Classes []*Class // Loaded classes, in load order.

	BldLog io.Writer   // Build log.
	Logger *log.Logger // Build logger.
}

// Class is a parsed class file.
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool ConstantPool
	AccessFlags  uint16
	Name         string // Internal name, e.g. java/lang/Object.
	SuperName    string
	Interfaces   []string
	SourceFile   string // Value of the SourceFile attribute, "" if absent.
	Methods      []*Method
}

func (c *Class) String() string { return strings.Replace(c.Name, "/", ".", -1) }

// Method returns the method with the given name and descriptor. If desc is
// empty the first method named name is returned.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && (desc == "" || m.Descriptor == desc) {
			return m
		}
	}
	return nil
}

// Method is a method of a class.
type Method struct {
	Class       *Class
	AccessFlags uint16
	Name        string
	Descriptor  string
	Exceptions  []string // Declared thrown classes (internal names).
	Code        *Code    // nil for abstract and native methods.
}

func (m *Method) String() string {
	return fmt.Sprintf("%s.%s%s", m.Class, m.Name, m.Descriptor)
}

// IsStatic returns true if the method has no receiver.
func (m *Method) IsStatic() bool { return m.AccessFlags&AccStatic != 0 }

// Throws returns true if the internal class name is in the method's
// declared throws clause.
func (m *Method) Throws(name string) bool {
	for _, e := range m.Exceptions {
		if e == name {
			return true
		}
	}
	return false
}

// Code is the Code attribute of a method.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytecode       []byte
	ExceptionTable []ExceptionEntry
	LineNumbers    []LineNumber // Sorted by StartPC.
}

// ExceptionEntry is a row of the exception table. A CatchType of 0 marks a
// catch-all (finally) handler.
type ExceptionEntry struct {
	StartPC   uint16
	EndPC     uint16 // Exclusive.
	HandlerPC uint16
	CatchType uint16
}

// LineNumber maps the first bytecode offset of a line to a source line.
type LineNumber struct {
	StartPC uint16
	Line    uint16
}

// LineAt returns the source line of the instruction at pc, or 0 if the
// method carries no line number information covering pc.
func (c *Code) LineAt(pc int) int {
	i := sort.Search(len(c.LineNumbers), func(i int) bool {
		return int(c.LineNumbers[i].StartPC) > pc
	})
	if i == 0 {
		return 0
	}
	return int(c.LineNumbers[i-1].Line)
}
