package trymerge

import (
	"io"

	"github.com/fatih/color"
	"github.com/nickng/trymerge/class"
	"github.com/nickng/trymerge/classfile"
	"github.com/nickng/trymerge/opstack"
)

var _ class.Analyser = (*Class)(nil)

// Class is a visitor for classes. It visits every method with code with a
// fresh Method visitor; the operand stack simulator is shared and reset for
// each method.
type Class struct {
	env   *Environment
	stack *opstack.Stack
	*Logger
}

func NewClass(env *Environment) *Class {
	return &Class{env: env, stack: opstack.New(), Logger: nopLogger}
}

// VisitClass analyses all methods of cls.
func (c *Class) VisitClass(cls *classfile.Class) {
	c.Logger.Debugf("%s Visit %v (%d methods)", c.Logger.Module(), cls, len(cls.Methods))
	for _, m := range cls.Methods {
		if m.Code == nil {
			continue
		}
		c.VisitMethod(m)
	}
}

// VisitMethod analyses m alone.
func (c *Class) VisitMethod(m *classfile.Method) {
	v := NewMethod(c.env, c.stack)
	v.SetLogger(c.Logger)
	v.EnterMethod(m)
	v.ExitMethod(m)
}

// SetLogger sets logger for Class.
func (c *Class) SetLogger(l *Logger) {
	c.Logger = l.withModule(color.BlueString("class"))
}

// SetStackLog redirects the operand stack simulator log to w.
func (c *Class) SetStackLog(w io.Writer) {
	c.stack.SetLog(w)
}
