package classfile

import (
	"fmt"
	"io"
	"sort"

	"github.com/nickng/trymerge/bytecode"
)

// classes is slice of *Class. Used only for sorting by name.
type classes []*Class

func (c classes) Len() int           { return len(c) }
func (c classes) Less(i, j int) bool { return c[i].Name < c[j].Name }
func (c classes) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }

// WriteTo writes every method with a body of the loaded classes to w in
// human readable bytecode listing format, sorted by class name.
func (info *Info) WriteTo(w io.Writer) (int64, error) {
	sorted := make(classes, len(info.Classes))
	copy(sorted, info.Classes)
	sort.Sort(sorted)
	var n int64
	for _, c := range sorted {
		for _, m := range c.Methods {
			if m.Code == nil {
				continue
			}
			written, err := m.WriteTo(w)
			n += written
			if err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// WriteTo writes the method's listing, exception table and line table to w.
func (m *Method) WriteTo(w io.Writer) (int64, error) {
	var n int64
	count := func(written int, err error) error {
		n += int64(written)
		return err
	}
	if err := count(fmt.Fprintf(w, "# %s\n", m)); err != nil {
		return n, err
	}
	if len(m.Exceptions) > 0 {
		if err := count(fmt.Fprintf(w, "# throws %v\n", m.Exceptions)); err != nil {
			return n, err
		}
	}
	if m.Code == nil {
		return n, nil
	}
	instrs, err := bytecode.Decode(m.Code.Bytecode)
	if err != nil {
		return n, err
	}
	written, err := bytecode.WriteListing(w, instrs, m.Class.ConstantPool)
	n += written
	if err != nil {
		return n, err
	}
	for _, e := range m.Code.ExceptionTable {
		catch := "any"
		if e.CatchType != 0 {
			catch = m.Class.ConstantPool.ConstantString(int(e.CatchType))
		}
		if err := count(fmt.Fprintf(w, "  catch %s [%d, %d) -> %d\n", catch, e.StartPC, e.EndPC, e.HandlerPC)); err != nil {
			return n, err
		}
	}
	for _, l := range m.Code.LineNumbers {
		if err := count(fmt.Fprintf(w, "  line %d: %d\n", l.Line, l.StartPC)); err != nil {
			return n, err
		}
	}
	return n, nil
}
