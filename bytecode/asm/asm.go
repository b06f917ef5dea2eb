// Package asm assembles a small Jasmin-like text format into class files.
//
// A source describes exactly one class:
//
//	.class com/example/Foo
//	.super java/lang/Object
//	.source Foo.java
//	.method public static run()V
//	    .throws java/io/IOException
//	    .limit stack 2
//	    .line 3
//	L0:
//	    invokestatic com/example/Foo.work()V
//	L1:
//	    return
//	L2:
//	    astore_0
//	    return
//	    .catch java/lang/Exception from L0 to L1 using L2
//	.end method
//
// Field and method references are written Owner.name desc and
// Owner.name(desc) respectively. A ';' at the start of a token begins a
// comment, so descriptors need no quoting.
package asm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nickng/trymerge/bytecode"
	"github.com/pkg/errors"
)

const (
	majorVersion     = 52
	defaultMaxStack  = 16
	defaultMaxLocals = 16
)

var errPoolFull = errors.New("constant pool overflow")

// ErrSyntax is the error returned for malformed assembler source.
type ErrSyntax struct {
	Line int
	Msg  string
}

func (e ErrSyntax) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func syntaxf(line int, format string, args ...interface{}) error {
	return ErrSyntax{Line: line, Msg: fmt.Sprintf(format, args...)}
}

var accessFlags = map[string]uint16{
	"public":       0x0001,
	"private":      0x0002,
	"protected":    0x0004,
	"static":       0x0008,
	"final":        0x0010,
	"synchronized": 0x0020,
	"super":        0x0020,
	"native":       0x0100,
	"interface":    0x0200,
	"abstract":     0x0400,
}

var arrayTypes = map[string]int{
	"boolean": 4,
	"char":    5,
	"float":   6,
	"double":  7,
	"byte":    8,
	"short":   9,
	"int":     10,
	"long":    11,
}

type class struct {
	pool    *pool
	access  uint16
	name    string
	super   string
	source  string
	methods []*method
}

type method struct {
	access    uint16
	name      string
	desc      string
	throws    []string
	maxStack  int
	maxLocals int
	items     []*item
	labels    map[string]int
	catches   []catch
	lines     []lineEntry
	size      int
}

type catch struct {
	line            int
	typ             string
	from, to, using string
}

type lineEntry struct {
	pc, line int
}

// item is an assembled instruction awaiting label resolution.
type item struct {
	line    int
	offset  int
	size    int
	op      bytecode.Op
	wide    bool
	index   int
	konst   int
	label   string
	low     int32
	matches []int32
	labels  []string
	dflt    string
}

// Assemble translates source into a class file image.
func Assemble(src []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			if r != errPoolFull {
				panic(r)
			}
			err = errPoolFull
		}
	}()
	c := &class{pool: newPool(), access: 0x0021, super: "java/lang/Object"}
	var m *method
	for n, text := range strings.Split(string(src), "\n") {
		line := n + 1
		toks, err := tokenize(text)
		if err != nil {
			return nil, syntaxf(line, "%v", err)
		}
		for len(toks) > 0 && strings.HasSuffix(toks[0], ":") {
			if m == nil {
				return nil, syntaxf(line, "label %s outside method", toks[0])
			}
			name := strings.TrimSuffix(toks[0], ":")
			if _, dup := m.labels[name]; dup {
				return nil, syntaxf(line, "label %s redefined", name)
			}
			m.labels[name] = m.size
			toks = toks[1:]
		}
		if len(toks) == 0 {
			continue
		}
		directive := toks[0]
		if m == nil && directive != ".class" && directive != ".super" && directive != ".source" && directive != ".method" {
			return nil, syntaxf(line, "%s outside method", directive)
		}
		switch directive {
		case ".class":
			if len(toks) < 2 {
				return nil, syntaxf(line, ".class needs a name")
			}
			if c.name != "" {
				return nil, syntaxf(line, "only one .class per source")
			}
			c.name = toks[len(toks)-1]
			if len(toks) > 2 {
				access, err := parseAccess(line, toks[1:len(toks)-1])
				if err != nil {
					return nil, err
				}
				c.access = access | 0x0020
			}
		case ".super":
			if len(toks) != 2 {
				return nil, syntaxf(line, ".super needs a name")
			}
			c.super = toks[1]
		case ".source":
			if len(toks) != 2 {
				return nil, syntaxf(line, ".source needs a file name")
			}
			c.source = toks[1]
		case ".method":
			if m != nil {
				return nil, syntaxf(line, "nested .method")
			}
			if m, err = parseMethod(line, toks[1:]); err != nil {
				return nil, err
			}
		case ".end":
			if len(toks) != 2 || toks[1] != "method" {
				return nil, syntaxf(line, "expected .end method")
			}
			c.methods = append(c.methods, m)
			m = nil
		case ".throws":
			if len(toks) < 2 {
				return nil, syntaxf(line, ".throws needs a class name")
			}
			m.throws = append(m.throws, toks[1:]...)
		case ".limit":
			if len(toks) != 3 {
				return nil, syntaxf(line, "expected .limit stack|locals N")
			}
			v, err := strconv.ParseUint(toks[2], 0, 16)
			if err != nil {
				return nil, syntaxf(line, "bad limit %s", toks[2])
			}
			switch toks[1] {
			case "stack":
				m.maxStack = int(v)
			case "locals":
				m.maxLocals = int(v)
			default:
				return nil, syntaxf(line, "unknown limit %s", toks[1])
			}
		case ".line":
			if len(toks) != 2 {
				return nil, syntaxf(line, ".line needs a line number")
			}
			v, err := strconv.ParseUint(toks[1], 10, 16)
			if err != nil {
				return nil, syntaxf(line, "bad line number %s", toks[1])
			}
			m.lines = append(m.lines, lineEntry{pc: m.size, line: int(v)})
		case ".catch":
			if len(toks) != 8 || toks[2] != "from" || toks[4] != "to" || toks[6] != "using" {
				return nil, syntaxf(line, "expected .catch <class|all> from L to L using L")
			}
			m.catches = append(m.catches, catch{line: line, typ: toks[1], from: toks[3], to: toks[5], using: toks[7]})
		default:
			if strings.HasPrefix(directive, ".") {
				return nil, syntaxf(line, "unknown directive %s", directive)
			}
			if err := m.instr(c.pool, line, toks); err != nil {
				return nil, err
			}
		}
	}
	if m != nil {
		return nil, syntaxf(0, "missing .end method for %s", m.name)
	}
	if c.name == "" {
		return nil, syntaxf(0, "missing .class")
	}
	return c.encode()
}

// MustAssemble is like Assemble but panics on error.
func MustAssemble(src string) []byte {
	b, err := Assemble([]byte(src))
	if err != nil {
		panic(err)
	}
	return b
}

func parseAccess(line int, words []string) (uint16, error) {
	var access uint16
	for _, w := range words {
		flag, ok := accessFlags[w]
		if !ok {
			return 0, syntaxf(line, "unknown access flag %s", w)
		}
		access |= flag
	}
	return access, nil
}

func parseMethod(line int, toks []string) (*method, error) {
	if len(toks) == 0 {
		return nil, syntaxf(line, ".method needs a name and descriptor")
	}
	access, err := parseAccess(line, toks[:len(toks)-1])
	if err != nil {
		return nil, err
	}
	sig := toks[len(toks)-1]
	i := strings.IndexByte(sig, '(')
	if i <= 0 {
		return nil, syntaxf(line, "bad method signature %s", sig)
	}
	if _, _, err := bytecode.ParseMethodDescriptor(sig[i:]); err != nil {
		return nil, syntaxf(line, "%v", err)
	}
	return &method{
		access:    access,
		name:      sig[:i],
		desc:      sig[i:],
		maxStack:  defaultMaxStack,
		maxLocals: defaultMaxLocals,
		labels:    make(map[string]int),
	}, nil
}

// tokenize splits a line on blanks. Quoted strings are single tokens and
// keep their quotes.
func tokenize(text string) ([]string, error) {
	var toks []string
	for i := 0; i < len(text); {
		switch c := text[i]; {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == ';':
			return toks, nil
		case c == '"':
			j := i + 1
			for ; j < len(text) && text[j] != '"'; j++ {
				if text[j] == '\\' {
					j++
				}
			}
			if j >= len(text) {
				return nil, errors.New("unterminated string")
			}
			toks = append(toks, text[i:j+1])
			i = j + 1
		default:
			j := i
			for j < len(text) && text[j] != ' ' && text[j] != '\t' && text[j] != '\r' {
				j++
			}
			toks = append(toks, text[i:j])
			i = j
		}
	}
	return toks, nil
}

func isLocalOp(op bytecode.Op) bool {
	return bytecode.Iload <= op && op <= bytecode.Aload ||
		bytecode.Istore <= op && op <= bytecode.Astore ||
		op == bytecode.Ret
}

// padding is the number of bytes between a switch opcode at offset and its
// four-byte aligned operands.
func padding(offset int) int {
	return (4 - (offset+1)%4) % 4
}

// splitMember splits Owner.name at the last dot.
func splitMember(line int, s string) (owner, name string, err error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return "", "", syntaxf(line, "bad member reference %s", s)
	}
	return s[:i], s[i+1:], nil
}

func (m *method) instr(p *pool, line int, toks []string) error {
	op, ok := bytecode.Lookup(toks[0])
	if !ok {
		return syntaxf(line, "unknown instruction %s", toks[0])
	}
	it := &item{line: line, offset: m.size, op: op, index: -1}
	args := toks[1:]
	want := func(n int) error {
		if len(args) != n {
			return syntaxf(line, "%s takes %d operands, got %d", op, n, len(args))
		}
		return nil
	}
	integer := func(s string, bits int) (int, error) {
		v, err := strconv.ParseInt(s, 0, bits)
		if err != nil {
			return 0, syntaxf(line, "bad operand %s for %s", s, op)
		}
		return int(v), nil
	}
	switch {
	case op == bytecode.Tableswitch, op == bytecode.Lookupswitch:
		if len(args) < 2 || args[len(args)-2] != "default" {
			return syntaxf(line, "%s needs a default label", op)
		}
		it.dflt = args[len(args)-1]
		cases := args[:len(args)-2]
		if op == bytecode.Tableswitch {
			if len(cases) < 1 {
				return syntaxf(line, "tableswitch needs a low value")
			}
			low, err := integer(cases[0], 32)
			if err != nil {
				return err
			}
			it.low = int32(low)
			it.labels = cases[1:]
			it.size = 1 + padding(m.size) + 12 + 4*len(it.labels)
			break
		}
		for _, c := range cases {
			k, label, ok := strings.Cut(c, ":")
			if !ok {
				return syntaxf(line, "expected match:label, got %s", c)
			}
			v, err := integer(k, 32)
			if err != nil {
				return err
			}
			it.matches = append(it.matches, int32(v))
			it.labels = append(it.labels, label)
		}
		sort.Sort(byMatch{it})
		it.size = 1 + padding(m.size) + 8 + 8*len(it.labels)
	case op.IsBranch():
		if err := want(1); err != nil {
			return err
		}
		it.label = args[0]
	case op == bytecode.Bipush, op == bytecode.Sipush:
		if err := want(1); err != nil {
			return err
		}
		bits := 8
		if op == bytecode.Sipush {
			bits = 16
		}
		v, err := integer(args[0], bits)
		if err != nil {
			return err
		}
		it.konst = v
	case op == bytecode.Newarray:
		if err := want(1); err != nil {
			return err
		}
		t, ok := arrayTypes[args[0]]
		if !ok {
			return syntaxf(line, "unknown array type %s", args[0])
		}
		it.konst = t
	case op == bytecode.Iinc:
		if err := want(2); err != nil {
			return err
		}
		local, err := integer(args[0], 17)
		if err != nil || local < 0 {
			return syntaxf(line, "bad local %s", args[0])
		}
		v, err := integer(args[1], 16)
		if err != nil {
			return err
		}
		it.index, it.konst = local, v
		it.wide = local > 255 || v < -128 || v > 127
	case isLocalOp(op):
		if err := want(1); err != nil {
			return err
		}
		local, err := integer(args[0], 17)
		if err != nil || local < 0 {
			return syntaxf(line, "bad local %s", args[0])
		}
		it.index = local
		it.wide = local > 255
	case op == bytecode.Ldc, op == bytecode.LdcW:
		if err := want(1); err != nil {
			return err
		}
		if strings.HasPrefix(args[0], `"`) {
			s, err := strconv.Unquote(args[0])
			if err != nil {
				return syntaxf(line, "bad string %s", args[0])
			}
			it.index = int(p.str(s))
		} else if v, err := strconv.ParseInt(args[0], 0, 32); err == nil {
			it.index = int(p.integer(int32(v)))
		} else {
			it.index = int(p.class(args[0]))
		}
		if it.index > 255 {
			it.op = bytecode.LdcW
		}
	case op == bytecode.Ldc2W:
		if err := want(1); err != nil {
			return err
		}
		v, err := strconv.ParseInt(args[0], 0, 64)
		if err != nil {
			return syntaxf(line, "bad long %s", args[0])
		}
		it.index = int(p.long(v))
	case bytecode.Getstatic <= op && op <= bytecode.Putfield:
		if err := want(2); err != nil {
			return err
		}
		owner, name, err := splitMember(line, args[0])
		if err != nil {
			return err
		}
		it.index = int(p.member(tagFieldref, owner, name, args[1]))
	case bytecode.Invokevirtual <= op && op <= bytecode.Invokedynamic:
		if err := want(1); err != nil {
			return err
		}
		i := strings.IndexByte(args[0], '(')
		if i <= 0 {
			return syntaxf(line, "bad method reference %s", args[0])
		}
		desc := args[0][i:]
		params, _, err := bytecode.ParseMethodDescriptor(desc)
		if err != nil {
			return syntaxf(line, "%v", err)
		}
		if op == bytecode.Invokedynamic {
			it.index = int(p.invokeDynamic(args[0][:i], desc))
			break
		}
		owner, name, err := splitMember(line, args[0][:i])
		if err != nil {
			return err
		}
		tag := uint8(tagMethodref)
		if op == bytecode.Invokeinterface {
			tag = tagInterfaceMethodref
			it.konst = 1
			for _, param := range params {
				it.konst++
				if bytecode.IsWide(param) {
					it.konst++
				}
			}
		}
		it.index = int(p.member(tag, owner, name, desc))
	case op == bytecode.New, op == bytecode.Anewarray, op == bytecode.Checkcast, op == bytecode.Instanceof:
		if err := want(1); err != nil {
			return err
		}
		it.index = int(p.class(args[0]))
	case op == bytecode.Multianewarray:
		if err := want(2); err != nil {
			return err
		}
		dims, err := integer(args[1], 9)
		if err != nil || dims < 1 || dims > 255 {
			return syntaxf(line, "bad dimensions %s", args[1])
		}
		it.index, it.konst = int(p.class(args[0])), dims
	default:
		if n, ok := op.OperandLen(); !ok || n != 0 {
			return syntaxf(line, "%s cannot be written directly", op)
		}
		if err := want(0); err != nil {
			return err
		}
	}
	if it.size == 0 {
		switch {
		case it.wide && it.op == bytecode.Iinc:
			it.size = 6
		case it.wide:
			it.size = 4
		default:
			n, _ := it.op.OperandLen()
			it.size = 1 + n
		}
	}
	m.items = append(m.items, it)
	m.size += it.size
	return nil
}

// byMatch sorts lookupswitch pairs by match value.
type byMatch struct{ *item }

func (s byMatch) Len() int           { return len(s.matches) }
func (s byMatch) Less(i, j int) bool { return s.matches[i] < s.matches[j] }
func (s byMatch) Swap(i, j int) {
	s.matches[i], s.matches[j] = s.matches[j], s.matches[i]
	s.labels[i], s.labels[j] = s.labels[j], s.labels[i]
}

func (m *method) resolve(line int, label string) (int, error) {
	pc, ok := m.labels[label]
	if !ok {
		return 0, syntaxf(line, "undefined label %s", label)
	}
	return pc, nil
}

// code encodes the method's instructions, resolving labels.
func (m *method) code() ([]byte, error) {
	var w writer
	rel := func(it *item, label string) (int, error) {
		pc, err := m.resolve(it.line, label)
		return pc - it.offset, err
	}
	for _, it := range m.items {
		if it.wide {
			w.u8(uint8(bytecode.Wide))
			w.u8(uint8(it.op))
			w.u16(uint16(it.index))
			if it.op == bytecode.Iinc {
				w.u16(uint16(int16(it.konst)))
			}
			continue
		}
		w.u8(uint8(it.op))
		switch {
		case it.op == bytecode.Tableswitch, it.op == bytecode.Lookupswitch:
			for i := padding(it.offset); i > 0; i-- {
				w.u8(0)
			}
			d, err := rel(it, it.dflt)
			if err != nil {
				return nil, err
			}
			w.u32(uint32(int32(d)))
			if it.op == bytecode.Tableswitch {
				w.u32(uint32(it.low))
				w.u32(uint32(it.low + int32(len(it.labels)) - 1))
			} else {
				w.u32(uint32(len(it.labels)))
			}
			for i, label := range it.labels {
				if it.op == bytecode.Lookupswitch {
					w.u32(uint32(it.matches[i]))
				}
				d, err := rel(it, label)
				if err != nil {
					return nil, err
				}
				w.u32(uint32(int32(d)))
			}
		case it.op.IsBranch():
			d, err := rel(it, it.label)
			if err != nil {
				return nil, err
			}
			if it.op == bytecode.GotoW || it.op == bytecode.JsrW {
				w.u32(uint32(int32(d)))
				break
			}
			if d < -32768 || d > 32767 {
				return nil, syntaxf(it.line, "branch to %s out of range, use %s_w", it.label, it.op)
			}
			w.u16(uint16(int16(d)))
		case it.op == bytecode.Bipush, it.op == bytecode.Newarray:
			w.u8(uint8(it.konst))
		case it.op == bytecode.Sipush:
			w.u16(uint16(it.konst))
		case it.op == bytecode.Iinc:
			w.u8(uint8(it.index))
			w.u8(uint8(int8(it.konst)))
		case isLocalOp(it.op), it.op == bytecode.Ldc:
			w.u8(uint8(it.index))
		case it.op == bytecode.Invokeinterface:
			w.u16(uint16(it.index))
			w.u8(uint8(it.konst))
			w.u8(0)
		case it.op == bytecode.Invokedynamic:
			w.u16(uint16(it.index))
			w.u16(0)
		case it.op == bytecode.Multianewarray:
			w.u16(uint16(it.index))
			w.u8(uint8(it.konst))
		case it.index >= 0:
			w.u16(uint16(it.index))
		}
	}
	return w.buf.Bytes(), nil
}

type attribute struct {
	name uint16
	body []byte
}

func (m *method) encode(p *pool, w *writer) error {
	w.u16(m.access)
	w.u16(p.utf8(m.name))
	w.u16(p.utf8(m.desc))
	var attrs []attribute
	if m.access&(accessFlags["native"]|accessFlags["abstract"]) == 0 {
		body, err := m.codeAttribute(p)
		if err != nil {
			return errors.Wrapf(err, "method %s%s", m.name, m.desc)
		}
		attrs = append(attrs, attribute{name: p.utf8("Code"), body: body})
	}
	if len(m.throws) > 0 {
		var b writer
		b.u16(uint16(len(m.throws)))
		for _, t := range m.throws {
			b.u16(p.class(t))
		}
		attrs = append(attrs, attribute{name: p.utf8("Exceptions"), body: b.buf.Bytes()})
	}
	writeAttributes(w, attrs)
	return nil
}

func (m *method) codeAttribute(p *pool) ([]byte, error) {
	code, err := m.code()
	if err != nil {
		return nil, err
	}
	var w writer
	w.u16(uint16(m.maxStack))
	w.u16(uint16(m.maxLocals))
	w.u32(uint32(len(code)))
	w.raw(code)
	w.u16(uint16(len(m.catches)))
	for _, c := range m.catches {
		var pcs [3]int
		for i, label := range []string{c.from, c.to, c.using} {
			if pcs[i], err = m.resolve(c.line, label); err != nil {
				return nil, err
			}
		}
		w.u16(uint16(pcs[0]))
		w.u16(uint16(pcs[1]))
		w.u16(uint16(pcs[2]))
		if c.typ == "all" {
			w.u16(0)
		} else {
			w.u16(p.class(c.typ))
		}
	}
	var attrs []attribute
	if len(m.lines) > 0 {
		var b writer
		b.u16(uint16(len(m.lines)))
		for _, l := range m.lines {
			b.u16(uint16(l.pc))
			b.u16(uint16(l.line))
		}
		attrs = append(attrs, attribute{name: p.utf8("LineNumberTable"), body: b.buf.Bytes()})
	}
	writeAttributes(&w, attrs)
	return w.buf.Bytes(), nil
}

func writeAttributes(w *writer, attrs []attribute) {
	w.u16(uint16(len(attrs)))
	for _, a := range attrs {
		w.u16(a.name)
		w.u32(uint32(len(a.body)))
		w.raw(a.body)
	}
}

func (c *class) encode() ([]byte, error) {
	var body writer
	body.u16(c.access)
	body.u16(c.pool.class(c.name))
	body.u16(c.pool.class(c.super))
	body.u16(0) // interfaces
	body.u16(0) // fields
	body.u16(uint16(len(c.methods)))
	for _, m := range c.methods {
		if err := m.encode(c.pool, &body); err != nil {
			return nil, err
		}
	}
	var attrs []attribute
	if c.source != "" {
		var b writer
		b.u16(c.pool.utf8(c.source))
		attrs = append(attrs, attribute{name: c.pool.utf8("SourceFile"), body: b.buf.Bytes()})
	}
	writeAttributes(&body, attrs)

	var out writer
	out.u32(0xcafebabe)
	out.u16(0)
	out.u16(majorVersion)
	c.pool.writeTo(&out)
	out.raw(body.buf.Bytes())
	return out.buf.Bytes(), nil
}
