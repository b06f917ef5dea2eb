package classfile

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"
)

const magic = 0xcafebabe

var (
	ErrBadMagic  = errors.New("not a class file: bad magic number")
	ErrTruncated = errors.New("truncated class file")
	ErrBadTag    = errors.New("unknown constant pool tag")
)

// Parse reads a class file image.
func Parse(data []byte) (*Class, error) {
	r := &reader{data: data}
	if r.u4() != magic {
		if r.err != nil {
			return nil, r.err
		}
		return nil, ErrBadMagic
	}
	c := new(Class)
	c.MinorVersion = r.u2()
	c.MajorVersion = r.u2()
	cp, err := r.constantPool()
	if err != nil {
		return nil, err
	}
	c.ConstantPool = cp
	c.AccessFlags = r.u2()
	thisClass, superClass := r.u2(), r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if c.Name, err = cp.ClassName(int(thisClass)); err != nil {
		return nil, errors.Wrap(err, "this_class")
	}
	if superClass != 0 {
		if c.SuperName, err = cp.ClassName(int(superClass)); err != nil {
			return nil, errors.Wrap(err, "super_class")
		}
	}
	for i, n := 0, int(r.u2()); i < n; i++ {
		index := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		name, err := cp.ClassName(int(index))
		if err != nil {
			return nil, errors.Wrap(err, "interfaces")
		}
		c.Interfaces = append(c.Interfaces, name)
	}
	// Fields are not analysed.
	for i, n := 0, int(r.u2()); i < n && r.err == nil; i++ {
		r.skip(6)
		r.skipAttributes()
	}
	for i, n := 0, int(r.u2()); i < n && r.err == nil; i++ {
		m, err := r.method(c)
		if err != nil {
			return nil, err
		}
		c.Methods = append(c.Methods, m)
	}
	for i, n := 0, int(r.u2()); i < n && r.err == nil; i++ {
		name, body, err := r.attribute(cp)
		if err != nil {
			return nil, err
		}
		if name == "SourceFile" && len(body) == 2 {
			if c.SourceFile, err = cp.Utf8(int(binary.BigEndian.Uint16(body))); err != nil {
				return nil, errors.Wrap(err, "SourceFile")
			}
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

// reader is a big-endian cursor over a class file image. The first read past
// the end sets err and all subsequent reads return zero.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = errors.Wrapf(ErrTruncated, "reading %d bytes at offset %d", n, r.pos)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) skip(n int) { r.take(n) }

func (r *reader) u1() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u2() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u4() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u8() uint64 {
	if b := r.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *reader) constantPool() (ConstantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	cp := make(ConstantPool, count)
	for i := 1; i < count; i++ {
		c := &cp[i]
		c.Tag = Tag(r.u1())
		switch c.Tag {
		case TagUtf8:
			// Modified UTF-8 differs from UTF-8 only for NUL and
			// supplementary characters, neither of which matter for names.
			c.Str = string(r.take(int(r.u2())))
		case TagInteger, TagFloat:
			c.Bits = uint64(r.u4())
		case TagLong, TagDouble:
			c.Bits = r.u8()
			i++ // Eight-byte constants take two slots.
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.Ref1 = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType,
			TagDynamic, TagInvokeDynamic:
			c.Ref1, c.Ref2 = r.u2(), r.u2()
		case TagMethodHandle:
			c.Kind = r.u1()
			c.Ref1 = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, errors.Wrapf(ErrBadTag, "tag %d at constant pool entry #%d", c.Tag, i)
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	return cp, nil
}

func (r *reader) attribute(cp ConstantPool) (name string, body []byte, err error) {
	nameIndex, length := r.u2(), r.u4()
	if length > math.MaxInt32 {
		r.err = errors.Wrapf(ErrTruncated, "attribute of %d bytes at offset %d", length, r.pos)
	}
	body = r.take(int(length))
	if r.err != nil {
		return "", nil, r.err
	}
	if name, err = cp.Utf8(int(nameIndex)); err != nil {
		return "", nil, errors.Wrap(err, "attribute name")
	}
	return name, body, nil
}

func (r *reader) skipAttributes() {
	for i, n := 0, int(r.u2()); i < n && r.err == nil; i++ {
		r.skip(2)
		length := r.u4()
		if length > math.MaxInt32 {
			r.err = errors.Wrapf(ErrTruncated, "attribute of %d bytes at offset %d", length, r.pos)
			return
		}
		r.skip(int(length))
	}
}

func (r *reader) method(c *Class) (*Method, error) {
	cp := c.ConstantPool
	m := &Method{Class: c, AccessFlags: r.u2()}
	nameIndex, descIndex := r.u2(), r.u2()
	if r.err != nil {
		return nil, r.err
	}
	var err error
	if m.Name, err = cp.Utf8(int(nameIndex)); err != nil {
		return nil, errors.Wrap(err, "method name")
	}
	if m.Descriptor, err = cp.Utf8(int(descIndex)); err != nil {
		return nil, errors.Wrapf(err, "descriptor of %s", m.Name)
	}
	for i, n := 0, int(r.u2()); i < n && r.err == nil; i++ {
		name, body, err := r.attribute(cp)
		if err != nil {
			return nil, err
		}
		switch name {
		case "Code":
			if m.Code, err = parseCode(body, cp); err != nil {
				return nil, errors.Wrapf(err, "Code of %s%s", m.Name, m.Descriptor)
			}
		case "Exceptions":
			if m.Exceptions, err = parseExceptions(body, cp); err != nil {
				return nil, errors.Wrapf(err, "Exceptions of %s%s", m.Name, m.Descriptor)
			}
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

func parseCode(body []byte, cp ConstantPool) (*Code, error) {
	r := &reader{data: body}
	code := &Code{MaxStack: r.u2(), MaxLocals: r.u2()}
	length := r.u4()
	if length > math.MaxInt32 {
		return nil, errors.Wrapf(ErrTruncated, "code of %d bytes", length)
	}
	code.Bytecode = r.take(int(length))
	n := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	code.ExceptionTable = make([]ExceptionEntry, 0, n)
	for i := 0; i < n; i++ {
		code.ExceptionTable = append(code.ExceptionTable, ExceptionEntry{
			StartPC:   r.u2(),
			EndPC:     r.u2(),
			HandlerPC: r.u2(),
			CatchType: r.u2(),
		})
	}
	for i, n := 0, int(r.u2()); i < n && r.err == nil; i++ {
		name, body, err := r.attribute(cp)
		if err != nil {
			return nil, err
		}
		if name != "LineNumberTable" {
			continue
		}
		lr := &reader{data: body}
		for j, m := 0, int(lr.u2()); j < m && lr.err == nil; j++ {
			code.LineNumbers = append(code.LineNumbers, LineNumber{StartPC: lr.u2(), Line: lr.u2()})
		}
		if lr.err != nil {
			return nil, errors.Wrap(lr.err, "LineNumberTable")
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	// Several LineNumberTable attributes may be present, in any order.
	sort.SliceStable(code.LineNumbers, func(i, j int) bool {
		return code.LineNumbers[i].StartPC < code.LineNumbers[j].StartPC
	})
	return code, nil
}

func parseExceptions(body []byte, cp ConstantPool) ([]string, error) {
	r := &reader{data: body}
	n := int(r.u2())
	var names []string
	for i := 0; i < n; i++ {
		index := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		name, err := cp.ClassName(int(index))
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, r.err
}
