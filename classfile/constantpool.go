package classfile

import (
	"fmt"

	"github.com/nickng/trymerge/bytecode"
)

// Tag is a constant pool entry tag, see JVMS §4.4.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

var tagNames = map[Tag]string{
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagInvokeDynamic:      "InvokeDynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Constant is a single constant pool entry. Only the fields relevant to Tag
// are set; Ref1 and Ref2 hold the constant pool references of the entry in
// declaration order (e.g. class and name-and-type of a Methodref).
type Constant struct {
	Tag  Tag
	Str  string // Utf8 value.
	Ref1 uint16
	Ref2 uint16
	Kind uint8 // MethodHandle reference kind.
	Bits uint64
}

// ConstantPool is the constant pool of a class. Index 0 and the slot after
// each Long or Double are unused entries with a zero Tag.
type ConstantPool []Constant

// ErrBadConstant is the error returned when a constant pool index is out of
// range or refers to an entry of an unexpected kind.
type ErrBadConstant struct {
	Index int
	Want  Tag
}

func (e ErrBadConstant) Error() string {
	return fmt.Sprintf("constant pool entry #%d is not a %s", e.Index, e.Want)
}

// Get returns the entry at index i if it has tag want.
func (cp ConstantPool) Get(i int, want Tag) (*Constant, error) {
	if i <= 0 || i >= len(cp) || cp[i].Tag != want {
		return nil, ErrBadConstant{Index: i, Want: want}
	}
	return &cp[i], nil
}

// Utf8 returns the string value of the Utf8 entry at index i.
func (cp ConstantPool) Utf8(i int) (string, error) {
	c, err := cp.Get(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Str, nil
}

// ClassName returns the internal name (e.g. java/io/IOException) of the
// Class entry at index i.
func (cp ConstantPool) ClassName(i int) (string, error) {
	c, err := cp.Get(i, TagClass)
	if err != nil {
		return "", err
	}
	return cp.Utf8(int(c.Ref1))
}

// NameAndType returns the name and descriptor of the NameAndType entry at i.
func (cp ConstantPool) NameAndType(i int) (name, desc string, err error) {
	c, err := cp.Get(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = cp.Utf8(int(c.Ref1)); err != nil {
		return "", "", err
	}
	if desc, err = cp.Utf8(int(c.Ref2)); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// MemberRef returns the owner class, name and descriptor of a Fieldref,
// Methodref or InterfaceMethodref entry.
func (cp ConstantPool) MemberRef(i int) (owner, name, desc string, err error) {
	if i <= 0 || i >= len(cp) {
		return "", "", "", ErrBadConstant{Index: i, Want: TagMethodref}
	}
	c := &cp[i]
	switch c.Tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
	default:
		return "", "", "", ErrBadConstant{Index: i, Want: TagMethodref}
	}
	if owner, err = cp.ClassName(int(c.Ref1)); err != nil {
		return "", "", "", err
	}
	if name, desc, err = cp.NameAndType(int(c.Ref2)); err != nil {
		return "", "", "", err
	}
	return owner, name, desc, nil
}

// DynamicRef returns the name and descriptor of an InvokeDynamic or Dynamic
// entry.
func (cp ConstantPool) DynamicRef(i int) (name, desc string, err error) {
	if i <= 0 || i >= len(cp) || (cp[i].Tag != TagInvokeDynamic && cp[i].Tag != TagDynamic) {
		return "", "", ErrBadConstant{Index: i, Want: TagInvokeDynamic}
	}
	return cp.NameAndType(int(cp[i].Ref2))
}

// LdcSignature returns the type signature of the value pushed by ldc,
// ldc_w or ldc2_w of entry i.
func (cp ConstantPool) LdcSignature(i int) (string, error) {
	if i <= 0 || i >= len(cp) {
		return "", ErrBadConstant{Index: i, Want: TagString}
	}
	switch cp[i].Tag {
	case TagInteger:
		return "I", nil
	case TagFloat:
		return "F", nil
	case TagLong:
		return "J", nil
	case TagDouble:
		return "D", nil
	case TagString:
		return "Ljava/lang/String;", nil
	case TagClass:
		return "Ljava/lang/Class;", nil
	case TagMethodType:
		return "Ljava/lang/invoke/MethodType;", nil
	case TagMethodHandle:
		return "Ljava/lang/invoke/MethodHandle;", nil
	case TagDynamic:
		_, desc, err := cp.DynamicRef(i)
		return desc, err
	}
	return "", ErrBadConstant{Index: i, Want: TagString}
}

// ConstantString renders entry i for listings.
func (cp ConstantPool) ConstantString(i int) string {
	if i <= 0 || i >= len(cp) {
		return "?"
	}
	c := &cp[i]
	switch c.Tag {
	case TagUtf8:
		return c.Str
	case TagClass:
		if name, err := cp.ClassName(i); err == nil {
			return name
		}
	case TagString:
		if s, err := cp.Utf8(int(c.Ref1)); err == nil {
			return fmt.Sprintf("%q", s)
		}
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		if owner, name, desc, err := cp.MemberRef(i); err == nil {
			if c.Tag == TagFieldref {
				return fmt.Sprintf("%s.%s:%s", owner, name, desc)
			}
			return fmt.Sprintf("%s.%s%s", owner, name, desc)
		}
	case TagInvokeDynamic, TagDynamic:
		if name, desc, err := cp.DynamicRef(i); err == nil {
			return fmt.Sprintf("#%d:%s%s", c.Ref1, name, desc)
		}
	case TagInteger:
		return fmt.Sprintf("%d", int32(c.Bits))
	case TagLong:
		return fmt.Sprintf("%dl", int64(c.Bits))
	}
	return c.Tag.String()
}

var _ bytecode.ConstantNamer = ConstantPool(nil)
