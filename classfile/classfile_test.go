package classfile_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nickng/trymerge/bytecode/asm"
	"github.com/nickng/trymerge/classfile"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooSrc = `
.class com/example/Foo
.source Foo.java
.method public <init>()V
    aload_0
    invokespecial java/lang/Object.<init>()V
    return
.end method
.method public static greet()Ljava/lang/String;
    .line 4
L0:
    ldc "hello"
    areturn
L1:
    astore_0
    ldc2_w 7
    pop2
    aconst_null
    areturn
    .catch all from L0 to L1 using L1
.end method
.method public abstract todo()V
.end method
`

func parseFoo(t *testing.T) *classfile.Class {
	c, err := classfile.Parse(asm.MustAssemble(fooSrc))
	require.NoError(t, err)
	return c
}

func TestParse(t *testing.T) {
	c := parseFoo(t)
	assert.Equal(t, "com.example.Foo", c.String())
	require.Len(t, c.Methods, 3)
	assert.Nil(t, c.Method("todo", "").Code)
	greet := c.Method("greet", "()Ljava/lang/String;")
	require.NotNil(t, greet)
	assert.Equal(t, "com.example.Foo.greet()Ljava/lang/String;", greet.String())
	require.Len(t, greet.Code.ExceptionTable, 1)
	assert.EqualValues(t, 0, greet.Code.ExceptionTable[0].CatchType)
	assert.Nil(t, c.Method("greet", "()V"))
}

func TestLdcSignature(t *testing.T) {
	c := parseFoo(t)
	code := c.Method("greet", "").Code.Bytecode
	sig, err := c.ConstantPool.LdcSignature(int(code[1]))
	require.NoError(t, err)
	assert.Equal(t, "Ljava/lang/String;", sig)
	assert.Equal(t, `"hello"`, c.ConstantPool.ConstantString(int(code[1])))

	// astore_0 at 3, ldc2_w at 4.
	sig, err = c.ConstantPool.LdcSignature(int(code[5])<<8 | int(code[6]))
	require.NoError(t, err)
	assert.Equal(t, "J", sig)
}

func TestBadConstant(t *testing.T) {
	c := parseFoo(t)
	_, err := c.ConstantPool.ClassName(0)
	assert.Equal(t, classfile.ErrBadConstant{Index: 0, Want: classfile.TagClass}, err)
	_, err = c.ConstantPool.Utf8(len(c.ConstantPool))
	assert.Error(t, err)
	_, _, _, err = c.ConstantPool.MemberRef(1)
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	_, err := classfile.Parse([]byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 52})
	if want, got := classfile.ErrBadMagic, errors.Cause(err); want != got {
		t.Errorf("want %v, got %v", want, got)
	}

	b := asm.MustAssemble(fooSrc)
	for _, n := range []int{2, 9, len(b) / 2, len(b) - 1} {
		_, err := classfile.Parse(b[:n])
		if want, got := classfile.ErrTruncated, errors.Cause(err); want != got {
			t.Errorf("truncated at %d: want %v, got %v", n, want, got)
		}
	}

	bad := append([]byte(nil), b...)
	bad[10] = 2 // first constant pool tag
	_, err = classfile.Parse(bad)
	if want, got := classfile.ErrBadTag, errors.Cause(err); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestFindMethod(t *testing.T) {
	info := &classfile.Info{Classes: []*classfile.Class{parseFoo(t)}}
	tests := []struct {
		path  string
		found bool
	}{
		{`"com/example/Foo".greet`, true},
		{"com.example.Foo.greet", true},
		{"com/example/Foo.greet()Ljava/lang/String;", true},
		{"com/example/Foo.greet()V", false},
		{"com/example/Bar.greet", false},
		{"greet", false},
	}
	for _, test := range tests {
		m := info.FindMethod(test.path)
		if want, got := test.found, m != nil; want != got {
			t.Errorf("FindMethod(%s): want found=%t, got %t", test.path, want, got)
		}
	}
	assert.NotNil(t, info.FindClass("com.example.Foo"))
}

func TestWriteTo(t *testing.T) {
	info := &classfile.Info{Classes: []*classfile.Class{parseFoo(t)}}
	var buf bytes.Buffer
	n, err := info.WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), n)
	out := buf.String()
	assert.Contains(t, out, "# com.example.Foo.greet()Ljava/lang/String;\n")
	assert.Contains(t, out, `     0: ldc #`)
	assert.Contains(t, out, "  catch any [0, 3) -> 3\n")
	assert.Contains(t, out, "  line 4: 0\n")
	assert.False(t, strings.Contains(out, "todo"), "abstract methods are not listed")
}
