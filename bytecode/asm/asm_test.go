package asm_test

import (
	"testing"

	"github.com/nickng/trymerge/bytecode"
	"github.com/nickng/trymerge/bytecode/asm"
	"github.com/nickng/trymerge/classfile"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tryCatchSrc = `
.class com/example/Foo
.source Foo.java
.method public static run(Ljava/lang/String;)V
    .throws java/io/IOException
    .limit stack 3
    .limit locals 2
    .line 5
L0:
    aload_0                                                 ; 0
    invokevirtual java/lang/String.length()I                ; 1
    pop                                                     ; 4
L1:
    goto L3                                                 ; 5
L2:
    .line 7
    astore_1                                                ; 8
    new java/lang/IllegalStateException                     ; 9
    dup                                                     ; 12
    invokespecial java/lang/IllegalStateException.<init>()V ; 13
    athrow                                                  ; 16
L3:
    .line 9
    return                                                  ; 17
    .catch java/lang/RuntimeException from L0 to L1 using L2
.end method
`

func TestAssembleTryCatch(t *testing.T) {
	b, err := asm.Assemble([]byte(tryCatchSrc))
	require.NoError(t, err)
	c, err := classfile.Parse(b)
	require.NoError(t, err)

	assert.Equal(t, "com/example/Foo", c.Name)
	assert.Equal(t, "java/lang/Object", c.SuperName)
	assert.Equal(t, "Foo.java", c.SourceFile)
	require.Len(t, c.Methods, 1)

	m := c.Methods[0]
	assert.Equal(t, "run", m.Name)
	assert.Equal(t, "(Ljava/lang/String;)V", m.Descriptor)
	assert.True(t, m.IsStatic())
	assert.Equal(t, []string{"java/io/IOException"}, m.Exceptions)
	require.NotNil(t, m.Code)
	assert.EqualValues(t, 3, m.Code.MaxStack)
	assert.EqualValues(t, 2, m.Code.MaxLocals)

	require.Len(t, m.Code.ExceptionTable, 1)
	e := m.Code.ExceptionTable[0]
	assert.Equal(t, classfile.ExceptionEntry{StartPC: 0, EndPC: 5, HandlerPC: 8, CatchType: e.CatchType}, e)
	caught, err := c.ConstantPool.ClassName(int(e.CatchType))
	require.NoError(t, err)
	assert.Equal(t, "java/lang/RuntimeException", caught)

	assert.Equal(t, 5, m.Code.LineAt(4))
	assert.Equal(t, 7, m.Code.LineAt(9))
	assert.Equal(t, 9, m.Code.LineAt(17))

	instrs, err := bytecode.Decode(m.Code.Bytecode)
	require.NoError(t, err)
	require.Len(t, instrs, 10)
	assert.Equal(t, bytecode.Goto, instrs[3].Op)
	assert.Equal(t, 17, instrs[3].Target)
	owner, name, desc, err := c.ConstantPool.MemberRef(instrs[1].Index)
	require.NoError(t, err)
	assert.Equal(t, []string{"java/lang/String", "length", "()I"}, []string{owner, name, desc})
}

func TestAssembleSwitchAndWide(t *testing.T) {
	src := `
.class T
.method static s(I)I
    iload_0
    lookupswitch 9:L1 5:L2 default L3
L1:
    iconst_1
    ireturn
L2:
    iconst_2
    ireturn
L3:
    iinc 300 1
    iload 300
    ireturn
.end method
`
	c, err := classfile.Parse(asm.MustAssemble(src))
	require.NoError(t, err)
	instrs, err := bytecode.Decode(c.Methods[0].Code.Bytecode)
	require.NoError(t, err)
	require.Len(t, instrs, 9)

	sw := instrs[1]
	assert.Equal(t, bytecode.Lookupswitch, sw.Op)
	assert.Equal(t, 28, sw.Next)
	assert.Equal(t, []bytecode.SwitchCase{{Match: 5, Target: 30}, {Match: 9, Target: 28}}, sw.Cases)
	assert.Equal(t, 32, sw.Default)

	assert.True(t, instrs[6].Wide)
	assert.Equal(t, bytecode.Iinc, instrs[6].Op)
	assert.Equal(t, 300, instrs[6].Index)
	assert.Equal(t, 1, instrs[6].Const)
	assert.True(t, instrs[7].Wide)
	assert.Equal(t, 300, instrs[7].Index)
	assert.Equal(t, 42, instrs[8].Offset)
}

func TestAssembleInvokeInterfaceCount(t *testing.T) {
	src := `
.class T
.method static add(Ljava/util/List;JLjava/lang/Object;)Z
    aload_0
    lload_1
    aload_3
    invokeinterface java/util/List.put(JLjava/lang/Object;)Z
    ireturn
.end method
`
	c, err := classfile.Parse(asm.MustAssemble(src))
	require.NoError(t, err)
	code := c.Methods[0].Code.Bytecode
	require.Equal(t, byte(bytecode.Invokeinterface), code[3])
	assert.Equal(t, byte(4), code[6]) // receiver, long (2 slots), object
	assert.Equal(t, byte(0), code[7])
}

func TestAssembleAbstract(t *testing.T) {
	src := `
.class public abstract T
.method public abstract f()V
.end method
`
	c, err := classfile.Parse(asm.MustAssemble(src))
	require.NoError(t, err)
	assert.Nil(t, c.Methods[0].Code)
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		src  string
		line int
	}{
		{".class T\n.method static f()V\n    goto L9\n.end method\n", 3},
		{".class T\n.method static f()V\n    frobnicate\n.end method\n", 3},
		{".class T\n    return\n", 2},
		{".class T\n.method static f()V\n    .catch all from L0 L1 using L2\n.end method\n", 3},
		{".class T\n.method static f()V\n    bipush 300\n.end method\n", 3},
		{".class T\n.method static f()V\n    return\n", 0},
		{".class T\n.method static f(Q)V\n.end method\n", 2},
		{".class T\n.method static f()V\nL0:\nL0:\n.end method\n", 4},
	}
	for _, test := range tests {
		_, err := asm.Assemble([]byte(test.src))
		se, ok := errors.Cause(err).(asm.ErrSyntax)
		if !ok {
			t.Errorf("source %q: want ErrSyntax, got %v", test.src, err)
			continue
		}
		if want, got := test.line, se.Line; want != got {
			t.Errorf("source %q: want error on line %d, got %d (%v)", test.src, want, got, se)
		}
	}
}
