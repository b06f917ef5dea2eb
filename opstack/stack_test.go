package opstack_test

import (
	"testing"

	"github.com/nickng/trymerge/bytecode"
	"github.com/nickng/trymerge/bytecode/asm"
	"github.com/nickng/trymerge/classfile"
	"github.com/nickng/trymerge/opstack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state struct {
	depth int
	top   string
}

// trace simulates the first method of src and returns the stack state seen
// before each instruction, keyed by offset.
func trace(t *testing.T, src string) map[int]state {
	c, err := classfile.Parse(asm.MustAssemble(src))
	require.NoError(t, err)
	m := c.Methods[0]
	instrs, err := bytecode.Decode(m.Code.Bytecode)
	require.NoError(t, err)

	s := opstack.New()
	s.ResetForMethodEntry(c, m)
	states := make(map[int]state)
	for i := range instrs {
		top, _ := s.Signature(0)
		states[instrs[i].Offset] = state{depth: s.Depth(), top: top}
		s.Saw(&instrs[i])
	}
	return states
}

func TestConstructedThrow(t *testing.T) {
	states := trace(t, `
.class T
.method static f()V
    new java/lang/IllegalStateException                      ; 0
    dup                                                      ; 3
    ldc "boom"                                               ; 4
    invokespecial java/lang/IllegalStateException.<init>(Ljava/lang/String;)V ; 6
    athrow                                                   ; 9
.end method
`)
	assert.Equal(t, state{3, "Ljava/lang/String;"}, states[6])
	assert.Equal(t, state{1, "Ljava/lang/IllegalStateException;"}, states[9])
}

func TestHandlerEntry(t *testing.T) {
	states := trace(t, `
.class T
.method static f()V
L0:
    invokestatic T.g()V        ; 0
L1:
    return                     ; 3
L2:
    astore_0                   ; 4
    aload_0                    ; 5
    athrow                     ; 6
L3:
    athrow                     ; 7
L4:
    athrow                     ; 8
    .catch java/io/IOException from L0 to L1 using L2
    .catch all from L0 to L1 using L3
    .catch java/io/IOException from L0 to L1 using L4
    .catch java/lang/RuntimeException from L0 to L1 using L4
.end method
.method static g()V
    return
.end method
`)
	assert.Equal(t, state{1, "Ljava/io/IOException;"}, states[4])
	assert.Equal(t, state{0, ""}, states[5])
	assert.Equal(t, state{1, "Ljava/io/IOException;"}, states[6], "local keeps the caught type")
	assert.Equal(t, state{1, opstack.ThrowableSig}, states[7])
	assert.Equal(t, state{1, opstack.ThrowableSig}, states[8], "mixed handler")
}

func TestForwardBranchState(t *testing.T) {
	states := trace(t, `
.class T
.method static f(ILjava/lang/String;)Ljava/lang/Object;
    aload_1                    ; 0
    iload_0                    ; 1
    ifeq L1                    ; 2
    pop                        ; 5
    aconst_null                ; 6
    areturn                    ; 7
L1:
    areturn                    ; 8
.end method
`)
	assert.Equal(t, state{2, "I"}, states[2])
	assert.Equal(t, state{1, "Ljava/lang/String;"}, states[5])
	assert.Equal(t, state{1, opstack.NullSig}, states[7])
	assert.Equal(t, state{1, "Ljava/lang/String;"}, states[8])
}

func TestUnconditionalTransferWithoutTarget(t *testing.T) {
	states := trace(t, `
.class T
.method static f()Ljava/lang/Object;
    aconst_null                ; 0
    goto L1                    ; 1
    iconst_0                   ; 4
    pop                        ; 5
    aconst_null                ; 6
L1:
    areturn                    ; 7
.end method
`)
	assert.Equal(t, state{0, ""}, states[4], "unreachable code starts empty")
	assert.Equal(t, state{1, opstack.NullSig}, states[7])
}

func TestCategoryTwoValues(t *testing.T) {
	states := trace(t, `
.class T
.method static f(JLjava/lang/Object;)V
    lconst_0                   ; 0
    dup2                       ; 1
    pop2                       ; 2
    pop2                       ; 3
    lload_0                    ; 4
    aload_2                    ; 5
    dup_x2                     ; 6
    pop                        ; 7
    return                     ; 8
.end method
`)
	assert.Equal(t, state{1, "J"}, states[1])
	assert.Equal(t, state{2, "J"}, states[2])
	assert.Equal(t, state{1, "J"}, states[3])
	assert.Equal(t, state{0, ""}, states[4])
	assert.Equal(t, state{3, "Ljava/lang/Object;"}, states[7])
}

func TestSignatureDepth(t *testing.T) {
	c, err := classfile.Parse(asm.MustAssemble(`
.class T
.method f(D)V
    aload_0
    dload_1
    getstatic T.x [I
    return
.end method
`))
	require.NoError(t, err)
	m := c.Methods[0]
	instrs, err := bytecode.Decode(m.Code.Bytecode)
	require.NoError(t, err)
	s := opstack.New()
	s.ResetForMethodEntry(c, m)
	for i := 0; i < 3; i++ {
		s.Saw(&instrs[i])
	}
	require.Equal(t, 3, s.Depth())
	for depth, want := range []string{"[I", "D", "LT;"} {
		sig, ok := s.Signature(depth)
		assert.True(t, ok)
		assert.Equal(t, want, sig)
	}
	_, ok := s.Signature(3)
	assert.False(t, ok)

	// A new method starts from scratch.
	s.ResetForMethodEntry(c, m)
	assert.Equal(t, 0, s.Depth())
}

func TestInvokeResult(t *testing.T) {
	states := trace(t, `
.class T
.method static f(Ljava/util/List;)V
    aload_0                                         ; 0
    iconst_0                                        ; 1
    invokeinterface java/util/List.get(I)Ljava/lang/Object; ; 2
    checkcast java/lang/RuntimeException            ; 7
    athrow                                          ; 10
.end method
`)
	assert.Equal(t, state{1, "Ljava/lang/Object;"}, states[7])
	assert.Equal(t, state{1, "Ljava/lang/RuntimeException;"}, states[10])
}
