package trymerge

import (
	"testing"

	"github.com/nickng/trymerge/bytecode"
	"github.com/nickng/trymerge/bytecode/asm"
	"github.com/nickng/trymerge/classfile"
	"github.com/nickng/trymerge/opstack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scan runs the instruction visitor over the first method of src and returns
// it with all regions built from the exception table.
func scan(t *testing.T, src string) (*Instruction, []*Region) {
	c, err := classfile.Parse(asm.MustAssemble(src))
	require.NoError(t, err)
	m := c.Methods[0]
	instrs, err := bytecode.Decode(m.Code.Bytecode)
	require.NoError(t, err)

	regions, _ := BuildRegions(m.Code.ExceptionTable)
	eligible, _ := Filter(regions, m)
	stack := opstack.New()
	stack.ResetForMethodEntry(c, m)
	v := NewInstruction(m, stack, append([]*Region(nil), eligible...))
	for i := range instrs {
		v.VisitInstr(&instrs[i])
	}
	return v, regions
}

// rethrowCause wraps the exception in local 1 and throws it.
const rethrowCause = `
    new p/AppException
    dup
    aload_1
    invokespecial p/AppException.<init>(Ljava/lang/Throwable;)V
    athrow
`

const rethrow = "\n    astore_1" + rethrowCause

// twoBlocks wraps the body of the first handler between a try block and a
// second, well formed, block.
func twoBlocks(handler string) string {
	return twoBlocksReturning("V", handler)
}

// twoBlocksReturning is twoBlocks in a method with return type ret. The
// second try block computes the result, so the code still ends with a single
// return instruction.
func twoBlocksReturning(ret, handler string) string {
	tail := "return"
	if ret != "V" {
		tail = "areturn"
	}
	return `
.class p/T
.method static f()` + ret + `
L0:
    invokestatic p/T.a()V
L1:
    goto A1
H1:
` + handler + `
A1:
    invokestatic p/T.b()` + ret + `
L2:
    goto A2
H2:
` + rethrow + `
A2:
    ` + tail + `
    .catch p/AppException from L0 to L1 using H1
    .catch p/AppException from A1 to L2 using H2
.end method
`
}

func TestScanStacked(t *testing.T) {
	v, regions := scan(t, twoBlocks(rethrow))
	require.Len(t, regions, 2)
	r1, r2 := regions[0], regions[1]

	assert.Equal(t, []*Region{r1, r2}, v.Eligible)
	assert.Equal(t, 16, r1.HandlerEnd)
	assert.Equal(t, 32, r2.HandlerEnd)
	assert.Equal(t, Known("Lp/AppException;"), r1.Thrown)
	assert.Equal(t, Known("Lp/AppException;"), r2.Thrown)

	// The first region is left active, under the second.
	assert.Equal(t, InCatch, r1.Phase)
	assert.Equal(t, After, r2.Phase)
	assert.Equal(t, []*Region{r1}, v.Active)
}

func TestScanHandler(t *testing.T) {
	const object = "Ljava/lang/Object;"
	tests := []struct {
		name     string
		ret      string // Return type of the method, V if empty.
		handler  string
		eligible bool
		thrown   Signature
	}{
		{"Rethrow caught", "", "astore_1\naload_1\nathrow", true, Known("Lp/AppException;")},
		{"Raise on empty stack", "", "pop\nathrow", false, Unknown},
		{"Conditional branch", "", "astore_1\niconst_0\nifeq A1\naload_1\nathrow", false, Unknown},
		{"Reference compare", "", "astore_1\naload_1\naconst_null\nif_acmpeq A1\naload_1\nathrow", false, Unknown},
		{"Null check", "", "astore_1\naload_1\nifnull N\nN:\naload_1\nathrow", true, Known("Lp/AppException;")},
		{"Non-null check", "", "astore_1\naload_1\nifnonnull N\nN:\n" + rethrowCause, true, Known("Lp/AppException;")},
		{"Return", "", "pop\nreturn", false, Unknown},
		{"Return value", object, "pop\naconst_null\nareturn", false, Unknown},
		{"Rethrow from value method", object, "astore_1\naload_1\nathrow", true, Known("Lp/AppException;")},
		{"Goto", "", "pop\ngoto A1", false, Unknown},
		{"Wide goto", "", "pop\ngoto_w A1", false, Unknown},
		{"Subroutine", "", "astore_1\njsr S\naload_1\nathrow\nS:\nastore_2\naload_1\nathrow", false, Unknown},
		{"Subroutine return", "", "astore_1\naload_1\nastore_2\nret 2", false, Unknown},
		{"Wide subroutine", "", "astore_1\njsr_w S\naload_1\nathrow\nS:\nastore_2\naload_1\nathrow", true, Known("Lp/AppException;")},
		{"Switch", "", "astore_1\niconst_0\ntableswitch 0 S0 default S0\nS0:\naload_1\nathrow", true, Known("Lp/AppException;")},
		{"Fall through", "", "pop", true, Unknown},
		{"Cast result", "", "pop\ninvokestatic p/T.ex()Ljava/lang/Object;\ncheckcast p/Wrapped\nathrow", true, Known("Lp/Wrapped;")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ret := test.ret
			if ret == "" {
				ret = "V"
			}
			v, regions := scan(t, twoBlocksReturning(ret, test.handler))
			r1 := regions[0]
			eligible := len(v.Eligible) == 2 && v.Eligible[0] == r1
			if test.eligible != eligible {
				t.Fatalf("want eligible=%t but got %t (%v)", test.eligible, eligible, v.Eligible)
			}
			assert.Equal(t, test.thrown, r1.Thrown)
			if !test.eligible {
				for _, r := range v.Active {
					assert.NotEqual(t, r1, r, "disqualified region must not stay active")
				}
			}
		})
	}
}

// A null check in a handler does not leave it, the blocks still merge.
func TestScanNullCheckMerges(t *testing.T) {
	v, regions := scan(t, twoBlocks("astore_1\naload_1\nifnonnull N\nN:\n"+rethrowCause))
	require.Len(t, regions, 2)
	assert.Equal(t, regions, v.Eligible)
	pairs := Compare(v.Eligible)
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{regions[0], regions[1]}, pairs[0])
}

// A try range that falls into its own handler without a goto is dropped.
func TestScanTryWithoutGoto(t *testing.T) {
	v, regions := scan(t, `
.class p/T
.method static f()I
L0:
    iconst_1
    ireturn
H1:
    pop
    iconst_0
    ireturn
    .catch p/AppException from L0 to H1 using H1
.end method
`)
	require.Len(t, regions, 1)
	assert.Empty(t, v.Eligible)
	assert.Empty(t, v.Active)
	assert.Equal(t, InTry, regions[0].Phase)
}

// Only the first region starting at an offset is entered.
func TestScanSameStart(t *testing.T) {
	v, regions := scan(t, `
.class p/T
.method static f()V
L0:
    invokestatic p/T.a()V
L1:
    goto A1
H1:
    astore_1
    aload_1
    athrow
L2:
    goto A1
H2:
    astore_1
    aload_1
    athrow
A1:
    return
    .catch p/AppException from L0 to L1 using H1
    .catch p/OtherException from L0 to L2 using H2
.end method
`)
	require.Len(t, regions, 2)
	assert.Equal(t, BeforeTry, regions[1].Phase)
	assert.Equal(t, Unknown, regions[1].Thrown)

	// The goto at L2 leaves the handler of the first region.
	assert.Equal(t, Known("Lp/AppException;"), regions[0].Thrown)
	assert.Equal(t, []*Region{regions[1]}, v.Eligible)
}
