package trymerge

import (
	"testing"

	"github.com/nickng/trymerge/bytecode/asm"
	"github.com/nickng/trymerge/classfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(start, end, handler, catch uint16) classfile.ExceptionEntry {
	return classfile.ExceptionEntry{StartPC: start, EndPC: end, HandlerPC: handler, CatchType: catch}
}

func TestBuildRegions(t *testing.T) {
	regions, dropped := BuildRegions([]classfile.ExceptionEntry{
		entry(0, 3, 6, 7),
		entry(16, 19, 22, 7),
		entry(0, 3, 30, 9), // Same range, other type: multi-catch.
		entry(5, 5, 8, 7),  // Empty range.
		entry(0, 19, 40, 0),
	})
	require.Len(t, regions, 3)
	assert.Len(t, dropped, 1)

	assert.Equal(t, 0, regions[0].Start)
	assert.Equal(t, 6, regions[0].Handler, "first registered handler")
	assert.Equal(t, -1, regions[0].HandlerEnd)
	assert.Equal(t, 2, regions[0].CatchTypes.Len())
	assert.Equal(t, 7, regions[0].CatchType())

	assert.Equal(t, 16, regions[1].Start)
	assert.Equal(t, 19, regions[2].End)
	assert.True(t, regions[2].CatchTypes.Has(0))
	for _, r := range regions {
		assert.Equal(t, BeforeTry, r.Phase)
		assert.False(t, r.Thrown.IsKnown())
	}
}

func TestBuildRegionsEmpty(t *testing.T) {
	regions, dropped := BuildRegions(nil)
	assert.Empty(t, regions)
	assert.Empty(t, dropped)
}

func TestSignature(t *testing.T) {
	x := Known("Lp/X;")
	assert.True(t, x.Matches(Known("Lp/X;")))
	assert.False(t, x.Matches(Known("Lp/Y;")))
	assert.False(t, x.Matches(Unknown))
	assert.False(t, Unknown.Matches(Unknown), "unknown never matches")
	assert.Equal(t, "<unknown>", Unknown.String())
}

func TestPhaseString(t *testing.T) {
	if want, got := "in-catch", InCatch.String(); want != got {
		t.Errorf("want %s but got %s", want, got)
	}
	if want, got := "Phase(9)", Phase(9).String(); want != got {
		t.Errorf("want %s but got %s", want, got)
	}
}

// filterClass has a single method declaring IOException; class constants are
// resolved through its pool.
const filterClass = `
.class p/T
.method static f()V
    .throws java/io/IOException
L0:
    nop
L1:
    return
H:
    athrow
    .catch java/io/IOException from L0 to L1 using H
    .catch java/lang/RuntimeException from L1 to H using H
.end method
`

func TestFilter(t *testing.T) {
	c, err := classfile.Parse(asm.MustAssemble(filterClass))
	require.NoError(t, err)
	m := c.Methods[0]
	io := int(m.Code.ExceptionTable[0].CatchType)
	rt := int(m.Code.ExceptionTable[1].CatchType)

	regions, _ := BuildRegions([]classfile.ExceptionEntry{
		entry(0, 1, 9, uint16(rt)),
		entry(0, 1, 9, uint16(io)), // Multi-catch.
		entry(1, 2, 9, 0),          // Finally.
		entry(2, 3, 9, uint16(io)), // Declared.
		entry(3, 4, 9, uint16(rt)),
		entry(4, 5, 9, 999), // Not a class.
		entry(5, 6, 9, uint16(rt)),
	})
	eligible, removed := Filter(regions, m)
	require.Len(t, eligible, 2)
	assert.Equal(t, 3, eligible[0].Start)
	assert.Equal(t, 5, eligible[1].Start)

	var reasons []Reason
	for _, rm := range removed {
		reasons = append(reasons, rm.Reason)
	}
	assert.Equal(t, []Reason{MultipleHandlers, Finally, CatchIsThrown, BadCatchType}, reasons)
	assert.Error(t, removed[3].Err)

	// Without declared exceptions the catch type is not resolved.
	m.Exceptions = nil
	eligible, removed = Filter(regions, m)
	assert.Len(t, eligible, 4)
	assert.Len(t, removed, 2)
}

func TestCompare(t *testing.T) {
	region := func(start, catch int, thrown Signature) *Region {
		r := &Region{Start: start, HandlerEnd: start + 10, Thrown: thrown}
		r.CatchTypes.Insert(catch)
		return r
	}
	x := Known("Lp/X;")
	tests := []struct {
		name    string
		regions []*Region
		want    [][2]int // Start offsets of pairs.
	}{
		{"Empty", nil, nil},
		{"Single", []*Region{region(0, 7, x)}, nil},
		{"Pair", []*Region{region(0, 7, x), region(10, 7, x)}, [][2]int{{0, 10}}},
		{"Other catch type", []*Region{region(0, 7, x), region(10, 8, x)}, nil},
		{"Other thrown", []*Region{region(0, 7, x), region(10, 7, Known("Lp/Y;"))}, nil},
		{"Both unknown", []*Region{region(0, 7, Unknown), region(10, 7, Unknown)}, nil},
		{"Chain", []*Region{region(0, 7, x), region(10, 7, x), region(20, 7, x)}, [][2]int{{0, 10}, {10, 20}}},
		{"Broken chain", []*Region{region(0, 7, x), region(10, 8, x), region(20, 7, x)}, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var got [][2]int
			for _, p := range Compare(test.regions) {
				got = append(got, [2]int{p[0].Start, p[1].Start})
			}
			assert.Equal(t, test.want, got)
		})
	}
}
