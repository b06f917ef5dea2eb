package trymerge

import (
	"github.com/fatih/color"
	"github.com/nickng/trymerge/bytecode"
	"github.com/nickng/trymerge/classfile"
	"github.com/nickng/trymerge/fn"
	"github.com/nickng/trymerge/opstack"
	"github.com/nickng/trymerge/report"
)

var _ fn.Analyser = (*Method)(nil)

// Method is a visitor for a single method. A new Method is created for each
// method so no region state outlives the method it belongs to.
type Method struct {
	Env   *Environment
	Stack *opstack.Stack // Shared simulator, reset on entry.

	Regions  []*Region // All regions built from the exception table.
	Eligible []*Region // Regions that survived filtering and the scan.
	Pairs    []Pair

	*Logger
}

func NewMethod(env *Environment, stack *opstack.Stack) *Method {
	return &Method{Env: env, Stack: stack, Logger: nopLogger}
}

// EnterMethod analyses the code of m and reports every mergeable pair of try
// blocks.
func (v *Method) EnterMethod(m *classfile.Method) {
	if m.Code == nil {
		v.Env.Errors <- MethodError{Method: m, Err: ErrNoCode}
		return
	}
	instrs, err := bytecode.Decode(m.Code.Bytecode)
	if err != nil {
		v.Env.Errors <- MethodError{Method: m, Err: err}
		return
	}
	v.Env.Stats.AddMethodStatistics(m.Class.Name, m.Name, m.Descriptor,
		int(m.AccessFlags), len(m.Code.Bytecode), countCalls(instrs))

	var dropped []classfile.ExceptionEntry
	v.Regions, dropped = BuildRegions(m.Code.ExceptionTable)
	for _, e := range dropped {
		v.Logger.Debugf("%s %v: drop exception entry [%d, %d) -> %d",
			v.Logger.Module(), m, e.StartPC, e.EndPC, e.HandlerPC)
	}
	v.Env.Stats.SetRegions(m.Class.Name, m.Name, m.Descriptor, len(v.Regions))

	eligible, removed := Filter(v.Regions, m)
	for _, rm := range removed {
		if rm.Err != nil {
			v.Logger.Infof("%s %v: region %v: %v", v.Logger.Module(), m, rm.Region, rm.Err)
			continue
		}
		v.Logger.Debugf("%s %v: region %v: %s", v.Logger.Module(), m, rm.Region, rm.Reason)
	}
	if len(eligible) < 2 {
		v.Eligible = eligible
		return
	}

	v.Stack.ResetForMethodEntry(m.Class, m)
	scan := NewInstruction(m, v.Stack, eligible)
	scan.SetLogger(v.Logger)
	for i := range instrs {
		scan.VisitInstr(&instrs[i])
	}
	v.Eligible = scan.Eligible

	v.Pairs = Compare(v.Eligible)
	for _, p := range v.Pairs {
		v.Env.Reporter.Report(report.NewStackedTryBlocks(m,
			[2]int{p[0].Start, p[0].HandlerEnd}, [2]int{p[1].Start, p[1].HandlerEnd}))
	}
	v.Env.Stats.SetFindings(m.Class.Name, m.Name, m.Descriptor, len(v.Pairs))
	if len(v.Pairs) > 0 {
		v.Logger.Infof("%s %v: %d stacked try blocks", v.Logger.Module(), m, len(v.Pairs))
	}
}

// ExitMethod releases the regions of m.
func (v *Method) ExitMethod(m *classfile.Method) {
	v.Regions, v.Eligible, v.Pairs = nil, nil, nil
}

// SetLogger sets logger for Method.
func (v *Method) SetLogger(l *Logger) {
	v.Logger = l.withModule(color.GreenString("meth "))
}

func countCalls(instrs []bytecode.Instruction) int {
	n := 0
	for i := range instrs {
		if bytecode.Invokevirtual <= instrs[i].Op && instrs[i].Op <= bytecode.Invokedynamic {
			n++
		}
	}
	return n
}
