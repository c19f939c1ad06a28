package lang_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mascguy/crush-shell/lang"
)

// newControlRoot returns a root scope with just the control commands
// (if/for/break/return) registered, unsealed so tests can declare into it.
func newControlRoot(t *testing.T) *lang.Scope {
	root := lang.NewRootScope()
	require.NoError(t, lang.RegisterControlCommands(root))
	return root
}

// closureOf compiles body into a Command value usable as a "for"/"if"
// argument, defined against scope.
func closureOf(t *testing.T, scope *lang.Scope, body *lang.JobListNode, params ...*lang.ParameterNode) lang.Value {
	t.Helper()
	v, err := lang.ClosureDefinition{Params: params, Body: body}.Eval(scope, nil)
	require.NoError(t, err)
	return v
}

func callCmd(t *testing.T, scope *lang.Scope, path string, args ...lang.ArgumentDefinition) (lang.Value, error) {
	t.Helper()
	cmd, err := scope.GlobalStaticCmd(path)
	require.NoError(t, err)
	inv := &lang.CommandInvocation{
		Callable: lang.LiteralDef{Val: lang.NewCommand(cmd)},
		Args:     args,
	}
	job := &lang.Job{Invocations: []*lang.CommandInvocation{inv}}
	return lang.RunJobWithIO(job, scope, &lang.Globals{}, nil, nil)
}

func literalArg(name string, v lang.Value) lang.ArgumentDefinition {
	sw := lang.Positional
	if name != "" {
		sw = lang.Named
	}
	return lang.ArgumentDefinition{Name: name, Switch: sw, Value: lang.LiteralDef{Val: v}}
}

func emptyJobList() *lang.JobListNode {
	return &lang.JobListNode{}
}

// identJobList builds a single-job body that invokes the bare identifier
// name with no arguments, e.g. "break" or "return".
func identJobList(name string) *lang.JobListNode {
	return &lang.JobListNode{
		Jobs: []*lang.JobNode{
			{Commands: []*lang.CommandNode{
				{Expressions: []lang.Node{&lang.Identifier{Name: name}}},
			}},
		},
	}
}

func TestIfInvokeTrueBranch(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	body := closureOf(t, session, emptyJobList())

	val, err := callCmd(t, session, "if",
		literalArg("", lang.NewBool(true)),
		literalArg("", body),
	)
	require.NoError(t, err)
	require.Equal(t, lang.KEmpty, val.Kind())
}

func TestIfInvokeFalseBranchNoElse(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	body := closureOf(t, session, emptyJobList())

	val, err := callCmd(t, session, "if",
		literalArg("", lang.NewBool(false)),
		literalArg("", body),
	)
	require.NoError(t, err)
	require.Equal(t, lang.KEmpty, val.Kind())
}

// TestIfInvokeFalseBranchRunsElse confirms the else body runs, not the then
// body, when the condition is false. The then body references an unbound
// identifier, which only fails to resolve (ErrLookup) if actually invoked,
// so a nil error proves the else branch ran instead.
func TestIfInvokeFalseBranchRunsElse(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	thenBody := closureOf(t, session, identJobList("no_such_binding"))
	elseBody := closureOf(t, session, emptyJobList())

	val, err := callCmd(t, session, "if",
		literalArg("", lang.NewBool(false)),
		literalArg("", thenBody),
		literalArg("", elseBody),
	)
	require.NoError(t, err)
	require.Equal(t, lang.KEmpty, val.Kind())
}

func TestIfInvokeRequiresBoolCondition(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	body := closureOf(t, session, emptyJobList())

	_, err := callCmd(t, session, "if",
		literalArg("", lang.NewInt(1)),
		literalArg("", body),
	)
	require.Error(t, err)
}

func TestIfInvokeRejectsNonClosureBody(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)

	_, err := callCmd(t, session, "if",
		literalArg("", lang.NewBool(true)),
		literalArg("", lang.NewInt(1)),
	)
	require.Error(t, err)
}

func TestForOverEmptyListRunsBodyZeroTimes(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	body := closureOf(t, session, emptyJobList())
	emptyList := lang.NewList(&lang.List{Elem: lang.AnyType})

	val, err := callCmd(t, session, "for",
		literalArg("i", emptyList),
		literalArg("", body),
	)
	require.NoError(t, err)
	require.Equal(t, lang.KEmpty, val.Kind())
}

func TestForRunsBodyOncePerElementWithoutBreak(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	body := closureOf(t, session, emptyJobList())

	list := lang.NewList(&lang.List{Elem: lang.IntegerType, Vals: []lang.Value{
		lang.NewInt(1), lang.NewInt(2), lang.NewInt(3),
	}})

	val, err := callCmd(t, session, "for",
		literalArg("i", list),
		literalArg("", body),
	)
	require.NoError(t, err)
	require.Equal(t, lang.KEmpty, val.Kind())
}

// TestForBreakStopsIteration builds a body that unconditionally calls
// "break" and confirms the for loop as a whole still succeeds (each
// iteration's loop frame is a fresh child of the closure's defining scope,
// so break on iteration one does not leak into later would-be iterations —
// there are none here to observe, but a non-terminating loop would hang the
// test, so completion itself is the assertion).
func TestForBreakStopsIteration(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	body := closureOf(t, session, identJobList("break"))

	list := lang.NewList(&lang.List{Elem: lang.IntegerType, Vals: []lang.Value{
		lang.NewInt(1), lang.NewInt(2), lang.NewInt(3),
	}})

	val, err := callCmd(t, session, "for",
		literalArg("i", list),
		literalArg("", body),
	)
	require.NoError(t, err)
	require.Equal(t, lang.KEmpty, val.Kind())
}

func TestForRejectsNonIterableStream(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	body := closureOf(t, session, emptyJobList())

	_, err := callCmd(t, session, "for",
		literalArg("i", lang.NewInt(5)),
		literalArg("", body),
	)
	require.Error(t, err)
}

func TestForRequiresExactlyOneIteratorBindingAndBody(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	body := closureOf(t, session, emptyJobList())
	list := lang.NewList(&lang.List{Elem: lang.AnyType})

	_, err := callCmd(t, session, "for", literalArg("i", list))
	require.Error(t, err)

	_, err = callCmd(t, session, "for", literalArg("", body))
	require.Error(t, err)
}

// TestBreakOutsideLoopStopsCallingScope exercises stopNearest's fallback: a
// break with no enclosing loop frame still stops the scope it was invoked
// against, rather than erroring.
func TestBreakOutsideLoopStopsCallingScope(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)

	_, err := callCmd(t, session, "break")
	require.NoError(t, err)
	require.True(t, session.IsStopped())
}

// TestReturnStopsEveryFrameUpToEnclosingFunction confirms return walks past
// nested loop frames, stopping each one, and halts at the first non-loop
// ancestor.
func TestReturnStopsEveryFrameUpToEnclosingFunction(t *testing.T) {
	root := newControlRoot(t)
	fn := root.CreateChild(false)     // the enclosing "function" frame
	outer := fn.CreateChild(true)     // outer loop frame
	inner := outer.CreateChild(true)  // inner loop frame

	_, err := callCmd(t, inner, "return")
	require.NoError(t, err)
	require.True(t, inner.IsStopped())
	require.True(t, outer.IsStopped())
	require.True(t, fn.IsStopped())
}

func TestForClosureWithDeclaredParamBindsItInsteadOfAnonRow(t *testing.T) {
	root := newControlRoot(t)
	session := root.CreateChild(false)
	body := closureOf(t, session, emptyJobList(), &lang.ParameterNode{Name: "x"})

	list := lang.NewList(&lang.List{Elem: lang.IntegerType, Vals: []lang.Value{lang.NewInt(1)}})

	val, err := callCmd(t, session, "for",
		literalArg("i", list),
		literalArg("", body),
	)
	require.NoError(t, err)
	require.Equal(t, lang.KEmpty, val.Kind())
}
