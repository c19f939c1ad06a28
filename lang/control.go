package lang

import (
	"io"

	"github.com/mascguy/crush-shell/symbol"
)

// RegisterControlCommands installs "if", "for", "break", and "return" into
// ns. These live in package lang, rather than a stdcmd subpackage, because
// the iteration driver (for) needs to run a closure's body against a scope
// it controls directly — the per-iteration loop frame of spec §4.6 — which
// requires ClosureCommand's unexported fields (defScope, params, body).
// Grounded on the teacher's control flow, which is built into the AST
// evaluator itself (gql/ast.go's ASTCondOp and the block-statement walker in
// gql/eval.go) rather than exposed as ordinary callables; generalized here
// into the uniform Command interface so "if"/"for" compose with pipes and
// user-defined commands exactly like any other invocation (spec §4.6/§6).
func RegisterControlCommands(ns *Scope) error {
	if err := RegisterBuiltinCommand(ns, "if", true, nil,
		"evaluate a body conditionally", ifLongHelp, ifInvoke); err != nil {
		return err
	}
	if err := RegisterBuiltinCommand(ns, "for", true, nil,
		"iterate a stream, list, or dict", forLongHelp, forInvoke); err != nil {
		return err
	}
	if err := RegisterBuiltinCommand(ns, "break", false, nil,
		"stop the nearest enclosing loop", "", breakInvoke); err != nil {
		return err
	}
	if err := RegisterBuiltinCommand(ns, "return", false, nil,
		"stop the current closure", "", returnInvoke); err != nil {
		return err
	}
	return RegisterGlobalVarCommands(ns)
}

// RegisterGlobalVarCommands installs "global:var:set" and "global:var:let",
// the builtins compile.go's compileSpecialAssignment synthesizes for "="
// and ":=" in command position against a bare identifier target (spec
// §4.4). Declared here, alongside if/for/break/return, rather than in a
// stdcmd subpackage: like those, these two are never written directly by a
// script author, only emitted by the compiler, so they belong with the
// rest of the special-command family the compiler assumes is always
// present on the root.
func RegisterGlobalVarCommands(root *Scope) error {
	global := root.CreateChild(false)
	varNS := global.CreateChild(false)
	if err := RegisterBuiltinCommand(varNS, "set", false, nil,
		"assign to the nearest existing binding of the named variable", "", varSetInvoke); err != nil {
		return err
	}
	if err := RegisterBuiltinCommand(varNS, "let", false, nil,
		"declare the named variable in the current function frame", "", varLetInvoke); err != nil {
		return err
	}
	if err := global.Declare(symbol.Intern("var"), NewScopeValue(varNS)); err != nil {
		return err
	}
	return root.Declare(symbol.Intern("global"), NewScopeValue(global))
}

// varSetInvoke backs "global:var:set", compiled from "name = value" (spec
// §4.4). The compiler always supplies exactly one named argument, the
// target identifier's name bound to the assigned value.
func varSetInvoke(ctx *Context) error {
	name, val, err := soleNamedArg("global:var:set", ctx)
	if err != nil {
		return err
	}
	return ctx.Scope.Set(symbol.Intern(name), val)
}

// varLetInvoke backs "global:var:let", compiled from "name := value".
func varLetInvoke(ctx *Context) error {
	name, val, err := soleNamedArg("global:var:let", ctx)
	if err != nil {
		return err
	}
	return ctx.Scope.Let(symbol.Intern(name), val)
}

func soleNamedArg(cmdName string, ctx *Context) (string, Value, error) {
	if len(ctx.Arguments) != 1 || ctx.Arguments[0].Name == "" {
		return "", Value{}, newShellErr(ErrArgument, nil, "%s: expected exactly one named argument", cmdName)
	}
	return ctx.Arguments[0].Name, ctx.Arguments[0].Val, nil
}

const ifLongHelp = `if condition body [else_body]

condition must be a Bool. If true, body (a closure) is invoked with no
arguments; if false and else_body is given, it is invoked instead.`

func ifInvoke(ctx *Context) error {
	pos := ctx.Positional()
	if len(pos) < 2 || len(pos) > 3 {
		return newShellErr(ErrArgument, nil, "if requires a condition and a body, with an optional else body")
	}
	if pos[0].Kind() != KBool {
		return newShellErr(ErrType, nil, "if condition must be a bool, got %s", pos[0].Kind())
	}
	var branch Value
	switch {
	case pos[0].Bool():
		branch = pos[1]
	case len(pos) == 3:
		branch = pos[2]
	default:
		return nil
	}
	if branch.Kind() != KCommand {
		return newShellErr(ErrType, nil, "if body must be a closure")
	}
	cmd := branch.Command()
	bctx := &Context{Scope: ctx.Scope, Input: ctx.Input, Output: ctx.Output, Globals: ctx.Globals}
	return InvokeCommand(cmd, bctx)
}

const forLongHelp = `for name=stream body

stream must be a List, Dict, or TableStream. body is a closure invoked once
per element, in a fresh loop-frame child scope of body's defining scope,
with the element bound to body's first parameter (or to the iterator
binding's name if body declares none). A "break" inside body ends the loop after forwarding at most one
pending output value from that iteration; a "return" ends the loop and
propagates outward exactly like break from for's perspective.`

// rowSource yields successive (row, schema) pairs from a stream-like value.
// schema is nil for a List, whose elements are bound directly (a single
// unnamed column); otherwise it names each bound struct field, per spec
// §4.6: "if the stream has a single column, bind name to that column's
// value; otherwise bind name to a Struct."
type rowSource func() (row []Value, ok bool, err error)

func iterSource(v Value) (rowSource, []ColumnType, error) {
	switch v.Kind() {
	case KList:
		l := v.List()
		i := 0
		return func() ([]Value, bool, error) {
			if i >= len(l.Vals) {
				return nil, false, nil
			}
			row := []Value{l.Vals[i]}
			i++
			return row, true, nil
		}, nil, nil
	case KDict:
		d := v.Dict()
		var keys, vals []Value
		d.Each(func(k, val Value) { keys = append(keys, k); vals = append(vals, val) })
		schema := []ColumnType{{Name: symbol.Key, Type: d.Key}, {Name: symbol.Value, Type: d.Val}}
		i := 0
		return func() ([]Value, bool, error) {
			if i >= len(keys) {
				return nil, false, nil
			}
			row := []Value{keys[i], vals[i]}
			i++
			return row, true, nil
		}, schema, nil
	case KTableStream:
		r := v.TableStreamReceiver()
		schema := r.Schema()
		return func() ([]Value, bool, error) {
			row, err := r.RecvRow()
			if err == io.EOF {
				return nil, false, nil
			}
			if err != nil {
				if IsClosedRemote(err) {
					return nil, false, nil
				}
				return nil, false, err
			}
			return row, true, nil
		}, schema, nil
	default:
		return nil, nil, newShellErr(ErrType, nil, "for requires a List, Dict, or TableStream, got %s", v.Kind())
	}
}

func rowToValue(row []Value, schema []ColumnType) Value {
	if schema == nil {
		return row[0]
	}
	if len(schema) == 1 {
		return row[0]
	}
	return NewStruct(&StructRow{Schema: append([]ColumnType(nil), schema...), Vals: append([]Value(nil), row...)})
}

func forInvoke(ctx *Context) error {
	// Exactly one named argument (the iterator binding, name=stream) and
	// exactly one positional argument (the closure body) — spec §4.6
	// "validate exactly two arguments supplied and exactly one iterator
	// binding."
	var (
		varName   string
		streamVal Value
		bodyVal   Value
		haveIter  bool
		haveBody  bool
	)
	for _, a := range ctx.Arguments {
		if a.Name != "" {
			if haveIter {
				return newShellErr(ErrArgument, nil, "for accepts exactly one named iterator binding")
			}
			haveIter = true
			varName = a.Name
			streamVal = a.Val
		} else {
			if haveBody {
				return newShellErr(ErrArgument, nil, "for accepts exactly one closure body")
			}
			haveBody = true
			bodyVal = a.Val
		}
	}
	if !haveIter || !haveBody {
		return newShellErr(ErrArgument, nil, "for requires exactly one named iterator binding and one closure body")
	}
	if bodyVal.Kind() != KCommand {
		return newShellErr(ErrType, nil, "for body must be a closure")
	}
	body, ok := bodyVal.Command().(*ClosureCommand)
	if !ok {
		return newShellErr(ErrType, nil, "for body must be a user-defined closure")
	}

	next, schema, err := iterSource(streamVal)
	if err != nil {
		return err
	}

	paramName := varName
	if len(body.params) > 0 {
		paramName = body.params[0].Name
	} else if paramName == "" {
		paramName = symbol.AnonRowName
	}
	paramSym := symbol.Intern(paramName)

	for {
		row, ok, err := next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		arg := rowToValue(row, schema)

		// Create a child scope of the body's defining scope, marked as a
		// loop frame, and bind the element to it (spec §4.6).
		child := body.defScope.CreateChild(true)
		if err := child.Declare(paramSym, arg); err != nil {
			return err
		}

		jobs, err := Compile(body.body, child)
		if err != nil {
			return err
		}
		localSender, localReceiver := NewPipe(pipeBufSize, nil)
		var runErr error
		for _, j := range jobs {
			if _, err := RunJobWithIO(j, child, ctx.Globals, nil, localSender); err != nil {
				runErr = err
				break
			}
		}
		localSender.Close()

		pending, recvErr := localReceiver.Recv()
		stopped := child.IsStopped()
		if stopped {
			// Forward exactly one pending message from the local receiver to
			// the job-level output, then terminate the loop (spec §4.6).
			if recvErr == nil && ctx.Output != nil {
				if sendErr := ctx.Output.Send(pending); sendErr != nil && !IsClosedRemote(sendErr) {
					return sendErr
				}
			}
		}
		if runErr != nil {
			return runErr
		}
		if stopped {
			return nil
		}
		// Not stopped: the one message drained above (if any) is discarded,
		// and iteration continues.
	}
}

// breakInvoke stops the nearest enclosing loop frame, reachable by walking
// up from the calling scope (spec §4.6: "the stopped flag... unwinds the
// iteration driver").
func breakInvoke(ctx *Context) error {
	return stopNearest(ctx.Scope, true)
}

// returnInvoke stops every frame from the calling scope up to and including
// the nearest enclosing non-loop (function) frame, so a return inside one or
// more nested for bodies is observed by each enclosing for's own stopped
// check as well as by the closure invocation itself.
func returnInvoke(ctx *Context) error {
	frame := ctx.Scope
	for frame != nil {
		frame.Stop()
		if !frame.isLoop {
			return nil
		}
		frame = frame.parent
	}
	return nil
}

func stopNearest(s *Scope, loopOnly bool) error {
	frame := s
	for frame != nil {
		if loopOnly && frame.isLoop {
			frame.Stop()
			return nil
		}
		if !loopOnly && !frame.isLoop {
			frame.Stop()
			return nil
		}
		frame = frame.parent
	}
	// No matching frame found (e.g. break outside any loop): stop the
	// calling scope itself so execution still unwinds rather than silently
	// continuing.
	s.Stop()
	return nil
}
