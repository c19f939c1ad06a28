package lang

import (
	"strings"

	"github.com/mascguy/crush-shell/symbol"
)

// SwitchStyle distinguishes how an ArgumentDefinition was written at the
// call site (spec §3: "(optional name, SwitchStyle, ValueDefinition)").
type SwitchStyle int

const (
	// Positional is a plain, unnamed argument.
	Positional SwitchStyle = iota
	// Named is a "name=value" argument.
	Named
	// ListSplat is a "@value" argument: splice value's elements as
	// positional arguments at call time.
	ListSplat
	// DictSplat is a "@@value" argument: splice value (a Dict) as named
	// arguments at call time.
	DictSplat
)

// ValueDefinition is the compiled, not-yet-evaluated form of an argument's
// value: either a literal Value, an identifier to look up, an attribute
// path, or a nested job definition (spec §3).
type ValueDefinition interface {
	// Eval resolves the definition against scope, producing a runtime
	// Value. g is required only for definitions that must run a nested job
	// (Substitution, Closure invocation via $(...)).
	Eval(scope *Scope, g *Globals) (Value, error)
	Pos() Location
}

// LiteralDef wraps an already-constructed Value (spec: "Value(v, location)").
type LiteralDef struct {
	Val Value
	Loc Location
}

func (d LiteralDef) Eval(*Scope, *Globals) (Value, error) { return d.Val, nil }
func (d LiteralDef) Pos() Location                        { return d.Loc }

// IdentifierDef resolves a variable by name against the scope at eval time.
type IdentifierDef struct {
	Name TrackedString
}

func (d IdentifierDef) Eval(scope *Scope, _ *Globals) (Value, error) {
	return scope.Get(symbol.Intern(d.Name.Text))
}
func (d IdentifierDef) Pos() Location { return d.Name.Loc }

// GetAttrDef resolves inner, then looks up Name among its fields.
type GetAttrDef struct {
	Inner ValueDefinition
	Name  TrackedString
}

func (d GetAttrDef) Eval(scope *Scope, g *Globals) (Value, error) {
	base, err := d.Inner.Eval(scope, g)
	if err != nil {
		return Value{}, err
	}
	return getAttr(base, d.Name.Text)
}
func (d GetAttrDef) Pos() Location { return d.Inner.Pos().Union(d.Name.Loc) }

func getAttr(base Value, name string) (Value, error) {
	switch base.Kind() {
	case KStruct:
		row := base.Struct()
		if name == "__setattr__" {
			return structSetAttr(row), nil
		}
		if v, ok := row.Get(symbol.Intern(name)); ok {
			return v, nil
		}
	case KList:
		switch name {
		case "__getitem__":
			return listGetItem(base.List()), nil
		case "__setitem__":
			return listSetItem(base.List()), nil
		}
	case KDict:
		switch name {
		case "__getitem__":
			return dictGetItem(base.Dict()), nil
		case "__setitem__":
			return dictSetItem(base.Dict()), nil
		}
	case KScope:
		if v, err := base.Scope().Get(symbol.Intern(name)); err == nil {
			return v, nil
		}
	case KType:
		for _, f := range base.TypeValue().Fields() {
			if f.Name.Str() == name {
				return NewTypeValue(f.Type), nil
			}
		}
	}
	return Value{}, newShellErr(ErrType, nil, "no field %q on value of type %s", name, base.Kind())
}

// JobDefinition compiles a substitution ($(...)) into the job it will run.
type JobDefinition struct {
	J   *Job
	Loc Location
}

func (d JobDefinition) Eval(scope *Scope, g *Globals) (Value, error) {
	return RunJobCapture(d.J, scope, g)
}
func (d JobDefinition) Pos() Location { return d.Loc }

// ClosureDefinition compiles a closure literal; Name, if non-nil, is
// propagated from an enclosing named-argument assignment (spec §4.4:
// "if the value is a closure literal without a declared name, its name
// becomes the target").
type ClosureDefinition struct {
	Name   *string
	Params []*ParameterNode
	Body   *JobListNode
	Loc    Location
}

func (d ClosureDefinition) Eval(scope *Scope, _ *Globals) (Value, error) {
	params := make([]Param, len(d.Params))
	for i, p := range d.Params {
		compiled, err := p.Generate(scope)
		if err != nil {
			return Value{}, err
		}
		params[i] = compiled
	}
	name := ""
	if d.Name != nil {
		name = *d.Name
	}
	return NewCommand(&ClosureCommand{
		name: name, params: params, body: d.Body, defScope: scope,
	}), nil
}
func (d ClosureDefinition) Pos() Location { return d.Loc }

// ArgumentDefinition is the compiled, unevaluated form of a call argument.
type ArgumentDefinition struct {
	Name   string // "" for positional
	Switch SwitchStyle
	Value  ValueDefinition
}

// Job is the compiled form of a JobNode: an ordered pipeline of
// CommandInvocations.
type Job struct {
	Invocations []*CommandInvocation
	Loc         Location
}

// CommandInvocation is the compiled form of a CommandNode: a callable
// definition plus its compiled arguments (spec §3).
type CommandInvocation struct {
	Callable ValueDefinition
	Args     []ArgumentDefinition
	Loc      Location
}

// Compile turns a JobListNode (e.g. a closure body, or a whole script) into
// a slice of compiled Jobs.
func Compile(jl *JobListNode, scope *Scope) ([]*Job, error) {
	jobs := make([]*Job, len(jl.Jobs))
	for i, jn := range jl.Jobs {
		j, err := compileJob(jn, scope)
		if err != nil {
			return nil, err
		}
		jobs[i] = j
	}
	return jobs, nil
}

func compileJob(jn *JobNode, scope *Scope) (*Job, error) {
	invs := make([]*CommandInvocation, len(jn.Commands))
	for i, cn := range jn.Commands {
		inv, err := compileCommand(cn, scope)
		if err != nil {
			return nil, err
		}
		invs[i] = inv
	}
	return &Job{Invocations: invs, Loc: jn.Loc}, nil
}

// compileCommand compiles a single CommandNode, recognizing the special
// command forms of spec §4.4 (an Assignment as the sole expression of the
// command).
func compileCommand(cn *CommandNode, scope *Scope) (*CommandInvocation, error) {
	if len(cn.Expressions) == 1 {
		if asn, ok := cn.Expressions[0].(*Assignment); ok {
			return compileSpecialAssignment(asn, scope)
		}
	}
	if len(cn.Expressions) == 0 {
		return nil, newShellErr(ErrParse, cn, "empty command")
	}
	callable, err := compileCommandPositionExpr(cn.Expressions[0], scope)
	if err != nil {
		return nil, err
	}
	args := make([]ArgumentDefinition, 0, len(cn.Expressions)-1)
	for _, e := range cn.Expressions[1:] {
		arg, err := compileArgument(e, scope)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return &CommandInvocation{Callable: callable, Args: args, Loc: cn.Loc}, nil
}

// compileCommandPositionExpr compiles the first expression of a command,
// where a bare unquoted word names a command rather than producing a
// String value (spec §4.4: "String(s, quoted=false) -> in command position
// an Identifier").
func compileCommandPositionExpr(n Node, scope *Scope) (ValueDefinition, error) {
	if s, ok := n.(*StringNode); ok && !s.Quoted {
		return IdentifierDef{Name: NewTrackedString(s.Text, s.Loc)}, nil
	}
	return compileValue(n, scope)
}

// compileSpecialAssignment handles an Assignment appearing alone in command
// position, per spec §4.4's special-command table.
func compileSpecialAssignment(asn *Assignment, scope *Scope) (*CommandInvocation, error) {
	switch asn.Operator {
	case "=":
		switch target := asn.Target.(type) {
		case *Identifier:
			return syntheticCall("global:var:set", []ArgumentDefinition{
				{Name: target.Name, Value: mustCompileValue(asn.Value, scope)},
			}, asn.Loc), nil
		case *GetItem:
			base, err := compileValue(target.Base, scope)
			if err != nil {
				return nil, err
			}
			key, err := compileValue(target.Key, scope)
			if err != nil {
				return nil, err
			}
			val, err := compileValue(asn.Value, scope)
			if err != nil {
				return nil, err
			}
			return &CommandInvocation{
				Callable: GetAttrDef{Inner: base, Name: NewTrackedString("__setitem__", target.Loc)},
				Args: []ArgumentDefinition{
					{Value: key}, {Value: val},
				},
				Loc: asn.Loc,
			}, nil
		case *GetAttr:
			base, err := compileValue(target.Base, scope)
			if err != nil {
				return nil, err
			}
			val, err := compileValue(asn.Value, scope)
			if err != nil {
				return nil, err
			}
			return &CommandInvocation{
				Callable: GetAttrDef{Inner: base, Name: NewTrackedString("__setattr__", target.Loc)},
				Args: []ArgumentDefinition{
					{Value: LiteralDef{Val: NewString(target.Name), Loc: target.Loc}},
					{Value: val},
				},
				Loc: asn.Loc,
			}, nil
		default:
			return nil, newShellErr(ErrParse, asn, "invalid left side")
		}
	case ":=":
		ident, ok := asn.Target.(*Identifier)
		if !ok {
			return nil, newShellErr(ErrParse, asn, "invalid left side")
		}
		return syntheticCall("global:var:let", []ArgumentDefinition{
			{Name: ident.Name, Value: mustCompileValue(asn.Value, scope)},
		}, asn.Loc), nil
	default:
		return nil, newShellErr(ErrParse, asn, "unknown operator %q", asn.Operator)
	}
}

func mustCompileValue(n Node, scope *Scope) ValueDefinition {
	d, err := compileValue(n, scope)
	if err != nil {
		// This helper cannot return an error, so the compile error is wrapped
		// in an errDef and reported by its first Eval call.
		return errDef{err}
	}
	return d
}

// errDef is a ValueDefinition that always fails on Eval, used to thread a
// compile-time error discovered inside a helper that cannot itself return
// an error (mustCompileValue) through to the first Eval call.
type errDef struct{ err error }

func (d errDef) Eval(*Scope, *Globals) (Value, error) { return Value{}, d.err }
func (d errDef) Pos() Location                         { return NoLocation }

func syntheticCall(path string, args []ArgumentDefinition, loc Location) *CommandInvocation {
	return &CommandInvocation{
		Callable: syntheticPathDef{path: path, loc: loc},
		Args:     args,
		Loc:      loc,
	}
}

// syntheticPathDef resolves a fixed global dotted path at eval time, used
// for the compiler-synthesized special commands (global:var:set/let).
type syntheticPathDef struct {
	path string
	loc  Location
}

func (d syntheticPathDef) Eval(scope *Scope, _ *Globals) (Value, error) {
	cmd, err := scope.GlobalStaticCmd(d.path)
	if err != nil {
		return Value{}, err
	}
	return NewCommand(cmd), nil
}
func (d syntheticPathDef) Pos() Location { return d.loc }

// compileArgument compiles an expression appearing after the first
// expression of a command (an argument, not the callable).
func compileArgument(n Node, scope *Scope) (ArgumentDefinition, error) {
	switch e := n.(type) {
	case *Unary:
		switch e.Operator {
		case "@":
			val, err := compileValue(e.Operand, scope)
			if err != nil {
				return ArgumentDefinition{}, err
			}
			return ArgumentDefinition{Switch: ListSplat, Value: val}, nil
		case "@@":
			val, err := compileValue(e.Operand, scope)
			if err != nil {
				return ArgumentDefinition{}, err
			}
			return ArgumentDefinition{Switch: DictSplat, Value: val}, nil
		}
	case *Assignment:
		if e.Operator == "=" {
			name, err := namedArgTargetName(e.Target)
			if err != nil {
				return ArgumentDefinition{}, err
			}
			val, err := compileNamedValue(name, e.Value, scope)
			if err != nil {
				return ArgumentDefinition{}, err
			}
			return ArgumentDefinition{Name: name, Switch: Named, Value: val}, nil
		}
	}
	val, err := compileValue(n, scope)
	if err != nil {
		return ArgumentDefinition{}, err
	}
	return ArgumentDefinition{Switch: Positional, Value: val}, nil
}

// namedArgTargetName requires the assignment target to be an identifier or
// unquoted string (spec §4.4).
func namedArgTargetName(n Node) (string, error) {
	switch t := n.(type) {
	case *Identifier:
		return t.Name, nil
	case *StringNode:
		if !t.Quoted {
			return t.Text, nil
		}
	}
	return "", newShellErr(ErrParse, n, "invalid named-argument target")
}

// compileNamedValue compiles a named argument's value, propagating the
// argument name onto an unnamed closure literal (spec §4.4).
func compileNamedValue(name string, n Node, scope *Scope) (ValueDefinition, error) {
	if cl, ok := n.(*Closure); ok {
		return compileClosureNamed(&name, cl, scope)
	}
	return compileValue(n, scope)
}

// compileValue compiles an expression node to a ValueDefinition, outside of
// command position.
func compileValue(n Node, scope *Scope) (ValueDefinition, error) {
	switch e := n.(type) {
	case *Identifier:
		return IdentifierDef{Name: NewTrackedString(e.Name, e.Loc)}, nil
	case *StringNode:
		if e.Quoted {
			return LiteralDef{Val: NewString(unescape(e.Text)), Loc: e.Loc}, nil
		}
		return LiteralDef{Val: NewString(e.Text), Loc: e.Loc}, nil
	case *IntegerNode:
		v, err := IntegerType.Parse(e.Text)
		if err != nil {
			return nil, err
		}
		return LiteralDef{Val: v, Loc: e.Loc}, nil
	case *FloatNode:
		v, err := FloatType.Parse(e.Text)
		if err != nil {
			return nil, err
		}
		return LiteralDef{Val: v, Loc: e.Loc}, nil
	case *GlobNode:
		v, err := NewGlob(e.Pattern)
		if err != nil {
			return nil, err
		}
		return LiteralDef{Val: v, Loc: e.Loc}, nil
	case *RegexNode:
		v, err := NewRegex(e.Source) // compiled at compile time per spec.
		if err != nil {
			return nil, newShellErr(ErrParse, e, "%v", err)
		}
		return LiteralDef{Val: v, Loc: e.Loc}, nil
	case *FileNode:
		path := e.Path
		if e.Quoted {
			path = unescape(path)
		}
		return LiteralDef{Val: NewFile(path, e.Quoted), Loc: e.Loc}, nil
	case *GetAttr:
		base, err := compileValue(e.Base, scope)
		if err != nil {
			return nil, err
		}
		return GetAttrDef{Inner: base, Name: NewTrackedString(e.Name, e.Loc)}, nil
	case *GetItem:
		return compileGetItem(e, scope)
	case *Substitution:
		j, err := compileJob(e.Job, scope)
		if err != nil {
			return nil, err
		}
		return JobDefinition{J: j, Loc: e.Loc}, nil
	case *Closure:
		return compileClosureNamed(nil, e, scope)
	default:
		return nil, newShellErr(ErrInternal, n, "cannot compile node of kind %s as a value", n.TypeName())
	}
}

func compileClosureNamed(name *string, cl *Closure, scope *Scope) (ValueDefinition, error) {
	return ClosureDefinition{Name: name, Params: cl.Params, Body: cl.Body, Loc: cl.Loc}, nil
}

// compileGetItem compiles base[key] into a nested JobDefinition invoking the
// special __getitem__ call, per spec §4.4.
func compileGetItem(e *GetItem, scope *Scope) (ValueDefinition, error) {
	base, err := compileValue(e.Base, scope)
	if err != nil {
		return nil, err
	}
	key, err := compileValue(e.Key, scope)
	if err != nil {
		return nil, err
	}
	inv := &CommandInvocation{
		Callable: GetAttrDef{Inner: base, Name: NewTrackedString("__getitem__", e.Loc)},
		Args:     []ArgumentDefinition{{Value: key}},
		Loc:      e.Loc,
	}
	j := &Job{Invocations: []*CommandInvocation{inv}, Loc: e.Loc}
	return JobDefinition{J: j, Loc: e.Loc}, nil
}

// unescape decodes backslash escapes in a quoted string literal.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '"', '\'':
				b.WriteByte(s[i])
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Eval compiles and evaluates a single expression node against scope, used
// for contexts (e.g. a parameter's declared type expression) that need a
// Value from a raw AST node without a surrounding command invocation.
func Eval(n Node, scope *Scope) (Value, error) {
	def, err := compileValue(n, scope)
	if err != nil {
		return Value{}, err
	}
	return def.Eval(scope, nil)
}
