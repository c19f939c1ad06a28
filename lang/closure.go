package lang

import (
	"github.com/mascguy/crush-shell/symbol"
)

// Param is the compiled form of a ParameterNode: a resolved type (Any if
// undeclared), an optional default-value expression, and a varargs marker.
type Param struct {
	Name        string
	Type        ValueType
	DefaultExpr Node
	Varargs     bool
}

// ClosureCommand is a user-defined Command: captured defining scope,
// compiled parameter schema, and a compiled body job list. Grounded on the
// teacher's closure-like lambda evaluation (gql/ast.go's ASTLambda) plus
// its Func/FormalArg machinery (gql/func.go) for the call-time binding
// logic.
type ClosureCommand struct {
	name     string
	params   []Param
	body     *JobListNode
	defScope *Scope
}

func (c *ClosureCommand) Name() string   { return c.name }
func (c *ClosureCommand) CanBlock() bool { return true }

// Invoke binds ctx.Arguments against c.params by name and by positional
// order (spec §4.8), supporting declared types, defaults, and @/@@
// collection parameters realized by the caller before Invoke is called
// (see realizeArguments in driver.go), then runs the body in a child scope
// of the closure's defining scope.
func (c *ClosureCommand) Invoke(ctx *Context) error {
	callScope := c.defScope.CreateChild(false)
	if err := bindParams(c.params, ctx.Arguments, callScope); err != nil {
		return err
	}
	jobs, err := Compile(c.body, callScope)
	if err != nil {
		return err
	}
	var last Value = EmptyValue
	for _, j := range jobs {
		v, err := RunJobWithIO(j, callScope, ctx.Globals, ctx.Input, ctx.Output)
		if err != nil {
			return err
		}
		last = v
	}
	_ = last
	return nil
}

func bindParams(params []Param, args []Argument, scope *Scope) error {
	if len(params) == 0 {
		// Implicit single $_ parameter bound to the sole positional
		// argument, or to Empty if none was supplied.
		v := EmptyValue
		for _, a := range args {
			if a.Name == "" {
				v = a.Val
				break
			}
		}
		return scope.Declare(symbol.Intern("_"), v)
	}
	positional := make([]Value, 0, len(args))
	named := map[string]Value{}
	for _, a := range args {
		if a.Name == "" {
			positional = append(positional, a.Val)
		} else {
			named[a.Name] = a.Val
		}
	}
	pi := 0
	for _, p := range params {
		if v, ok := named[p.Name]; ok {
			if !p.Type.Is(v) {
				return newShellErr(ErrType, nil, "argument %q: expected %s, got %s", p.Name, p.Type, v.Kind())
			}
			if err := scope.Declare(symbol.Intern(p.Name), v); err != nil {
				return err
			}
			continue
		}
		if p.Varargs {
			rest := positional[pi:]
			pi = len(positional)
			l := &List{Elem: AnyType, Vals: append([]Value(nil), rest...)}
			if err := scope.Declare(symbol.Intern(p.Name), NewList(l)); err != nil {
				return err
			}
			continue
		}
		if pi < len(positional) {
			v := positional[pi]
			pi++
			if !p.Type.Is(v) {
				return newShellErr(ErrType, nil, "argument %q: expected %s, got %s", p.Name, p.Type, v.Kind())
			}
			if err := scope.Declare(symbol.Intern(p.Name), v); err != nil {
				return err
			}
			continue
		}
		if p.DefaultExpr != nil {
			v, err := Eval(p.DefaultExpr, scope)
			if err != nil {
				return err
			}
			if err := scope.Declare(symbol.Intern(p.Name), v); err != nil {
				return err
			}
			continue
		}
		return newShellErr(ErrArgument, nil, "missing required parameter %q", p.Name)
	}
	return nil
}
