package lang

import "github.com/mascguy/crush-shell/symbol"

// Dunder method dispatch for List/Dict/Struct: compile.go's
// compileSpecialAssignment and compileGetItem lower c[k], c[k] = v, and
// c.a = v to GetAttr(c, "__getitem__"/"__setitem__"/"__setattr__")
// followed by an ordinary call (spec §4.4: "method call c.__setitem__(k,
// value)"). getAttr resolves those names to a Command bound to the
// specific receiver value, generalizing the teacher's attribute-as-
// field-lookup (gql/value.go) to mutation.

// dunderCommand is a Command closed over a receiver value, used only for
// the three dunder names getAttr resolves on List/Dict/Struct. Never
// registered into a namespace; it exists purely as the Value a GetAttrDef
// evaluates to.
type dunderCommand struct {
	name string
	fn   func(ctx *Context) error
}

func (d *dunderCommand) Name() string           { return d.name }
func (d *dunderCommand) CanBlock() bool         { return false }
func (d *dunderCommand) Invoke(ctx *Context) error { return d.fn(ctx) }

func newDunder(name string, fn func(ctx *Context) error) Value {
	return NewCommand(&dunderCommand{name: name, fn: fn})
}

// setResult sends v to ctx.Output, mirroring the stdcmd packages' own
// send/setResult helper (e.g. stdcmd/comp's setResult): a dunder method
// reports its result the same way every other command does.
func setResult(ctx *Context, v Value) error {
	if ctx.Output == nil {
		return nil
	}
	return ctx.Output.Send(v)
}

func listGetItem(l *List) Value {
	return newDunder("__getitem__", func(ctx *Context) error {
		pos := ctx.Positional()
		if len(pos) != 1 {
			return newShellErr(ErrArgument, nil, "__getitem__: expected 1 argument, got %d", len(pos))
		}
		idx := pos[0].Int()
		if idx < 0 || idx >= int64(len(l.Vals)) {
			return newShellErr(ErrArgument, nil, "list index %d out of range [0,%d)", idx, len(l.Vals))
		}
		return setResult(ctx, l.Vals[idx])
	})
}

func listSetItem(l *List) Value {
	return newDunder("__setitem__", func(ctx *Context) error {
		pos := ctx.Positional()
		if len(pos) != 2 {
			return newShellErr(ErrArgument, nil, "__setitem__: expected 2 arguments, got %d", len(pos))
		}
		idx := pos[0].Int()
		if idx < 0 || idx >= int64(len(l.Vals)) {
			return newShellErr(ErrArgument, nil, "list index %d out of range [0,%d)", idx, len(l.Vals))
		}
		l.Vals[idx] = pos[1]
		return setResult(ctx, pos[1])
	})
}

func dictGetItem(d *Dict) Value {
	return newDunder("__getitem__", func(ctx *Context) error {
		pos := ctx.Positional()
		if len(pos) != 1 {
			return newShellErr(ErrArgument, nil, "__getitem__: expected 1 argument, got %d", len(pos))
		}
		v, ok, err := d.Get(pos[0])
		if err != nil {
			return err
		}
		if !ok {
			return newShellErr(ErrLookup, nil, "key not found in dict")
		}
		return setResult(ctx, v)
	})
}

func dictSetItem(d *Dict) Value {
	return newDunder("__setitem__", func(ctx *Context) error {
		pos := ctx.Positional()
		if len(pos) != 2 {
			return newShellErr(ErrArgument, nil, "__setitem__: expected 2 arguments, got %d", len(pos))
		}
		if err := d.Set(pos[0], pos[1]); err != nil {
			return err
		}
		return setResult(ctx, pos[1])
	})
}

func structSetAttr(row *StructRow) Value {
	return newDunder("__setattr__", func(ctx *Context) error {
		pos := ctx.Positional()
		if len(pos) != 2 {
			return newShellErr(ErrArgument, nil, "__setattr__: expected 2 arguments, got %d", len(pos))
		}
		if pos[0].Kind() != KString {
			return newShellErr(ErrType, nil, "__setattr__: field name must be a string, got %s", pos[0].Kind())
		}
		id := symbol.Intern(pos[0].Str())
		for i, c := range row.Schema {
			if c.Name == id {
				row.Vals[i] = pos[1]
				return setResult(ctx, pos[1])
			}
		}
		return newShellErr(ErrType, nil, "no field %q on struct", pos[0].Str())
	})
}
