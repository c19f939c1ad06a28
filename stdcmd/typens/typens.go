// Package typens registers the "type" namespace: builtins for introspecting
// a value's type and constructing List/Dict/Struct/Table/TableStream type
// descriptors. Grounded on the teacher's gql/builtin_table_attrs.go (a value
// carries queryable type metadata) and gql/value_type.go's ValueType
// constructors, adapted to this runtime's first-class Type value kind
// (spec §3: "Type: a first-class description of a value's shape").
package typens

import (
	"fmt"

	"github.com/mascguy/crush-shell/lang"
	"github.com/mascguy/crush-shell/symbol"
)

// Register installs every type-namespace builtin into ns.
func Register(ns *lang.Scope) error {
	primitives := []struct {
		name string
		t    lang.ValueType
	}{
		{"any", lang.AnyType},
		{"string", lang.StringType},
		{"integer", lang.IntegerType},
		{"float", lang.FloatType},
		{"bool", lang.BoolType},
		{"time", lang.TimeType},
		{"duration", lang.DurationType},
		{"field", lang.FieldType},
		{"glob", lang.GlobType},
		{"regex", lang.RegexType},
		{"file", lang.FileType},
		{"binary", lang.BinaryType},
		{"binary_stream", lang.BinaryStreamType},
		{"command", lang.CommandType},
		{"scope", lang.ScopeType},
		{"type", lang.TypeType},
		{"empty", lang.EmptyType},
	}
	for _, p := range primitives {
		t := p.t
		if err := lang.RegisterBuiltinCommand(ns, p.name, false, nil,
			fmt.Sprintf("the %s type", p.name), "", nullaryType(t)); err != nil {
			return err
		}
	}

	fns := map[string]func(ctx *lang.Context) error{
		"of":           ofCmd,
		"to":           toCmd,
		"list":         listCmd,
		"dict":         dictCmd,
		"struct":       structCmd,
		"table":        tableCmd,
		"table_stream": tableStreamCmd,
	}
	for name, fn := range fns {
		if err := lang.RegisterBuiltinCommand(ns, name, false, nil, name+" type operation", "", fn); err != nil {
			return err
		}
	}
	return nil
}

func nullaryType(t lang.ValueType) func(ctx *lang.Context) error {
	return func(ctx *lang.Context) error { return send(ctx, lang.NewTypeValue(t)) }
}

func send(ctx *lang.Context, v lang.Value) error {
	if ctx.Output == nil {
		return nil
	}
	return ctx.Output.Send(v)
}

// ofCmd returns the Type of its single argument.
func ofCmd(ctx *lang.Context) error {
	pos := ctx.Positional()
	if len(pos) != 1 {
		return fmt.Errorf("of: expected exactly one argument, got %d", len(pos))
	}
	return send(ctx, lang.NewTypeValue(pos[0].Type()))
}

// toCmd parses a string/file/field argument into the target type named by a
// "type" argument, via ValueType.Parse (spec §3: "Parse(text): produce a
// value of this type from its textual form").
func toCmd(ctx *lang.Context) error {
	pos := ctx.Positional()
	if len(pos) != 2 {
		return fmt.Errorf("to: expected (value, type) arguments, got %d", len(pos))
	}
	if pos[1].Kind() != lang.KType {
		return fmt.Errorf("to: second argument must be a type, got %s", pos[1].Kind())
	}
	target := pos[1].TypeValue()
	v := pos[0]
	if target.Is(v) {
		return send(ctx, v)
	}
	text := v.String()
	parsed, err := target.Parse(text)
	if err != nil {
		return err
	}
	return send(ctx, parsed)
}

func typeArgs(ctx *lang.Context, name string) ([]lang.ValueType, error) {
	pos := ctx.Positional()
	types := make([]lang.ValueType, len(pos))
	for i, v := range pos {
		if v.Kind() != lang.KType {
			return nil, fmt.Errorf("%s: argument %d must be a type, got %s", name, i, v.Kind())
		}
		types[i] = v.TypeValue()
	}
	return types, nil
}

func listCmd(ctx *lang.Context) error {
	types, err := typeArgs(ctx, "list")
	if err != nil {
		return err
	}
	if len(types) != 1 {
		return fmt.Errorf("list: expected exactly one element type, got %d", len(types))
	}
	return send(ctx, lang.NewTypeValue(lang.ListType(types[0])))
}

func dictCmd(ctx *lang.Context) error {
	types, err := typeArgs(ctx, "dict")
	if err != nil {
		return err
	}
	if len(types) != 2 {
		return fmt.Errorf("dict: expected exactly a key type and a value type, got %d", len(types))
	}
	return send(ctx, lang.NewTypeValue(lang.DictType(types[0], types[1])))
}

// structCmd builds a Struct type from named arguments, e.g.
// "struct(name=string, age=integer)".
func structCmd(ctx *lang.Context) error {
	schema, err := namedSchema(ctx.Arguments, "struct")
	if err != nil {
		return err
	}
	return send(ctx, lang.NewTypeValue(lang.StructType(schema)))
}

func tableCmd(ctx *lang.Context) error {
	schema, err := namedSchema(ctx.Arguments, "table")
	if err != nil {
		return err
	}
	return send(ctx, lang.NewTypeValue(lang.TableType(schema)))
}

func tableStreamCmd(ctx *lang.Context) error {
	schema, err := namedSchema(ctx.Arguments, "table_stream")
	if err != nil {
		return err
	}
	return send(ctx, lang.NewTypeValue(lang.TableStreamType(schema)))
}

func namedSchema(args []lang.Argument, name string) ([]lang.ColumnType, error) {
	schema := make([]lang.ColumnType, 0, len(args))
	for _, a := range args {
		if a.Name == "" {
			return nil, fmt.Errorf("%s: all arguments must be name=type pairs", name)
		}
		if a.Val.Kind() != lang.KType {
			return nil, fmt.Errorf("%s: field %q must be a type, got %s", name, a.Name, a.Val.Kind())
		}
		schema = append(schema, lang.ColumnType{Name: symbol.Intern(a.Name), Type: a.Val.TypeValue()})
	}
	return schema, nil
}
