// Package comp registers the scalar comparison, arithmetic, and string
// builtins exposed under the "comp" namespace. Grounded on the teacher's
// gql/builtin_ops.go (RegisterBuiltinFunc calls for infix:==, infix:+,
// string_len, substring, sprintf, hash64, land, lor, isset, etc.), adapted
// from gql's ValueType-switch scalar model to this runtime's Kind-tagged
// Value.
package comp

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"

	"github.com/mascguy/crush-shell/lang"
)

// Register installs every comp builtin into ns.
func Register(ns *lang.Scope) error {
	type reg struct {
		name      string
		formal    []lang.FormalArg
		shortHelp string
		fn        func(ctx *lang.Context) error
	}
	regs := []reg{
		{"eq", posArgs(2), "structural equality", eqCmd},
		{"ne", posArgs(2), "structural inequality", neCmd},
		{"lt", posArgs(2), "less than", ltCmd},
		{"le", posArgs(2), "less than or equal", leCmd},
		{"gt", posArgs(2), "greater than", gtCmd},
		{"ge", posArgs(2), "greater than or equal", geCmd},
		{"not", posArgs(1), "boolean negation", notCmd},
		{"add", posArgs(2), "addition", addCmd},
		{"sub", posArgs(2), "subtraction", subCmd},
		{"mul", posArgs(2), "multiplication", mulCmd},
		{"div", posArgs(2), "division", divCmd},
		{"mod", posArgs(2), "modulo", modCmd},
		{"neg", posArgs(1), "arithmetic negation", negCmd},
		{"max", nil, "maximum of its arguments", maxCmd},
		{"min", nil, "minimum of its arguments", minCmd},
		{"to_int", posArgs(1), "convert a scalar to an integer", toIntCmd},
		{"to_float", posArgs(1), "convert a scalar to a float", toFloatCmd},
		{"to_string", posArgs(1), "convert a scalar to a string", toStringCmd},
		{"regexp_match", posArgs(2), "regular expression match", regexpMatchCmd},
		{"regexp_replace", posArgs(3), "regular expression replace", regexpReplaceCmd},
		{"string_len", posArgs(1), "length of a string in bytes", stringLenCmd},
		{"substring", nil, "byte-range substring", substringCmd},
		{"string_replace", posArgs(3), "literal substring replace", stringReplaceCmd},
		{"string_has_prefix", posArgs(2), "string prefix test", stringHasPrefixCmd},
		{"string_has_suffix", posArgs(2), "string suffix test", stringHasSuffixCmd},
		{"string_count", posArgs(2), "count non-overlapping substring occurrences", stringCountCmd},
		{"sprintf", nil, "format a string", sprintfCmd},
		{"hash64", posArgs(1), "positive 64-bit content hash", hash64Cmd},
		{"land", posArgs(2), "bitwise and", landCmd},
		{"lor", posArgs(2), "bitwise or", lorCmd},
		{"isset", posArgs(2), "test whether all bits of y are set in x", issetCmd},
	}
	for _, r := range regs {
		if err := lang.RegisterBuiltinCommand(ns, r.name, false, r.formal, r.shortHelp, "", r.fn); err != nil {
			return err
		}
	}
	return nil
}

func posArgs(n int) []lang.FormalArg {
	formal := make([]lang.FormalArg, n)
	for i := range formal {
		formal[i] = lang.FormalArg{Required: true}
	}
	return formal
}

func arity(ctx *lang.Context, n int, name string) ([]lang.Value, error) {
	pos := ctx.Positional()
	if len(pos) != n {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", name, n, len(pos))
	}
	return pos, nil
}

func eqCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "eq")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewBool(a[0].Eq(a[1])))
}

func neCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "ne")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewBool(!a[0].Eq(a[1])))
}

func cmpCmd(ctx *lang.Context, name string, ok func(int) bool) error {
	a, err := arity(ctx, 2, name)
	if err != nil {
		return err
	}
	c, err := a[0].Compare(a[1])
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewBool(ok(c)))
}

func ltCmd(ctx *lang.Context) error { return cmpCmd(ctx, "lt", func(c int) bool { return c < 0 }) }
func leCmd(ctx *lang.Context) error { return cmpCmd(ctx, "le", func(c int) bool { return c <= 0 }) }
func gtCmd(ctx *lang.Context) error { return cmpCmd(ctx, "gt", func(c int) bool { return c > 0 }) }
func geCmd(ctx *lang.Context) error { return cmpCmd(ctx, "ge", func(c int) bool { return c >= 0 }) }

func notCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 1, "not")
	if err != nil {
		return err
	}
	if a[0].Kind() != lang.KBool {
		return fmt.Errorf("not: argument must be a bool, got %s", a[0].Kind())
	}
	return setResult(ctx, lang.NewBool(!a[0].Bool()))
}

func addCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "add")
	if err != nil {
		return err
	}
	x, y := a[0], a[1]
	if x.Kind() != y.Kind() {
		return fmt.Errorf("add: mismatched types %s and %s", x.Kind(), y.Kind())
	}
	switch x.Kind() {
	case lang.KInteger:
		return setResult(ctx, lang.NewInt(x.Int()+y.Int()))
	case lang.KFloat:
		return setResult(ctx, lang.NewFloat(x.Float()+y.Float()))
	case lang.KString:
		return setResult(ctx, lang.NewString(x.Str()+y.Str()))
	case lang.KDuration:
		return setResult(ctx, lang.NewDuration(x.Duration()+y.Duration()))
	default:
		return fmt.Errorf("add: unsupported type %s", x.Kind())
	}
}

func subCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "sub")
	if err != nil {
		return err
	}
	x, y := a[0], a[1]
	if x.Kind() != y.Kind() {
		return fmt.Errorf("sub: mismatched types %s and %s", x.Kind(), y.Kind())
	}
	switch x.Kind() {
	case lang.KInteger:
		return setResult(ctx, lang.NewInt(x.Int()-y.Int()))
	case lang.KFloat:
		return setResult(ctx, lang.NewFloat(x.Float()-y.Float()))
	case lang.KDuration:
		return setResult(ctx, lang.NewDuration(x.Duration()-y.Duration()))
	default:
		return fmt.Errorf("sub: unsupported type %s", x.Kind())
	}
}

func mulCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "mul")
	if err != nil {
		return err
	}
	x, y := a[0], a[1]
	switch {
	case x.Kind() == lang.KInteger && y.Kind() == lang.KInteger:
		return setResult(ctx, lang.NewInt(x.Int()*y.Int()))
	case x.Kind() == lang.KFloat && y.Kind() == lang.KFloat:
		return setResult(ctx, lang.NewFloat(x.Float()*y.Float()))
	default:
		return fmt.Errorf("mul: unsupported types %s, %s", x.Kind(), y.Kind())
	}
}

func divCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "div")
	if err != nil {
		return err
	}
	x, y := a[0], a[1]
	switch {
	case x.Kind() == lang.KInteger && y.Kind() == lang.KInteger:
		if y.Int() == 0 {
			return fmt.Errorf("div: division by zero")
		}
		return setResult(ctx, lang.NewInt(x.Int()/y.Int()))
	case x.Kind() == lang.KFloat && y.Kind() == lang.KFloat:
		return setResult(ctx, lang.NewFloat(x.Float()/y.Float()))
	default:
		return fmt.Errorf("div: unsupported types %s, %s", x.Kind(), y.Kind())
	}
}

func modCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "mod")
	if err != nil {
		return err
	}
	if a[1].Int() == 0 {
		return fmt.Errorf("mod: division by zero")
	}
	return setResult(ctx, lang.NewInt(a[0].Int()%a[1].Int()))
}

func negCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 1, "neg")
	if err != nil {
		return err
	}
	switch a[0].Kind() {
	case lang.KInteger:
		return setResult(ctx, lang.NewInt(-a[0].Int()))
	case lang.KFloat:
		return setResult(ctx, lang.NewFloat(-a[0].Float()))
	case lang.KDuration:
		return setResult(ctx, lang.NewDuration(-a[0].Duration()))
	default:
		return fmt.Errorf("neg: unsupported type %s", a[0].Kind())
	}
}

func maxCmd(ctx *lang.Context) error {
	pos := ctx.Positional()
	if len(pos) == 0 {
		return fmt.Errorf("max: requires at least one argument")
	}
	best := pos[0]
	for _, v := range pos[1:] {
		c, err := best.Compare(v)
		if err != nil {
			return err
		}
		if c < 0 {
			best = v
		}
	}
	return setResult(ctx, best)
}

func minCmd(ctx *lang.Context) error {
	pos := ctx.Positional()
	if len(pos) == 0 {
		return fmt.Errorf("min: requires at least one argument")
	}
	best := pos[0]
	for _, v := range pos[1:] {
		c, err := best.Compare(v)
		if err != nil {
			return err
		}
		if c > 0 {
			best = v
		}
	}
	return setResult(ctx, best)
}

func toIntCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 1, "to_int")
	if err != nil {
		return err
	}
	switch a[0].Kind() {
	case lang.KInteger:
		return setResult(ctx, a[0])
	case lang.KFloat:
		return setResult(ctx, lang.NewInt(int64(a[0].Float())))
	case lang.KBool:
		v := int64(0)
		if a[0].Bool() {
			v = 1
		}
		return setResult(ctx, lang.NewInt(v))
	case lang.KString:
		var v int64
		if _, err := fmt.Sscanf(a[0].Str(), "%d", &v); err != nil {
			return fmt.Errorf("to_int: cannot parse %q: %v", a[0].Str(), err)
		}
		return setResult(ctx, lang.NewInt(v))
	case lang.KDuration:
		return setResult(ctx, lang.NewInt(int64(a[0].Duration())))
	default:
		return fmt.Errorf("to_int: unsupported type %s", a[0].Kind())
	}
}

func toFloatCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 1, "to_float")
	if err != nil {
		return err
	}
	switch a[0].Kind() {
	case lang.KFloat:
		return setResult(ctx, a[0])
	case lang.KInteger:
		return setResult(ctx, lang.NewFloat(float64(a[0].Int())))
	case lang.KString:
		var v float64
		if _, err := fmt.Sscanf(a[0].Str(), "%g", &v); err != nil {
			return fmt.Errorf("to_float: cannot parse %q: %v", a[0].Str(), err)
		}
		return setResult(ctx, lang.NewFloat(v))
	default:
		return fmt.Errorf("to_float: unsupported type %s", a[0].Kind())
	}
}

func toStringCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 1, "to_string")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewString(a[0].String()))
}

func regexpMatchCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "regexp_match")
	if err != nil {
		return err
	}
	re, err := regexp.Compile(a[1].Str())
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewBool(re.MatchString(a[0].Str())))
}

func regexpReplaceCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 3, "regexp_replace")
	if err != nil {
		return err
	}
	re, err := regexp.Compile(a[1].Str())
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewString(re.ReplaceAllString(a[0].Str(), a[2].Str())))
}

func stringLenCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 1, "string_len")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewInt(int64(len(a[0].Str()))))
}

func substringCmd(ctx *lang.Context) error {
	pos := ctx.Positional()
	if len(pos) < 2 || len(pos) > 3 {
		return fmt.Errorf("substring: expected 2 or 3 arguments, got %d", len(pos))
	}
	src := pos[0].Str()
	from := pos[1].Int()
	to := int64(len(src))
	if len(pos) == 3 {
		to = pos[2].Int()
	}
	if to > int64(len(src)) {
		to = int64(len(src))
	}
	if from < 0 || from > to {
		return fmt.Errorf("substring: invalid range [%d:%d) for string of length %d", from, to, len(src))
	}
	return setResult(ctx, lang.NewString(src[from:to]))
}

func stringReplaceCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 3, "string_replace")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewString(strings.ReplaceAll(a[0].Str(), a[1].Str(), a[2].Str())))
}

func stringHasPrefixCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "string_has_prefix")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewBool(strings.HasPrefix(a[0].Str(), a[1].Str())))
}

func stringHasSuffixCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "string_has_suffix")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewBool(strings.HasSuffix(a[0].Str(), a[1].Str())))
}

func stringCountCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "string_count")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewInt(int64(strings.Count(a[0].Str(), a[1].Str()))))
}

func sprintfCmd(ctx *lang.Context) error {
	pos := ctx.Positional()
	if len(pos) == 0 {
		return fmt.Errorf("sprintf: requires a format string")
	}
	rest := make([]interface{}, len(pos)-1)
	for i, v := range pos[1:] {
		switch v.Kind() {
		case lang.KInteger, lang.KDuration:
			rest[i] = v.Int()
		case lang.KBool:
			rest[i] = v.Bool()
		case lang.KFloat:
			rest[i] = v.Float()
		case lang.KString, lang.KField, lang.KFile, lang.KGlob, lang.KRegex:
			rest[i] = v.Str()
		default:
			rest[i] = v.String()
		}
	}
	return setResult(ctx, lang.NewString(fmt.Sprintf(pos[0].Str(), rest...)))
}

func hash64Cmd(ctx *lang.Context) error {
	a, err := arity(ctx, 1, "hash64")
	if err != nil {
		return err
	}
	h, err := a[0].Hash()
	if err != nil {
		return err
	}
	v := binary.LittleEndian.Uint64(h[:]) & 0x7fffffffffffffff
	return setResult(ctx, lang.NewInt(int64(v)))
}

func landCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "land")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewInt(a[0].Int()&a[1].Int()))
}

func lorCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "lor")
	if err != nil {
		return err
	}
	return setResult(ctx, lang.NewInt(a[0].Int()|a[1].Int()))
}

func issetCmd(ctx *lang.Context) error {
	a, err := arity(ctx, 2, "isset")
	if err != nil {
		return err
	}
	x, y := a[0].Int(), a[1].Int()
	return setResult(ctx, lang.NewBool(x&y == y))
}

// setResult sends v to ctx.Output, the way every comp builtin reports its
// single computed value (spec §4.8: a command communicates results by
// writing to its output pipe, not by a Go return value).
func setResult(ctx *lang.Context, v lang.Value) error {
	if ctx.Output == nil {
		return nil
	}
	return ctx.Output.Send(v)
}
