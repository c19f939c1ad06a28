package comp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mascguy/crush-shell/lang"
	"github.com/mascguy/crush-shell/stdcmd/comp"
)

func newNS(t *testing.T) *lang.Scope {
	root := lang.NewRootScope()
	require.NoError(t, comp.Register(root))
	return root
}

// invoke looks up name in ns, invokes it with the given positional
// arguments, and returns the single value it sends to its output.
func invoke(t *testing.T, ns *lang.Scope, name string, args ...lang.Value) lang.Value {
	t.Helper()
	cmd, err := ns.GlobalStaticCmd(name)
	require.NoError(t, err)
	sender, receiver := lang.NewPipe(1, nil)
	realized := make([]lang.Argument, len(args))
	for i, a := range args {
		realized[i] = lang.Argument{Val: a}
	}
	ctx := &lang.Context{Scope: ns, Arguments: realized, Output: sender}
	require.NoError(t, cmd.Invoke(ctx))
	sender.Close()
	v, err := receiver.Recv()
	require.NoError(t, err)
	return v
}

func TestEqAndNe(t *testing.T) {
	ns := newNS(t)
	require.True(t, invoke(t, ns, "eq", lang.NewInt(3), lang.NewInt(3)).Bool())
	require.False(t, invoke(t, ns, "eq", lang.NewInt(3), lang.NewInt(4)).Bool())
	require.True(t, invoke(t, ns, "ne", lang.NewInt(3), lang.NewInt(4)).Bool())
}

func TestOrdering(t *testing.T) {
	ns := newNS(t)
	require.True(t, invoke(t, ns, "lt", lang.NewInt(1), lang.NewInt(2)).Bool())
	require.True(t, invoke(t, ns, "ge", lang.NewInt(2), lang.NewInt(2)).Bool())
	require.False(t, invoke(t, ns, "gt", lang.NewInt(2), lang.NewInt(2)).Bool())
}

func TestArithmetic(t *testing.T) {
	ns := newNS(t)
	require.Equal(t, int64(7), invoke(t, ns, "add", lang.NewInt(3), lang.NewInt(4)).Int())
	require.Equal(t, int64(-1), invoke(t, ns, "sub", lang.NewInt(3), lang.NewInt(4)).Int())
	require.Equal(t, int64(12), invoke(t, ns, "mul", lang.NewInt(3), lang.NewInt(4)).Int())
	require.Equal(t, int64(2), invoke(t, ns, "div", lang.NewInt(9), lang.NewInt(4)).Int())
	require.Equal(t, int64(1), invoke(t, ns, "mod", lang.NewInt(9), lang.NewInt(4)).Int())
	require.Equal(t, int64(-5), invoke(t, ns, "neg", lang.NewInt(5)).Int())
}

func TestDivByZero(t *testing.T) {
	ns := newNS(t)
	cmd, err := ns.GlobalStaticCmd("div")
	require.NoError(t, err)
	sender, _ := lang.NewPipe(1, nil)
	defer sender.Close()
	ctx := &lang.Context{
		Arguments: []lang.Argument{{Val: lang.NewInt(1)}, {Val: lang.NewInt(0)}},
		Output:    sender,
	}
	require.Error(t, cmd.Invoke(ctx))
}

func TestMinMax(t *testing.T) {
	ns := newNS(t)
	require.Equal(t, int64(1), invoke(t, ns, "min", lang.NewInt(3), lang.NewInt(1), lang.NewInt(2)).Int())
	require.Equal(t, int64(3), invoke(t, ns, "max", lang.NewInt(3), lang.NewInt(1), lang.NewInt(2)).Int())
}

func TestStringBuiltins(t *testing.T) {
	ns := newNS(t)
	require.Equal(t, int64(5), invoke(t, ns, "string_len", lang.NewString("hello")).Int())
	require.Equal(t, "ell", invoke(t, ns, "substring", lang.NewString("hello"), lang.NewInt(1), lang.NewInt(4)).Str())
	require.True(t, invoke(t, ns, "string_has_prefix", lang.NewString("hello"), lang.NewString("he")).Bool())
	require.True(t, invoke(t, ns, "string_has_suffix", lang.NewString("hello"), lang.NewString("lo")).Bool())
	require.Equal(t, int64(2), invoke(t, ns, "string_count", lang.NewString("abcabc"), lang.NewString("a")).Int())
	require.Equal(t, "h_llo", invoke(t, ns, "string_replace", lang.NewString("hello"), lang.NewString("e"), lang.NewString("_")).Str())
}

func TestRegexpBuiltins(t *testing.T) {
	ns := newNS(t)
	require.True(t, invoke(t, ns, "regexp_match", lang.NewString("hello123"), lang.NewString(`\d+`)).Bool())
	require.Equal(t, "hello#", invoke(t, ns, "regexp_replace", lang.NewString("hello123"), lang.NewString(`\d+`), lang.NewString("#")).Str())
}

func TestConversions(t *testing.T) {
	ns := newNS(t)
	require.Equal(t, int64(42), invoke(t, ns, "to_int", lang.NewString("42")).Int())
	require.Equal(t, 1.5, invoke(t, ns, "to_float", lang.NewString("1.5")).Float())
	require.Equal(t, "42", invoke(t, ns, "to_string", lang.NewInt(42)).Str())
}

func TestBitwise(t *testing.T) {
	ns := newNS(t)
	require.Equal(t, int64(0b1000), invoke(t, ns, "land", lang.NewInt(0b1100), lang.NewInt(0b1010)).Int())
	require.Equal(t, int64(0b1110), invoke(t, ns, "lor", lang.NewInt(0b1100), lang.NewInt(0b1010)).Int())
	require.True(t, invoke(t, ns, "isset", lang.NewInt(0b1110), lang.NewInt(0b0110)).Bool())
}

func TestSprintf(t *testing.T) {
	ns := newNS(t)
	got := invoke(t, ns, "sprintf", lang.NewString("%s is %d"), lang.NewString("x"), lang.NewInt(5))
	require.Equal(t, "x is 5", got.Str())
}
