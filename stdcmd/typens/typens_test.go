package typens_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mascguy/crush-shell/lang"
	"github.com/mascguy/crush-shell/stdcmd/typens"
)

func newNS(t *testing.T) *lang.Scope {
	root := lang.NewRootScope()
	require.NoError(t, typens.Register(root))
	return root
}

func invoke(t *testing.T, ns *lang.Scope, name string, args ...lang.Value) lang.Value {
	t.Helper()
	cmd, err := ns.GlobalStaticCmd(name)
	require.NoError(t, err)
	sender, receiver := lang.NewPipe(1, nil)
	realized := make([]lang.Argument, len(args))
	for i, a := range args {
		realized[i] = lang.Argument{Val: a}
	}
	require.NoError(t, cmd.Invoke(&lang.Context{Arguments: realized, Output: sender}))
	sender.Close()
	v, err := receiver.Recv()
	require.NoError(t, err)
	return v
}

func TestPrimitiveTypeConstants(t *testing.T) {
	ns := newNS(t)
	v := invoke(t, ns, "integer")
	require.Equal(t, lang.KType, v.Kind())
	require.Equal(t, lang.IntegerType, v.TypeValue())
}

func TestOfReportsTheTypeOfAValue(t *testing.T) {
	ns := newNS(t)
	v := invoke(t, ns, "of", lang.NewString("x"))
	require.Equal(t, lang.KType, v.Kind())
	require.Equal(t, lang.StringType, v.TypeValue())
}
