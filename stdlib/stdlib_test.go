package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mascguy/crush-shell/lang"
	"github.com/mascguy/crush-shell/stdlib"
	"github.com/mascguy/crush-shell/symbol"
)

func TestNewSealsRoot(t *testing.T) {
	root, err := stdlib.New()
	require.NoError(t, err)
	require.True(t, root.IsReadonly())
}

// TestControlCommandsReachable confirms the control-flow builtins (which
// live in package lang, not a stdcmd subpackage) are registered directly
// into the root, unqualified.
func TestControlCommandsReachable(t *testing.T) {
	root, err := stdlib.New()
	require.NoError(t, err)
	for _, name := range []string{"if", "for", "break", "return"} {
		_, err := root.GlobalStaticCmd(name)
		require.NoError(t, err, "expected %q reachable at the root", name)
	}
}

// TestCompReachableQualifiedAndUnqualified confirms comp is both declared
// as a "comp" namespace and use-imported into the root, matching the
// teacher's builtins being globally visible without a namespace prefix.
func TestCompReachableQualifiedAndUnqualified(t *testing.T) {
	root, err := stdlib.New()
	require.NoError(t, err)

	_, err = root.GlobalStaticCmd("comp:eq")
	require.NoError(t, err)

	session := root.CreateChild(false)
	_, err = session.Get(symbol.Intern("eq"))
	require.NoError(t, err, "expected comp's builtins use-imported unqualified")
}

func TestTypeAndIoNamespacesAreQualifiedOnly(t *testing.T) {
	root, err := stdlib.New()
	require.NoError(t, err)
	_, err = root.GlobalStaticCmd("type:of")
	require.NoError(t, err)
	_, err = root.GlobalStaticCmd("io:read")
	require.NoError(t, err)
}

func TestPupToFromRoundTrip(t *testing.T) {
	root, err := stdlib.New()
	require.NoError(t, err)
	session := root.CreateChild(false)

	toCmd, err := root.GlobalStaticCmd("pup:to")
	require.NoError(t, err)
	fromCmd, err := root.GlobalStaticCmd("pup:from")
	require.NoError(t, err)

	toSender, toReceiver := lang.NewPipe(1, nil)
	require.NoError(t, toCmd.Invoke(&lang.Context{
		Scope:     session,
		Arguments: []lang.Argument{{Val: lang.NewInt(42)}},
		Output:    toSender,
	}))
	toSender.Close()
	encoded, err := toReceiver.Recv()
	require.NoError(t, err)
	require.Equal(t, lang.KBinary, encoded.Kind())

	fromSender, fromReceiver := lang.NewPipe(1, nil)
	require.NoError(t, fromCmd.Invoke(&lang.Context{
		Scope:     session,
		Arguments: []lang.Argument{{Val: encoded}},
		Output:    fromSender,
	}))
	fromSender.Close()
	decoded, err := fromReceiver.Recv()
	require.NoError(t, err)
	require.Equal(t, lang.KInteger, decoded.Kind())
	require.Equal(t, int64(42), decoded.Int())
}

func TestSessionChildOfSealedRootCanDeclare(t *testing.T) {
	root, err := stdlib.New()
	require.NoError(t, err)
	session := root.CreateChild(false)
	require.NoError(t, session.Declare(symbol.Intern("x"), lang.NewInt(1)))
}
