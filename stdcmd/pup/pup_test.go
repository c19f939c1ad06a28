package pup_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mascguy/crush-shell/lang"
	"github.com/mascguy/crush-shell/stdcmd/comp"
	"github.com/mascguy/crush-shell/stdcmd/pup"
)

// rootLookup mirrors stdlib.rootLookup: pup:from needs to resolve a
// builtin's registered name back to its Command, which requires a lookup
// against the same root pup itself is declared under.
func rootLookup(ns *lang.Scope) func(path string) (lang.Command, error) {
	return func(path string) (lang.Command, error) {
		return ns.GlobalStaticCmd(path)
	}
}

func newRoot(t *testing.T) *lang.Scope {
	root := lang.NewRootScope()
	require.NoError(t, comp.Register(root))
	return root
}

func invoke(t *testing.T, cmd lang.Command, args ...lang.Value) lang.Value {
	t.Helper()
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

// TestBuiltinCommandRoundTrip confirms pup:from resolves a builtin command
// back to the same registered builtin via the lookup callback, rather than
// producing some unrelated fresh Command value.
func TestBuiltinCommandRoundTrip(t *testing.T) {
	root := newRoot(t)
	require.NoError(t, pup.Register(root, rootLookup(root)))

	eqCmd, err := root.GlobalStaticCmd("eq")
	require.NoError(t, err)
	toCmd, err := root.GlobalStaticCmd("to")
	require.NoError(t, err)
	fromCmd, err := root.GlobalStaticCmd("from")
	require.NoError(t, err)

	encoded := invoke(t, toCmd, lang.NewCommand(eqCmd))
	require.Equal(t, lang.KBinary, encoded.Kind())

	decoded := invoke(t, fromCmd, encoded)
	require.Equal(t, lang.KCommand, decoded.Kind())
	require.Equal(t, eqCmd.Name(), decoded.Command().Name())

	// The resolved command is actually invokable, not just name-equal.
	result := invoke(t, decoded.Command(), lang.NewInt(1), lang.NewInt(1))
	require.True(t, result.Bool())
}

// TestFromUnknownBuiltinErrors confirms an unresolvable builtin name reaches
// the lookup callback exactly once and that pup:from then panics with the
// lookup failure (inside a running job, invokeRecoverable turns that panic
// into an error).
func TestFromUnknownBuiltinErrors(t *testing.T) {
	root := newRoot(t)
	calls := 0
	failingLookup := func(path string) (lang.Command, error) {
		calls++
		return nil, newLookupErr(path)
	}
	require.NoError(t, pup.Register(root, failingLookup))

	eqCmd, err := root.GlobalStaticCmd("eq")
	require.NoError(t, err)
	toCmd, err := root.GlobalStaticCmd("to")
	require.NoError(t, err)
	fromCmd, err := root.GlobalStaticCmd("from")
	require.NoError(t, err)

	encoded := invoke(t, toCmd, lang.NewCommand(eqCmd))

	sender, _ := lang.NewPipe(1, nil)
	defer sender.Close()
	require.Panics(t, func() {
		_ = fromCmd.Invoke(&lang.Context{Arguments: []lang.Argument{{Val: encoded}}, Output: sender})
	})
	require.Equal(t, 1, calls)
}

func newLookupErr(path string) error {
	return &lookupErr{path}
}

type lookupErr struct{ path string }

func (e *lookupErr) Error() string { return "unknown command: " + e.path }
