package crush

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	env, err := New(nil, nil, false, false)
	require.NoError(t, err)
	return env
}

func TestParseCommandlineNoRedirect(t *testing.T) {
	env := newTestEnv(t)
	expr, out, redirected := env.parseCommandline("  comp:eq 1 1  ")
	defer out.Close()
	require.Equal(t, "comp:eq 1 1", expr)
	require.False(t, redirected)
}

func TestParseCommandlineFileRedirectTruncates(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	expr, out, redirected := env.parseCommandline("comp:eq 1 1 > " + path)
	require.Equal(t, "comp:eq 1 1", expr)
	require.True(t, redirected)
	out.WriteString("fresh")
	out.Close()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "fresh", string(got))
}

func TestParseCommandlineFileRedirectAppends(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	expr, out, redirected := env.parseCommandline("echo hi >> " + path)
	require.Equal(t, "echo hi", expr)
	require.True(t, redirected)
	out.WriteString("b")
	out.Close()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ab", string(got))
}
