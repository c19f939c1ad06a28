package ioc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mascguy/crush-shell/lang"
	"github.com/mascguy/crush-shell/stdcmd/ioc"
)

func newNS(t *testing.T) *lang.Scope {
	root := lang.NewRootScope()
	require.NoError(t, ioc.Register(root))
	return root
}

func TestWriteBinaryThenRead(t *testing.T) {
	ns := newNS(t)
	path := filepath.Join(t.TempDir(), "data.bin")

	writeCmd, err := ns.GlobalStaticCmd("write")
	require.NoError(t, err)
	sender, receiver := lang.NewPipe(1, nil)
	require.NoError(t, writeCmd.Invoke(&lang.Context{
		Arguments: []lang.Argument{
			{Val: lang.NewString(path)},
			{Val: lang.NewBinary([]byte("hello world"))},
		},
		Output: sender,
	}))
	sender.Close()
	n, err := receiver.Recv()
	require.NoError(t, err)
	require.Equal(t, int64(11), n.Int())

	on, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(on))

	readCmd, err := ns.GlobalStaticCmd("read")
	require.NoError(t, err)
	rSender, rReceiver := lang.NewPipe(1, nil)
	require.NoError(t, readCmd.Invoke(&lang.Context{
		Arguments: []lang.Argument{{Val: lang.NewString(path)}},
		Output:    rSender,
	}))
	rSender.Close()
	streamVal, err := rReceiver.Recv()
	require.NoError(t, err)
	require.Equal(t, lang.KBinaryStream, streamVal.Kind())

	chunkRecv := streamVal.BinaryStreamReceiver()
	var got []byte
	for {
		chunk, err := chunkRecv.Recv()
		if err != nil {
			break
		}
		got = append(got, chunk.Bytes()...)
	}
	require.Equal(t, "hello world", string(got))
}

func TestReadMissingFileErrors(t *testing.T) {
	ns := newNS(t)
	readCmd, err := ns.GlobalStaticCmd("read")
	require.NoError(t, err)
	sender, _ := lang.NewPipe(1, nil)
	defer sender.Close()
	err = readCmd.Invoke(&lang.Context{
		Arguments: []lang.Argument{{Val: lang.NewString(filepath.Join(t.TempDir(), "nope"))}},
		Output:    sender,
	})
	require.Error(t, err)
}

func TestWriteStreamDrainsToFile(t *testing.T) {
	ns := newNS(t)
	path := filepath.Join(t.TempDir(), "stream.bin")

	streamSender, streamReceiver := lang.NewPipe(2, nil)
	require.NoError(t, streamSender.Send(lang.NewBinary([]byte("ab"))))
	require.NoError(t, streamSender.Send(lang.NewBinary([]byte("cd"))))
	streamSender.Close()

	writeCmd, err := ns.GlobalStaticCmd("write")
	require.NoError(t, err)
	sender, receiver := lang.NewPipe(1, nil)
	require.NoError(t, writeCmd.Invoke(&lang.Context{
		Arguments: []lang.Argument{
			{Val: lang.NewString(path)},
			{Val: lang.NewBinaryStream(streamReceiver)},
		},
		Output: sender,
	}))
	sender.Close()
	n, err := receiver.Recv()
	require.NoError(t, err)
	require.Equal(t, int64(4), n.Int())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abcd", string(got))
}
