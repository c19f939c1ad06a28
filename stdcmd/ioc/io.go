// Package ioc registers the "io" namespace: minimal byte-stream read/write
// builtins operating on Files and BinaryStreams. Grounded on the teacher's
// gql/builtin_read.go ("read(path, type:=...)" opens a Table from a file),
// trimmed of its BAM/TSV/BTSV file-format dispatch (out of scope — this
// runtime has no typed table file formats, only raw bytes) and rebuilt
// against this runtime's Pipe-based BinaryStream instead of gql's
// pull-based Table/Scanner.
package ioc

import (
	"fmt"
	"io"
	"os"

	"github.com/mascguy/crush-shell/lang"
)

const chunkSize = 64 * 1024
const pipeBufSize = 4

// Register installs the io namespace's builtins into ns.
func Register(ns *lang.Scope) error {
	if err := lang.RegisterBuiltinCommand(ns, "read", true,
		[]lang.FormalArg{{Required: true}},
		"open a file as a binary stream", readLongHelp, readCmd); err != nil {
		return err
	}
	if err := lang.RegisterBuiltinCommand(ns, "write", true,
		[]lang.FormalArg{{Required: true}, {Required: true}},
		"write a binary value or stream to a file", writeLongHelp, writeCmd); err != nil {
		return err
	}
	return nil
}

const readLongHelp = `read path

Opens path and emits its contents as a BinaryStream, read in chunks on a
dedicated goroutine (spec §6: "io:read(path) opens a file as a
BinaryStream").`

func readCmd(ctx *lang.Context) error {
	pos := ctx.Positional()
	if len(pos) != 1 {
		return lang.WrapIOErr(nil, errArity("read", 1, len(pos)))
	}
	path := pos[0].Str()
	f, err := os.Open(path)
	if err != nil {
		return lang.WrapIOErr(nil, err)
	}
	sender, receiver := lang.NewPipe(pipeBufSize, nil)
	go streamFile(f, sender)
	return send(ctx, lang.NewBinaryStream(receiver))
}

func streamFile(f *os.File, sender *lang.Sender) {
	defer f.Close()
	defer sender.Close()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			if sendErr := sender.Send(lang.NewBinary(chunk)); sendErr != nil {
				return // receiver gone; stop reading.
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}
	}
}

const writeLongHelp = `write path data

Writes data (a Binary value or a BinaryStream) to path, creating or
truncating it, and reports the number of bytes written as an integer.`

func writeCmd(ctx *lang.Context) error {
	pos := ctx.Positional()
	if len(pos) != 2 {
		return lang.WrapIOErr(nil, errArity("write", 2, len(pos)))
	}
	path, data := pos[0].Str(), pos[1]
	f, err := os.Create(path)
	if err != nil {
		return lang.WrapIOErr(nil, err)
	}
	defer f.Close()

	var n int
	switch data.Kind() {
	case lang.KBinary:
		n, err = f.Write(data.Bytes())
	case lang.KBinaryStream:
		n, err = drainToFile(f, data.BinaryStreamReceiver())
	default:
		return errTypeMismatch("write", data)
	}
	if err != nil {
		return lang.WrapIOErr(nil, err)
	}
	return send(ctx, lang.NewInt(int64(n)))
}

func drainToFile(f *os.File, r *lang.Receiver) (int, error) {
	total := 0
	for {
		v, err := r.Recv()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		n, werr := f.Write(v.Bytes())
		total += n
		if werr != nil {
			return total, werr
		}
	}
}

func errArity(name string, want, got int) error {
	return fmt.Errorf("%s: expected %d arguments, got %d", name, want, got)
}

func errTypeMismatch(name string, v lang.Value) error {
	return fmt.Errorf("%s: expected a binary value or stream, got %s", name, v.Kind())
}

func send(ctx *lang.Context, v lang.Value) error {
	if ctx.Output == nil {
		return nil
	}
	return ctx.Output.Send(v)
}
