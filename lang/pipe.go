package lang

import (
	"context"
	"io"
	"sync"
)

// Pipe is the shared state of a typed single-producer/single-consumer
// channel (spec §4.7). This is a **new implementation**: the teacher's
// closest analog, Table/TableScanner (gql/table.go), is a pull-based
// Scan()/Value() iterator with no built-in backpressure or cancellation of
// its own. Grounded instead on the context.Context cancellation idiom
// threaded through every teacher eval/Scanner call (gql/context.go's
// CheckCancellation) applied to a genuine bounded Go channel.
type Pipe struct {
	ch     chan pipeItem
	schema []ColumnType // non-nil: pipe carries rows; nil: pipe carries single Values.

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

type pipeItem struct {
	value Value
	row   []Value
}

// NewPipe creates a sender/receiver pair with the given bounded buffer size.
// A nil schema means the pipe carries plain Values; a non-nil schema means
// it carries rows conforming to that schema (a TableStream).
func NewPipe(bufSize int, schema []ColumnType) (*Sender, *Receiver) {
	if bufSize < 0 {
		bufSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipe{ch: make(chan pipeItem, bufSize), schema: schema, ctx: ctx, cancel: cancel}
	return &Sender{p: p}, &Receiver{p: p}
}

// Schema returns the pipe's row schema, or nil for a plain-Value pipe.
func (p *Pipe) Schema() []ColumnType { return p.schema }

// Sender is the producer end of a Pipe.
type Sender struct {
	p      *Pipe
	closed bool
}

// Send blocks until the bounded buffer has room or the receiver has closed
// its end, in which case it returns an io ShellError reporting "closed
// remote" (spec §4.7/§5 Cancellation).
func (s *Sender) Send(v Value) error {
	return s.send(pipeItem{value: v})
}

// SendRow is like Send but for a row pipe (TableOutputStream).
func (s *Sender) SendRow(row []Value) error {
	return s.send(pipeItem{row: row})
}

func (s *Sender) send(item pipeItem) error {
	if s.closed {
		return newShellErr(ErrIO, nil, "send on closed pipe")
	}
	select {
	case s.p.ch <- item:
		return nil
	case <-s.p.ctx.Done():
		return newShellErr(ErrIO, nil, "closed remote")
	}
}

// Close signals end-of-stream to the receiver: its next Recv/RecvRow returns
// io.EOF, not an error (spec §8: "A pipe closed before any send causes recv
// to return end-of-stream, not an error.").
func (s *Sender) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.closeOnce.Do(func() { close(s.p.ch) })
}

// Receiver is the consumer end of a Pipe.
type Receiver struct {
	p *Pipe
}

// Schema returns the row schema this receiver's values conform to, or nil.
func (r *Receiver) Schema() []ColumnType { return r.p.Schema() }

// Recv blocks until a value arrives, the sender closes (io.EOF), or this
// receiver itself has been closed (returns a "closed remote" error to the
// caller, matching a consumer that cancelled its own read).
func (r *Receiver) Recv() (Value, error) {
	item, err := r.recv()
	return item.value, err
}

// RecvRow is like Recv but for a row pipe.
func (r *Receiver) RecvRow() ([]Value, error) {
	item, err := r.recv()
	return item.row, err
}

func (r *Receiver) recv() (pipeItem, error) {
	select {
	case item, ok := <-r.p.ch:
		if !ok {
			return pipeItem{}, io.EOF
		}
		return item, nil
	case <-r.p.ctx.Done():
		return pipeItem{}, newShellErr(ErrIO, nil, "closed remote")
	}
}

// Close cancels the pipe from the consumer side: the producer's next Send
// observes "closed remote" and should terminate (spec §5 Cancellation:
// "a producer whose receiver is gone observes 'closed remote' on its next
// send and terminates").
func (r *Receiver) Close() {
	r.p.cancel()
}

// Materialize drains the receiver into a Table, per spec's Materialize
// operation (TableStream -> Table).
func (r *Receiver) Materialize() (*Table, error) {
	t := &Table{Schema: r.Schema()}
	for {
		row, err := r.RecvRow()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
}

// MaterializeBinary drains a BinaryStream receiver into a single Binary
// value, concatenating each chunk in FIFO order.
func (r *Receiver) MaterializeBinary() (Value, error) {
	var buf []byte
	for {
		v, err := r.Recv()
		if err == io.EOF {
			return NewBinary(buf), nil
		}
		if err != nil {
			return Value{}, err
		}
		buf = append(buf, v.Bytes()...)
	}
}
