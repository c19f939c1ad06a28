package lang

import (
	"context"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// pipeBufSize is the bounded buffer size used for pipes created between
// adjacent invocations of a Job, per spec §4.7's backpressure contract.
const pipeBufSize = 16

// workerPool bounds the number of concurrently executing, blocking command
// invocations, the way the teacher's parallel_map_filter_table.go bounds
// concurrent bigslice shard workers via golang.org/x/sync/semaphore — here
// generalized from "one worker per shard" to "one worker per command
// invocation in a job" (spec §5).
var workerPool = semaphore.NewWeighted(int64(runtime.NumCPU() * 4))

// Job exposed at package level (see compile.go); RunJob executes one
// compiled Job as a concurrent pipeline, per spec §4.5: each invocation
// runs on its own worker, connected by the bounded pipes of §4.7.
//
// RunJob allocates n-1 internal pipes for n invocations, wiring the first
// invocation's input to in and the last's output to out. It returns the
// first failure among all invocations (spec §7: "the driver collects the
// first failure per job and surfaces it").
func RunJob(j *Job, scope *Scope, g *Globals, in *Receiver, out *Sender) error {
	n := len(j.Invocations)
	if n == 0 {
		return nil
	}
	receivers := make([]*Receiver, n)
	senders := make([]*Sender, n)
	receivers[0] = in
	senders[n-1] = out
	for i := 0; i < n-1; i++ {
		s, r := NewPipe(pipeBufSize, nil)
		senders[i] = s
		receivers[i+1] = r
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, inv := range j.Invocations {
		wg.Add(1)
		go func(i int, inv *CommandInvocation) {
			defer wg.Done()
			// Each invocation owns its outgoing sender (if it is not the
			// job-level output, which the caller owns) and must close it
			// on completion so its consumer observes end-of-stream.
			ownsSender := i != n-1
			if ownsSender {
				defer senders[i].Close()
			}
			err := runInvocation(inv, scope, g, receivers[i], senders[i])
			errs[i] = err
			if err != nil && receivers[i] != nil && i != 0 {
				// Propagate failure upstream: our input receiver closing
				// tells the producer "closed remote" on its next send
				// (spec §5 Cancellation).
				receivers[i].Close()
			}
		}(i, inv)
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// RunJobWithIO is RunJob plus a convenience single-value return for callers
// (e.g. ClosureCommand.Invoke) that want the last value the job produced in
// addition to running it against explicit input/output pipes.
func RunJobWithIO(j *Job, scope *Scope, g *Globals, in *Receiver, out *Sender) (Value, error) {
	localOut, capture := NewPipe(pipeBufSize, nil)
	var forwardErr error
	done := make(chan struct{})
	var last Value = EmptyValue
	go func() {
		defer close(done)
		for {
			v, err := capture.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				forwardErr = err
				return
			}
			last = v
			if out != nil {
				if sendErr := out.Send(v); sendErr != nil {
					forwardErr = sendErr
					return
				}
			}
		}
	}()
	err := RunJob(j, scope, g, in, localOut)
	localOut.Close()
	<-done
	if err != nil {
		return Value{}, err
	}
	if forwardErr != nil {
		return Value{}, forwardErr
	}
	return last, nil
}

// RunJobCapture runs j with no external input, draining its output into a
// single Value for use as a substitution's value (spec §3: "Substitution:
// a nested job whose output becomes a value in the enclosing expression").
// Zero emitted values yields Empty; exactly one yields that value; more
// than one yields a List of them.
func RunJobCapture(j *Job, scope *Scope, g *Globals) (Value, error) {
	sender, receiver := NewPipe(pipeBufSize, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- RunJob(j, scope, g, nil, sender) }()

	var vals []Value
	for {
		v, err := receiver.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			<-errCh
			return Value{}, err
		}
		vals = append(vals, v)
	}
	if err := <-errCh; err != nil {
		return Value{}, err
	}
	switch len(vals) {
	case 0:
		return EmptyValue, nil
	case 1:
		return vals[0], nil
	default:
		return NewList(&List{Elem: AnyType, Vals: vals}), nil
	}
}

// runInvocation evaluates inv's callable and arguments against scope, then
// invokes the resulting Command. Blocking commands (CanBlock()==true)
// acquire a slot from the shared worker pool for the duration of the call,
// bounding total concurrent blocking work (spec §5).
func runInvocation(inv *CommandInvocation, scope *Scope, g *Globals, in *Receiver, out *Sender) error {
	callable, err := inv.Callable.Eval(scope, g)
	if err != nil {
		return err
	}
	if callable.Kind() != KCommand {
		return newShellErr(ErrType, inv.Callable, "value is not callable (got %s)", callable.Kind())
	}
	cmd := callable.Command()
	args, err := realizeArguments(inv.Args, scope, g)
	if err != nil {
		return err
	}
	ctx := &Context{Scope: scope, Arguments: args, Input: in, Output: out, Globals: g}

	if cmd.CanBlock() {
		if err := workerPool.Acquire(context.Background(), 1); err != nil {
			return newShellErr(ErrInternal, inv, "worker pool: %v", err)
		}
		defer workerPool.Release(1)
	}
	return invokeRecoverable(cmd, ctx, inv)
}

// InvokeCommand runs cmd against ctx with the same panic-to-ShellError
// recovery runInvocation gives commands reached through a compiled Job,
// for callers (e.g. the iteration driver) that invoke a Command value
// directly rather than through RunJob.
func InvokeCommand(cmd Command, ctx *Context) error {
	return invokeRecoverable(cmd, ctx, nil)
}

// invokeRecoverable calls cmd.Invoke, converting any panic raised via
// Panicf (or an unexpected runtime panic) into the returned error, so a
// single failing invocation never crashes the rest of the pipeline.
func invokeRecoverable(cmd Command, ctx *Context, loc Locator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			se := RecoverShellError(r)
			if se.Loc == NoLocation && loc != nil {
				se.Loc = loc.Pos()
			}
			err = se
		}
	}()
	return cmd.Invoke(ctx)
}

// realizeArguments evaluates each ArgumentDefinition against scope,
// expanding @ (list splat) and @@ (dict splat) markers at call time against
// the callee's arguments (spec §9: "Defer expansion to call time").
func realizeArguments(defs []ArgumentDefinition, scope *Scope, g *Globals) ([]Argument, error) {
	var args []Argument
	for _, d := range defs {
		v, err := d.Value.Eval(scope, g)
		if err != nil {
			return nil, err
		}
		switch d.Switch {
		case Positional:
			args = append(args, Argument{Val: v})
		case Named:
			args = append(args, Argument{Name: d.Name, Val: v})
		case ListSplat:
			if v.Kind() != KList {
				return nil, newShellErr(ErrArgument, nil, "@ splat requires a list, got %s", v.Kind())
			}
			for _, e := range v.List().Vals {
				args = append(args, Argument{Val: e})
			}
		case DictSplat:
			if v.Kind() != KDict {
				return nil, newShellErr(ErrArgument, nil, "@@ splat requires a dict, got %s", v.Kind())
			}
			var spErr error
			v.Dict().Each(func(k, val Value) {
				if spErr != nil {
					return
				}
				if k.Kind() != KString {
					spErr = newShellErr(ErrArgument, nil, "@@ splat requires string keys")
					return
				}
				args = append(args, Argument{Name: k.Str(), Val: val})
			})
			if spErr != nil {
				return nil, spErr
			}
		}
	}
	return args, nil
}
