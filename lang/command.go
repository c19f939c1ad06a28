package lang

import (
	"io"

	"github.com/mascguy/crush-shell/symbol"
)

// Argument is a realized, named-or-positional value presented to a command
// at call time (spec §4.8/GLOSSARY). Name is empty for positional
// arguments.
type Argument struct {
	Name string
	Val  Value
}

// Context is the execution environment passed to a Command: the caller's
// scope, its realized arguments, its input/output pipe endpoints, optional
// byte-stream reader/writer, and shared global state. Grounded on the
// teacher's FuncCallback signature (gql/func.go), generalized with
// input/output pipes per spec §4.8 (the teacher's builtins read/write a
// Table directly since gql has no concurrent pipeline).
type Context struct {
	Scope     *Scope
	Arguments []Argument

	Input  *Receiver
	Output *Sender

	Reader io.Reader
	Writer io.Writer

	Globals *Globals
}

// Arg returns the first argument bound to name, or (Empty, false).
func (c *Context) Arg(name string) (Value, bool) {
	for _, a := range c.Arguments {
		if a.Name == name {
			return a.Val, true
		}
	}
	return EmptyValue, false
}

// Positional returns the arguments with no name, in call order.
func (c *Context) Positional() []Value {
	var out []Value
	for _, a := range c.Arguments {
		if a.Name == "" {
			out = append(out, a.Val)
		}
	}
	return out
}

// Globals is the shell's process-lifetime shared state: the printer used by
// terminal-facing commands and the job table tracking in-flight pipelines.
// Grounded on the teacher's Session struct (gql/gql.go), trimmed to what
// SPEC_FULL's command layer actually needs.
type Globals struct {
	Printer interface {
		Print(string)
	}
	Jobs *JobTable
}

// Command is the uniform callable: Context -> error. Grounded on the
// teacher's Func/FormalArg/FuncCallback machinery (gql/func.go); Invoke
// corresponds to the teacher's FuncCallback, generalized to report failure
// as a typed *ShellError instead of calling gql/panic.go's Panicf directly.
type Command interface {
	Name() string
	// CanBlock reports whether invoking this command may block on I/O or a
	// pipe operation. Spec §6: "can-block flag" supplied at registration.
	// The teacher has no such flag (gql evaluates single-threaded per
	// expression); this runtime's concurrent pipeline (§5) uses it to
	// decide whether an invocation needs a dedicated worker-pool slot.
	CanBlock() bool
	Invoke(ctx *Context) error
}

// FormalArg describes one parameter of a builtin command's signature.
type FormalArg struct {
	Name     string
	Type     ValueType
	Required bool
	Default  *Value
	Variadic bool // true for a trailing @-splat-accepting parameter
}

// BuiltinCommand is a Command implemented in Go, registered into a
// namespace via RegisterBuiltinCommand. Mirrors the teacher's Func struct
// (name, callback, formalArgs, description) with the new CanBlock flag.
type BuiltinCommand struct {
	name      string
	canBlock  bool
	formal    []FormalArg
	shortHelp string
	longHelp  string
	fn        func(ctx *Context) error
}

func (b *BuiltinCommand) Name() string     { return b.name }
func (b *BuiltinCommand) CanBlock() bool   { return b.canBlock }
func (b *BuiltinCommand) FormalArgs() []FormalArg { return b.formal }
func (b *BuiltinCommand) ShortHelp() string { return b.shortHelp }
func (b *BuiltinCommand) LongHelp() string  { return b.longHelp }

func (b *BuiltinCommand) Invoke(ctx *Context) error {
	if err := checkFormalArgs(b.formal, ctx.Arguments); err != nil {
		return err
	}
	return b.fn(ctx)
}

func checkFormalArgs(formal []FormalArg, actual []Argument) error {
	seen := map[string]bool{}
	for _, a := range actual {
		if a.Name != "" {
			seen[a.Name] = true
		}
	}
	for _, f := range formal {
		if f.Required && !f.Variadic && !seen[f.Name] {
			// Positional-only builtins (no Name set on any FormalArg) skip
			// this check; arity is validated by the callback itself.
			if f.Name != "" {
				return newShellErr(ErrArgument, nil, "missing required argument %q", f.Name)
			}
		}
	}
	return nil
}

// RegisterBuiltinCommand registers a new builtin into ns under name.
// Fails if ns is already sealed (spec §6: "Registration fails if the
// namespace is already sealed.").
func RegisterBuiltinCommand(
	ns *Scope,
	name string,
	canBlock bool,
	formal []FormalArg,
	shortHelp, longHelp string,
	fn func(ctx *Context) error,
) error {
	cmd := &BuiltinCommand{
		name: name, canBlock: canBlock, formal: formal,
		shortHelp: shortHelp, longHelp: longHelp, fn: fn,
	}
	return ns.Declare(symbol.Intern(name), NewCommand(cmd))
}

// JobTable tracks in-flight pipelines for introspection (e.g. a future
// "jobs" builtin); it carries no behavior of its own beyond bookkeeping.
type JobTable struct {
	jobs []*Job
}

func (t *JobTable) Add(j *Job)    { t.jobs = append(t.jobs, j) }
func (t *JobTable) All() []*Job   { return t.jobs }
