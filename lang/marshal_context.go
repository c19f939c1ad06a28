package lang

import (
	"github.com/mascguy/crush-shell/marshal"
	"github.com/mascguy/crush-shell/symbol"
)

func symbolOf(s string) symbol.ID { return symbol.Intern(s) }

// MarshalContext/UnmarshalContext carry per-encode/decode state needed to
// serialize Command values, whose closures may capture a Scope that in turn
// holds other closures capturing the same scope. Grounded on the teacher's
// gql/marshal_context.go, which assigns integer frame ids to closures
// during encoding so cyclic scope<->closure references resolve; carried
// forward unchanged in mechanism, generalized from gql's Table/struct
// marshaling context to this runtime's Command values.
type MarshalContext struct {
	scopeIDs map[*Scope]int
	started  map[*Scope]bool
}

// NewMarshalContext creates an empty encoding context; one should be
// created per top-level Marshal call and threaded through every nested
// Value.Marshal call.
func NewMarshalContext() *MarshalContext {
	return &MarshalContext{scopeIDs: map[*Scope]int{}, started: map[*Scope]bool{}}
}

func (mc *MarshalContext) idFor(s *Scope) (id int, isNew bool) {
	if id, ok := mc.scopeIDs[s]; ok {
		return id, false
	}
	id = len(mc.scopeIDs)
	mc.scopeIDs[s] = id
	return id, true
}

// MarshalCommand encodes cmd. Builtins are encoded by registered name
// (resolved back to the same builtin at decode time via the global
// namespace); closures are encoded by capturing their defining scope's id —
// on first encounter the full scope contents are written; subsequent
// references to the same scope (the cycle case) write only the id.
func (mc *MarshalContext) MarshalCommand(enc *marshal.Encoder, cmd Command) {
	if b, ok := cmd.(*BuiltinCommand); ok {
		enc.PutByte(0)
		enc.PutString(b.name)
		return
	}
	c := cmd.(*ClosureCommand)
	enc.PutByte(1)
	enc.PutString(c.name)
	enc.PutVarint(int64(len(c.params)))
	for _, p := range c.params {
		enc.PutString(p.Name)
		marshalType(enc, p.Type)
		enc.PutBool(p.Varargs)
	}
	enc.PutString(c.body.String()) // textual form; re-parsing is an external-parser concern.

	id, isNew := mc.idFor(c.defScope)
	enc.PutVarint(int64(id))
	enc.PutBool(isNew)
	if !isNew {
		return
	}
	mc.marshalScope(enc, c.defScope)
}

func (mc *MarshalContext) marshalScope(enc *marshal.Encoder, s *Scope) {
	if mc.started[s] {
		return // cycle: the id already written by the caller is sufficient.
	}
	mc.started[s] = true

	s.mu.Lock()
	names := make([]string, 0, len(s.bindings))
	for id := range s.bindings {
		names = append(names, id.Str())
	}
	vals := make([]Value, 0, len(s.bindings))
	for _, n := range names {
		vals = append(vals, s.bindings[symbolOf(n)])
	}
	s.mu.Unlock()

	enc.PutVarint(int64(len(names)))
	for i, n := range names {
		enc.PutSymbol(n)
		vals[i].Marshal(mc, enc)
	}
}

// UnmarshalContext mirrors MarshalContext for decoding: scope ids map to
// freshly constructed Scopes, populated once their id is first referenced.
type UnmarshalContext struct {
	scopes map[int]*Scope
	lookup func(path string) (Command, error)
}

// NewUnmarshalContext creates a decoding context. lookup resolves a
// builtin's registered name back to its Command; typically
// root.GlobalStaticCmd.
func NewUnmarshalContext(lookup func(path string) (Command, error)) *UnmarshalContext {
	return &UnmarshalContext{scopes: map[int]*Scope{}, lookup: lookup}
}

// UnmarshalCommand decodes a Command previously encoded by MarshalCommand.
func (mc *UnmarshalContext) UnmarshalCommand(dec *marshal.Decoder) Command {
	switch dec.Byte() {
	case 0:
		name := dec.String()
		cmd, err := mc.lookup(name)
		if err != nil {
			Panicf(ErrInternal, nil, "unmarshal command: unknown builtin %q: %v", name, err)
		}
		return cmd
	case 1:
		name := dec.String()
		n := int(dec.Varint())
		params := make([]Param, n)
		for i := range params {
			params[i].Name = dec.String()
			params[i].Type = unmarshalType(dec)
			params[i].Varargs = dec.Bool()
		}
		_ = dec.String() // body textual form: re-parsing is an external-parser concern.

		id := int(dec.Varint())
		isNew := dec.Bool()
		scope := mc.scopeFor(id)
		if isNew {
			mc.unmarshalScopeInto(scope, dec)
		}
		return &ClosureCommand{name: name, params: params, defScope: scope}
	default:
		Panicf(ErrInternal, nil, "corrupt command stream")
		panic("unreachable")
	}
}

func (mc *UnmarshalContext) scopeFor(id int) *Scope {
	if s, ok := mc.scopes[id]; ok {
		return s
	}
	s := NewRootScope()
	mc.scopes[id] = s
	return s
}

func (mc *UnmarshalContext) unmarshalScopeInto(s *Scope, dec *marshal.Decoder) {
	n := int(dec.Varint())
	for i := 0; i < n; i++ {
		name := dec.Symbol()
		v := UnmarshalValue(mc, dec)
		_ = s.Declare(symbolOf(name), v)
	}
}
