package lang

import (
	"strings"
	"sync"

	"github.com/mascguy/crush-shell/symbol"
)

// Scope is a lexical environment frame: a parent link, a name->Value
// binding table, an imported-namespace list, a read-only seal, and a
// stopped flag used by control flow. Grounded on the teacher's
// bindings/callFrame stack (gql/eval.go), generalized with the readonly,
// use-import, and stopped fields spec §3 requires as first-class state
// (the teacher only has the first two, implicitly, via its globalConsts
// frame and panic-based control flow).
//
// Per-frame locking (spec §5 "Shared state") replaces the teacher's single
// Session.mu sync.Mutex (gql/gql.go) guarding one global env pointer-swap:
// here each Scope frame owns its own mutex, since a concurrent pipeline may
// run many frames at once.
type Scope struct {
	mu sync.Mutex

	parent *Scope
	root   *Scope

	bindings map[symbol.ID]Value
	uses     []*Scope // LIFO import order: uses[len-1] is checked first.

	isLoop   bool
	readonly bool
	stopped  bool
}

// NewRootScope creates a fresh top-level scope with no parent.
func NewRootScope() *Scope {
	s := &Scope{bindings: map[symbol.ID]Value{}}
	s.root = s
	return s
}

// CreateChild creates a child of s. create_child never seals the child,
// regardless of whether s is sealed (spec §3 invariant).
func (s *Scope) CreateChild(isLoop bool) *Scope {
	return &Scope{
		bindings: map[symbol.ID]Value{},
		parent:   s,
		root:     s.root,
		isLoop:   isLoop,
	}
}

// Use imports other's namespace for unqualified lookup: subsequent Get
// calls resolve unqualified names in other's own bindings, after local
// lookup, in LIFO import order (spec §4.3).
func (s *Scope) Use(other *Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readonly {
		return newShellErr(ErrSealed, nil, "scope is read-only")
	}
	s.uses = append(s.uses, other)
	return nil
}

// Declare creates a new binding in this exact frame. Fails if the name is
// already bound locally or the frame is sealed.
func (s *Scope) Declare(name symbol.ID, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.declareLocked(name, v)
}

func (s *Scope) declareLocked(name symbol.ID, v Value) error {
	if s.readonly {
		return newShellErr(ErrSealed, nil, "cannot declare %q: frame is read-only", name.Str())
	}
	if _, ok := s.bindings[name]; ok {
		return newShellErr(ErrArgument, nil, "%q is already declared in this frame", name.Str())
	}
	s.bindings[name] = v
	return nil
}

// Let declares name in the nearest enclosing function frame — i.e. it walks
// past loop frames created by the iteration driver (spec §4.6) so that a
// ":=" inside a loop body declares in the frame the loop itself runs in,
// not a throwaway per-iteration child.
func (s *Scope) Let(name symbol.ID, v Value) error {
	frame := s
	for frame.isLoop && frame.parent != nil {
		frame = frame.parent
	}
	frame.mu.Lock()
	defer frame.mu.Unlock()
	return frame.declareLocked(name, v)
}

// Set walks the parent chain looking for an existing binding of name and
// assigns to it. Fails if the name is unknown anywhere in the chain, or if
// the frame that owns the binding is sealed.
func (s *Scope) Set(name symbol.ID, v Value) error {
	for frame := s; frame != nil; frame = frame.parent {
		frame.mu.Lock()
		if _, ok := frame.bindings[name]; ok {
			if frame.readonly {
				frame.mu.Unlock()
				return newShellErr(ErrSealed, nil, "cannot assign %q: frame is read-only", name.Str())
			}
			frame.bindings[name] = v
			frame.mu.Unlock()
			return nil
		}
		frame.mu.Unlock()
	}
	return newShellErr(ErrLookup, nil, "unknown variable %q", name.Str())
}

// Get resolves name: local bindings first, then this frame's imported
// namespaces in LIFO order, then the parent chain (which repeats the same
// local-then-uses check at each ancestor). This ordering is this runtime's
// resolution of an ambiguity spec.md leaves open (it specifies uses are
// consulted "after local lookup" but not their priority relative to the
// parent chain).
func (s *Scope) Get(name symbol.ID) (Value, error) {
	for frame := s; frame != nil; frame = frame.parent {
		frame.mu.Lock()
		if v, ok := frame.bindings[name]; ok {
			frame.mu.Unlock()
			return v, nil
		}
		uses := frame.uses
		frame.mu.Unlock()
		for i := len(uses) - 1; i >= 0; i-- {
			uses[i].mu.Lock()
			v, ok := uses[i].bindings[name]
			uses[i].mu.Unlock()
			if ok {
				return v, nil
			}
		}
	}
	return Value{}, newShellErr(ErrLookup, nil, "unknown variable %q", name.Str())
}

// Readonly seals this frame: no further Declare/Let/Set/Use succeeds
// against it.
func (s *Scope) Readonly() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readonly = true
}

// IsReadonly reports whether this frame is sealed.
func (s *Scope) IsReadonly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readonly
}

// Stop sets this frame's stopped flag, used by control-flow commands
// (break/return) to unwind the iteration driver (spec §4.6).
func (s *Scope) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// IsStopped reports whether this exact frame has been stopped.
func (s *Scope) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// GlobalStaticCmd traverses a fixed dotted path (e.g. "global:var:set") from
// the global root scope, returning the bound Command. Fails if any segment
// is missing or is not a Command. Generalizes the teacher's
// Session.Bindings() + symbol.Intern global lookup (gql/gql.go) into a
// dotted-path walk.
func (s *Scope) GlobalStaticCmd(path string) (Command, error) {
	segs := strings.Split(path, ":")
	cur := s.root
	var v Value
	for i, seg := range segs {
		id := symbol.Intern(seg)
		var err error
		cur.mu.Lock()
		bv, ok := cur.bindings[id]
		cur.mu.Unlock()
		if !ok {
			return nil, newShellErr(ErrLookup, nil, "unknown global path segment %q in %q", seg, path)
		}
		v = bv
		if i < len(segs)-1 {
			if v.Kind() != KScope {
				return nil, newShellErr(ErrLookup, nil, "%q is not a namespace", seg)
			}
			cur = v.Scope()
		}
		_ = err
	}
	if v.Kind() != KCommand {
		return nil, newShellErr(ErrLookup, nil, "%q does not name a command", path)
	}
	return v.Command(), nil
}
