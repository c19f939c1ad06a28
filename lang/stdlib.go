package lang

import "github.com/mascguy/crush-shell/symbol"

// NamespaceRegistrar installs one standard namespace's builtins into ns.
// stdcmd/comp, stdcmd/typens, stdcmd/ioc, and stdcmd/pup each expose a
// function of (or adaptable to) this shape via their own Register funcs;
// NewStdlib wires them together without lang importing any of those
// packages directly (they already import lang, so the reverse import would
// cycle).
type NamespaceRegistrar func(ns *Scope) error

// StdlibNamespace names one sub-scope to declare under the root and the
// registrar that populates it.
type StdlibNamespace struct {
	// Name is the path segment the namespace is declared under, e.g. "comp"
	// makes its builtins reachable as "comp:eq". Empty means the registrar
	// runs directly against the root scope instead of a child. (control.go's
	// if/for/break/return do not go through this: NewStdlib registers them
	// in the root itself via RegisterControlCommands.)
	Name string
	// Use, when true and Name is non-empty, additionally imports the child
	// namespace into the root via Scope.Use so its members resolve
	// unqualified (spec §4.3's use/LIFO-import semantics) in addition to
	// the qualified "name:member" path.
	Use      bool
	Register NamespaceRegistrar
}

// NewStdlib builds the root scope of a fresh shell process: a root Scope
// with RegisterControlCommands plus every namespace in namespaces declared
// and registered, then seals the root and each of those namespace scopes
// read-only (the global:var scopes RegisterControlCommands creates are not
// sealed) (spec §6: "the
// standard library is sealed before user scripts run"). Grounded on the
// teacher's gql.Init/NewSession pair (gql/gql.go), which builds one global
// Session wrapping a fixed set of builtin bindings; generalized here to a
// caller-supplied namespace list so cmd/crush and tests can both build the
// same tree without lang importing stdcmd (which imports lang).
func NewStdlib(namespaces ...StdlibNamespace) (*Scope, error) {
	root := NewRootScope()
	if err := RegisterControlCommands(root); err != nil {
		return nil, err
	}
	for _, n := range namespaces {
		if n.Name == "" {
			if err := n.Register(root); err != nil {
				return nil, err
			}
			continue
		}
		child := root.CreateChild(false)
		if err := n.Register(child); err != nil {
			return nil, err
		}
		child.Readonly()
		if err := root.Declare(symbol.Intern(n.Name), NewScopeValue(child)); err != nil {
			return nil, err
		}
		if n.Use {
			if err := root.Use(child); err != nil {
				return nil, err
			}
		}
	}
	symbol.MarkPreInternedSymbols()
	root.Readonly()
	return root, nil
}
