// Package stdlib assembles the shell's standard library: the control-flow
// keywords plus the comp/type/pup/io namespaces, each implemented in its
// own stdcmd subpackage. Kept separate from package lang (which defines
// lang.NewStdlib's wiring mechanism) because every stdcmd subpackage
// imports lang; lang importing them back would cycle.
package stdlib

import (
	"github.com/mascguy/crush-shell/lang"
	"github.com/mascguy/crush-shell/stdcmd/comp"
	"github.com/mascguy/crush-shell/stdcmd/ioc"
	"github.com/mascguy/crush-shell/stdcmd/pup"
	"github.com/mascguy/crush-shell/stdcmd/typens"
)

// New builds a fresh, sealed root scope carrying every standard namespace
// (spec §6: comp, type, pup, io, plus the control-flow keywords registered
// directly into the root by lang.NewStdlib). comp's operators are also
// use-imported into the root so scripts can write "eq $a $b" unqualified,
// matching the teacher's builtins being globally visible without a
// namespace prefix (gql/builtin_ops.go's functions live directly in the
// global Session binding table).
func New() (*lang.Scope, error) {
	return lang.NewStdlib(
		lang.StdlibNamespace{Name: "comp", Use: true, Register: comp.Register},
		lang.StdlibNamespace{Name: "type", Register: typens.Register},
		lang.StdlibNamespace{Name: "io", Register: ioc.Register},
		lang.StdlibNamespace{Name: "pup", Register: pupRegister},
	)
}

// pupRegister adapts pup.Register's extra lookup parameter to
// lang.NamespaceRegistrar's single-argument shape, wiring it to the root
// scope's own GlobalStaticCmd so "pup:from" can resolve closures that
// capture global commands by dotted path (spec §6 "pup" interface).
func pupRegister(ns *lang.Scope) error {
	return pup.Register(ns, rootLookup(ns))
}

// rootLookup returns ns's owning root scope's GlobalStaticCmd, deferring
// the lookup until call time since ns's root is still being assembled when
// pupRegister runs (its siblings have not yet been declared).
func rootLookup(ns *lang.Scope) func(path string) (lang.Command, error) {
	return func(path string) (lang.Command, error) {
		return ns.GlobalStaticCmd(path)
	}
}
