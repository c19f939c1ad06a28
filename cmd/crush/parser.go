package crush

import (
	"fmt"

	"github.com/mascguy/crush-shell/lang"
)

// Parser turns source text into a job list ready for lang.Compile. It is a
// named external collaborator: this repository's core is the language
// runtime downstream of the AST (value/type model, scope, compiler, typed
// pipe executor), not the textual syntax that produces it, so Parser has no
// shipped implementation here beyond a stub that reports the gap clearly.
// A production build wires in a real lexer/grammar implementing this
// interface.
type Parser interface {
	// Parse converts src (named name, for diagnostics) into a job list.
	Parse(name string, src []byte) (*lang.JobListNode, error)
}

// unimplementedParser is the zero-value Parser: every call fails with a
// clear message instead of panicking, so a REPL built on it degrades
// gracefully rather than crashing.
type unimplementedParser struct{}

func (unimplementedParser) Parse(name string, _ []byte) (*lang.JobListNode, error) {
	return nil, fmt.Errorf("%s: no textual parser is wired into this build", name)
}
