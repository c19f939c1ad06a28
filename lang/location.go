// Package lang implements the language runtime: the value and type system,
// the AST, the compiler, the typed pipe executor, and the command
// abstraction that together form the core of the shell.
package lang

import "fmt"

// Location is a span [Start, End) of byte offsets into a script's source
// text. Locations are immutable once constructed.
type Location struct {
	Start, End int
}

// NoLocation is returned for synthetic nodes that were never parsed from
// source text (e.g. builtin-constructed ASTs).
var NoLocation = Location{-1, -1}

// Union returns the smallest span containing both l and o.
func (l Location) Union(o Location) Location {
	if l == NoLocation {
		return o
	}
	if o == NoLocation {
		return l
	}
	start, end := l.Start, l.End
	if o.Start < start {
		start = o.Start
	}
	if o.End > end {
		end = o.End
	}
	return Location{start, end}
}

func (l Location) String() string {
	if l == NoLocation {
		return "<internal>"
	}
	return fmt.Sprintf("%d:%d", l.Start, l.End)
}

// TrackedString pairs literal text with the Location it was parsed from.
// Equality compares content only; the Location is carried for diagnostics.
type TrackedString struct {
	Text string
	Loc  Location
}

// NewTrackedString constructs a TrackedString from raw content and its span.
func NewTrackedString(text string, loc Location) TrackedString {
	return TrackedString{Text: text, Loc: loc}
}

// Prefix truncates Text to the span [Loc.Start, pos) and returns the result,
// leaving the receiver untouched.
func (t TrackedString) Prefix(pos int) TrackedString {
	n := pos - t.Loc.Start
	if n < 0 {
		n = 0
	}
	if n > len(t.Text) {
		n = len(t.Text)
	}
	return TrackedString{Text: t.Text[:n], Loc: Location{t.Loc.Start, pos}}
}

// SliceToEnd drops the first k characters of Text, adjusting the Location's
// start accordingly.
func (t TrackedString) SliceToEnd(k int) TrackedString {
	if k > len(t.Text) {
		k = len(t.Text)
	}
	return TrackedString{Text: t.Text[k:], Loc: Location{t.Loc.Start + k, t.Loc.End}}
}

// Eq compares two TrackedStrings by content only.
func (t TrackedString) Eq(o TrackedString) bool { return t.Text == o.Text }

func (t TrackedString) String() string { return t.Text }
