package lang

import (
	"fmt"
	"strings"

	"github.com/mascguy/crush-shell/hash"
)

// Node is the common interface of every AST node. Grounded on the teacher's
// ASTNode interface family (gql/ast.go: ASTLiteral, ASTVarRef,
// ASTStructFieldRef, ASTFuncall, ASTLambda, ASTCondOp, ASTLogicalOp,
// ASTBlock), with evaluation moved out of the node into the compiler: a
// node carries only its position, printed form, kind name and hash,
// generalized to the node set spec §3/§4.4 names.
type Node interface {
	// Pos returns the node's source span, derived from its constituents
	// (spec §8: "n.location() covers every token contributed by n and no
	// more").
	Pos() Location
	String() string
	// TypeName produces a human-readable kind name for diagnostics.
	TypeName() string
	// Hash returns a content hash of the node, precomputed at construction
	// the way the teacher caches a hash.Hash per node for constant-folding
	// and CSE dedup.
	Hash() hash.Hash
}

func hashOf(s string) hash.Hash { return hash.String(s) }

// --- literal / leaf nodes ---

// Identifier references a variable by name (a "$name" token).
type Identifier struct {
	Loc  Location
	Name string
}

func (n *Identifier) Pos() Location    { return n.Loc }
func (n *Identifier) TypeName() string { return "identifier" }
func (n *Identifier) String() string   { return "$" + n.Name }
func (n *Identifier) Hash() hash.Hash  { return hashOf("id:" + n.Name) }

// StringNode is a string literal; Quoted tracks whether it was written with
// quotes at parse time (spec §4.4: quoted vs. unquoted compile differently
// in command position).
type StringNode struct {
	Loc    Location
	Text   string
	Quoted bool
}

func (n *StringNode) Pos() Location    { return n.Loc }
func (n *StringNode) TypeName() string { return "string" }
func (n *StringNode) String() string {
	if n.Quoted {
		return fmt.Sprintf("%q", n.Text)
	}
	return n.Text
}
func (n *StringNode) Hash() hash.Hash { return hashOf("str:" + n.Text) }

// FileNode is a filesystem path literal.
type FileNode struct {
	Loc    Location
	Path   string
	Quoted bool
}

func (n *FileNode) Pos() Location    { return n.Loc }
func (n *FileNode) TypeName() string { return "file" }
func (n *FileNode) String() string   { return n.Path }
func (n *FileNode) Hash() hash.Hash  { return hashOf("file:" + n.Path) }

// IntegerNode is an integer literal; Text retains underscores for
// diagnostics, e.g. "1_000_000".
type IntegerNode struct {
	Loc  Location
	Text string
}

func (n *IntegerNode) Pos() Location    { return n.Loc }
func (n *IntegerNode) TypeName() string { return "integer" }
func (n *IntegerNode) String() string   { return n.Text }
func (n *IntegerNode) Hash() hash.Hash  { return hashOf("int:" + n.Text) }

// FloatNode is a float literal.
type FloatNode struct {
	Loc  Location
	Text string
}

func (n *FloatNode) Pos() Location    { return n.Loc }
func (n *FloatNode) TypeName() string { return "float" }
func (n *FloatNode) String() string   { return n.Text }
func (n *FloatNode) Hash() hash.Hash  { return hashOf("float:" + n.Text) }

// GlobNode is a shell-style glob pattern literal.
type GlobNode struct {
	Loc     Location
	Pattern string
}

func (n *GlobNode) Pos() Location    { return n.Loc }
func (n *GlobNode) TypeName() string { return "glob" }
func (n *GlobNode) String() string   { return n.Pattern }
func (n *GlobNode) Hash() hash.Hash  { return hashOf("glob:" + n.Pattern) }

// RegexNode is a regular-expression literal.
type RegexNode struct {
	Loc    Location
	Source string
}

func (n *RegexNode) Pos() Location    { return n.Loc }
func (n *RegexNode) TypeName() string { return "regex" }
func (n *RegexNode) String() string   { return "/" + n.Source + "/" }
func (n *RegexNode) Hash() hash.Hash  { return hashOf("regex:" + n.Source) }

// --- compound expression nodes ---

// Assignment covers both "=" (assign) and ":=" (declare) forms, in either
// argument position (named argument) or command position (special
// command), per spec §4.4.
type Assignment struct {
	Loc      Location
	Target   Node
	Operator string // "=" or ":="
	Value    Node
}

func (n *Assignment) Pos() Location    { return n.Loc }
func (n *Assignment) TypeName() string { return "assignment" }
func (n *Assignment) String() string {
	return fmt.Sprintf("%s %s %s", n.Target, n.Operator, n.Value)
}
func (n *Assignment) Hash() hash.Hash {
	return n.Target.Hash().Merge(hashOf(n.Operator)).Merge(n.Value.Hash())
}

// Unary covers "@" (list splat) and "@@" (dict splat) prefix operators.
type Unary struct {
	Loc      Location
	Operator string // "@" or "@@"
	Operand  Node
}

func (n *Unary) Pos() Location    { return n.Loc }
func (n *Unary) TypeName() string { return "unary" }
func (n *Unary) String() string   { return n.Operator + n.Operand.String() }
func (n *Unary) Hash() hash.Hash  { return hashOf(n.Operator).Merge(n.Operand.Hash()) }

// GetItem is a subscript expression: base[key].
type GetItem struct {
	Loc  Location
	Base Node
	Key  Node
}

func (n *GetItem) Pos() Location    { return n.Loc }
func (n *GetItem) TypeName() string { return "get_item" }
func (n *GetItem) String() string   { return fmt.Sprintf("%s[%s]", n.Base, n.Key) }
func (n *GetItem) Hash() hash.Hash  { return n.Base.Hash().Merge(n.Key.Hash()) }

// GetAttr is an attribute-access expression: base.name.
type GetAttr struct {
	Loc  Location
	Base Node
	Name string
}

func (n *GetAttr) Pos() Location    { return n.Loc }
func (n *GetAttr) TypeName() string { return "get_attr" }
func (n *GetAttr) String() string   { return fmt.Sprintf("%s.%s", n.Base, n.Name) }
func (n *GetAttr) Hash() hash.Hash  { return n.Base.Hash().Merge(hashOf(n.Name)) }

// Substitution is a nested job whose output becomes a value in the
// enclosing expression: $(...).
type Substitution struct {
	Loc Location
	Job *JobNode
}

func (n *Substitution) Pos() Location    { return n.Loc }
func (n *Substitution) TypeName() string { return "substitution" }
func (n *Substitution) String() string   { return "$(" + n.Job.String() + ")" }
func (n *Substitution) Hash() hash.Hash  { return hashOf("subst:").Merge(n.Job.Hash()) }

// Closure is a user-defined command literal: optional explicit parameters
// plus a body job list.
type Closure struct {
	Loc    Location
	Params []*ParameterNode // nil: implicit single $_ parameter.
	Body   *JobListNode
}

func (n *Closure) Pos() Location    { return n.Loc }
func (n *Closure) TypeName() string { return "closure" }
func (n *Closure) String() string {
	var b strings.Builder
	b.WriteByte('{')
	if n.Params != nil {
		parts := make([]string, len(n.Params))
		for i, p := range n.Params {
			parts[i] = p.String()
		}
		b.WriteByte('|')
		b.WriteString(strings.Join(parts, " "))
		b.WriteByte('|')
	}
	b.WriteString(n.Body.String())
	b.WriteByte('}')
	return b.String()
}
func (n *Closure) Hash() hash.Hash {
	h := hashOf("closure:")
	for _, p := range n.Params {
		h = h.Merge(p.Hash())
	}
	return h.Merge(n.Body.Hash())
}

// --- grouping nodes ---

// CommandNode is a single command invocation: a sequence of expression
// nodes, the first naming the callable (possibly after special-command
// recognition during compilation — see compile.go).
type CommandNode struct {
	Loc         Location
	Expressions []Node
}

func (n *CommandNode) Pos() Location    { return n.Loc }
func (n *CommandNode) TypeName() string { return "command" }
func (n *CommandNode) String() string {
	parts := make([]string, len(n.Expressions))
	for i, e := range n.Expressions {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}
func (n *CommandNode) Hash() hash.Hash {
	h := hashOf("cmd:")
	for _, e := range n.Expressions {
		h = h.Merge(e.Hash())
	}
	return h
}

// JobNode is a left-to-right pipeline of commands: "a | b | c".
type JobNode struct {
	Loc      Location
	Commands []*CommandNode
}

func (n *JobNode) Pos() Location    { return n.Loc }
func (n *JobNode) TypeName() string { return "job" }
func (n *JobNode) String() string {
	parts := make([]string, len(n.Commands))
	for i, c := range n.Commands {
		parts[i] = c.String()
	}
	return strings.Join(parts, " | ")
}
func (n *JobNode) Hash() hash.Hash {
	h := hashOf("job:")
	for _, c := range n.Commands {
		h = h.Merge(c.Hash())
	}
	return h
}

// JobListNode is a sequence of jobs, e.g. a closure body: "a; b; c".
type JobListNode struct {
	Loc  Location
	Jobs []*JobNode
}

func (n *JobListNode) Pos() Location    { return n.Loc }
func (n *JobListNode) TypeName() string { return "job_list" }
func (n *JobListNode) String() string {
	parts := make([]string, len(n.Jobs))
	for i, j := range n.Jobs {
		parts[i] = j.String()
	}
	return strings.Join(parts, "; ")
}
func (n *JobListNode) Hash() hash.Hash {
	h := hashOf("joblist:")
	for _, j := range n.Jobs {
		h = h.Merge(j.Hash())
	}
	return h
}

// ParameterNode is one formal parameter of a Closure: a name, optional
// declared type expression, optional default-value expression, and an
// optional varargs marker (a trailing "...").
type ParameterNode struct {
	Loc      Location
	Name     string
	TypeExpr Node // nil: untyped (Any).
	Default  Node // nil: no default.
	Varargs  bool
}

func (n *ParameterNode) Pos() Location    { return n.Loc }
func (n *ParameterNode) TypeName() string { return "parameter" }
func (n *ParameterNode) String() string {
	s := n.Name
	if n.TypeExpr != nil {
		s += ":" + n.TypeExpr.String()
	}
	if n.Varargs {
		s += "..."
	}
	if n.Default != nil {
		s += "=" + n.Default.String()
	}
	return s
}
func (n *ParameterNode) Hash() hash.Hash { return hashOf("param:" + n.Name) }

// Generate resolves the parameter's declared type expression (if any)
// against scope, producing a compiled Param. Grounded on the spec's
// "ParameterNode::generate(scope) (which resolves declared type
// expressions)".
func (n *ParameterNode) Generate(scope *Scope) (Param, error) {
	p := Param{Name: n.Name, Type: AnyType, Varargs: n.Varargs}
	if n.TypeExpr != nil {
		v, err := Eval(n.TypeExpr, scope)
		if err != nil {
			return Param{}, err
		}
		if v.Kind() != KType {
			return Param{}, newShellErr(ErrType, n, "parameter type expression must evaluate to a Type")
		}
		p.Type = v.TypeValue()
	}
	if n.Default != nil {
		p.DefaultExpr = n.Default
	}
	return p, nil
}
