package lang

import (
	"fmt"
	"strings"

	"github.com/mascguy/crush-shell/symbol"
)

// Kind enumerates every Value variant, mirroring the teacher's ValueType
// enum (gql/value_type.go) expanded to the full variant set of spec.md §3.
type Kind int

const (
	KString Kind = iota
	KInteger
	KFloat
	KBool
	KTime
	KDuration
	KField
	KGlob
	KRegex
	KFile
	KBinary
	KBinaryStream
	KCommand
	KStruct
	KTable
	KTableStream
	KList
	KDict
	KScope
	KType
	KEmpty
	KAny // matches every Value; used only in type expressions, never as a Value's own type.
)

var kindNames = [...]string{
	"string", "integer", "float", "bool", "time", "duration",
	"field", "glob", "regex", "file", "binary", "binary_stream",
	"command", "struct", "table", "table_stream", "list", "dict",
	"scope", "type", "empty", "any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ColumnType names a column of a schema-carrying value (Struct, Table,
// TableStream).
type ColumnType struct {
	Name symbol.ID
	Type ValueType
}

// ValueType is the metatype classifying each Value variant. Generalizes the
// teacher's ad hoc LikeString()/LikeDate() helpers (gql/value_type.go) into a
// uniform per-variant dispatch table, per SPEC_FULL §3 / REDESIGN direction
// "Dynamic dispatch over values".
type ValueType struct {
	Kind Kind

	// Elem is the element type for List, the value type for Dict, and the
	// row type for TableStream/Table when expressed without a full schema.
	Elem *ValueType
	// Key is the key type for Dict.
	Key *ValueType
	// Schema is the ordered column list for Struct/Table/TableStream.
	Schema []ColumnType
}

// Predeclared scalar types, reusable without allocation.
var (
	AnyType          = ValueType{Kind: KAny}
	StringType       = ValueType{Kind: KString}
	IntegerType      = ValueType{Kind: KInteger}
	FloatType        = ValueType{Kind: KFloat}
	BoolType         = ValueType{Kind: KBool}
	TimeType         = ValueType{Kind: KTime}
	DurationType     = ValueType{Kind: KDuration}
	FieldType        = ValueType{Kind: KField}
	GlobType         = ValueType{Kind: KGlob}
	RegexType        = ValueType{Kind: KRegex}
	FileType         = ValueType{Kind: KFile}
	BinaryType       = ValueType{Kind: KBinary}
	BinaryStreamType = ValueType{Kind: KBinaryStream}
	CommandType      = ValueType{Kind: KCommand}
	ScopeType        = ValueType{Kind: KScope}
	TypeType         = ValueType{Kind: KType}
	EmptyType        = ValueType{Kind: KEmpty}
)

// ListType constructs the type List(elem).
func ListType(elem ValueType) ValueType { return ValueType{Kind: KList, Elem: &elem} }

// DictType constructs the type Dict(key, val).
func DictType(key, val ValueType) ValueType { return ValueType{Kind: KDict, Key: &key, Elem: &val} }

// StructType constructs the type Struct(schema...).
func StructType(schema []ColumnType) ValueType { return ValueType{Kind: KStruct, Schema: schema} }

// TableType constructs the type Table(schema...).
func TableType(schema []ColumnType) ValueType { return ValueType{Kind: KTable, Schema: schema} }

// TableStreamType constructs the type TableStream(schema...).
func TableStreamType(schema []ColumnType) ValueType {
	return ValueType{Kind: KTableStream, Schema: schema}
}

// String renders the type the way it would be echoed back by the shell
// (spec §8 scenario 3: "type:list $integer" stringifies as "list integer").
func (t ValueType) String() string {
	switch t.Kind {
	case KList:
		return "list " + t.Elem.String()
	case KDict:
		return fmt.Sprintf("dict %s %s", t.Key.String(), t.Elem.String())
	case KStruct, KTable, KTableStream:
		parts := make([]string, len(t.Schema))
		for i, c := range t.Schema {
			parts[i] = fmt.Sprintf("%s:%s", c.Name.Str(), c.Type.String())
		}
		return t.Kind.String() + " " + strings.Join(parts, " ")
	default:
		return t.Kind.String()
	}
}

// Is reports whether v matches t. Any matches every Value; otherwise the
// variant must match exactly, with parameter types matched structurally for
// List, Dict, Table*, Struct.
func (t ValueType) Is(v Value) bool {
	if t.Kind == KAny {
		return true
	}
	if t.Kind != v.typ.Kind {
		return false
	}
	switch t.Kind {
	case KList:
		return t.Elem.Kind == KAny || v.typ.Elem == nil || t.Elem.structurallyEqual(*v.typ.Elem)
	case KDict:
		return (v.typ.Key == nil || t.Key.structurallyEqual(*v.typ.Key)) &&
			(v.typ.Elem == nil || t.Elem.structurallyEqual(*v.typ.Elem))
	case KStruct, KTable, KTableStream:
		return t.schemaCompatible(v.typ.Schema)
	default:
		return true
	}
}

func (t ValueType) structurallyEqual(o ValueType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KList:
		return t.Elem.structurallyEqual(*o.Elem)
	case KDict:
		return t.Key.structurallyEqual(*o.Key) && t.Elem.structurallyEqual(*o.Elem)
	case KStruct, KTable, KTableStream:
		return t.schemaCompatible(o.Schema)
	default:
		return true
	}
}

func (t ValueType) schemaCompatible(schema []ColumnType) bool {
	if len(t.Schema) == 0 {
		return true // an unconstrained schema (e.g. bare "table") matches any row shape.
	}
	if len(t.Schema) != len(schema) {
		return false
	}
	for i, c := range t.Schema {
		if c.Name != schema[i].Name || !c.Type.structurallyEqual(schema[i].Type) {
			return false
		}
	}
	return true
}

// Materialize converts a streaming type into its finite, in-memory
// counterpart: BinaryStream -> Binary, TableStream(s) -> Table(materialize(s)),
// recursing through List/Dict/Struct/Table. All other kinds are identity.
// Idempotent: Materialize(Materialize(t)) == Materialize(t).
func (t ValueType) Materialize() ValueType {
	switch t.Kind {
	case KBinaryStream:
		return BinaryType
	case KTableStream:
		schema := make([]ColumnType, len(t.Schema))
		for i, c := range t.Schema {
			schema[i] = ColumnType{Name: c.Name, Type: c.Type.Materialize()}
		}
		return TableType(schema)
	case KList:
		elem := t.Elem.Materialize()
		return ListType(elem)
	case KDict:
		key, val := t.Key.Materialize(), t.Elem.Materialize()
		return DictType(key, val)
	case KStruct, KTable:
		schema := make([]ColumnType, len(t.Schema))
		for i, c := range t.Schema {
			schema[i] = ColumnType{Name: c.Name, Type: c.Type.Materialize()}
		}
		return ValueType{Kind: t.Kind, Schema: schema}
	default:
		return t
	}
}

// IsHashable reports whether values of this type may be hashed (and so used
// as Dict keys). False for Scope, Command, List, Dict, Struct, Table,
// TableStream, BinaryStream; true otherwise.
func (t ValueType) IsHashable() bool {
	switch t.Kind {
	case KScope, KCommand, KList, KDict, KStruct, KTable, KTableStream, KBinaryStream:
		return false
	default:
		return true
	}
}

// IsComparable mirrors IsHashable exactly, per spec §3.
func (t ValueType) IsComparable() bool { return t.IsHashable() }

// Fields dispatches to the per-variant field table used for attribute
// access on instances of this type. Only Struct/Table/TableStream expose
// named fields; all other kinds return nil.
func (t ValueType) Fields() []ColumnType {
	switch t.Kind {
	case KStruct, KTable, KTableStream:
		return t.Schema
	default:
		return nil
	}
}

// Parse performs type-directed literal parsing of text, per spec §4.2.
// Returns an error for variants that cannot be produced from literal text.
func (t ValueType) Parse(text string) (Value, error) {
	switch t.Kind {
	case KString:
		return NewString(text), nil
	case KInteger:
		return parseIntegerLiteral(text)
	case KFloat:
		return parseFloatLiteral(text)
	case KBool:
		switch text {
		case "true":
			return NewBool(true), nil
		case "false":
			return NewBool(false), nil
		}
		return Value{}, newShellErr(ErrParse, nil, "cannot parse %q as bool", text)
	case KField:
		return NewField(strings.Split(text, ".")), nil
	case KGlob:
		return NewGlob(text)
	case KRegex:
		return NewRegex(text)
	case KFile:
		return NewFile(text, false), nil
	default:
		return Value{}, newShellErr(ErrParse, nil, "cannot parse into %s", t.Kind)
	}
}
