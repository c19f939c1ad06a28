package lang

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mascguy/crush-shell/hash"
	"github.com/mascguy/crush-shell/marshal"
	"github.com/mascguy/crush-shell/symbol"
)

// Value is a tagged variant carrying any datum that can flow through a pipe.
// Grounded on the teacher's gql.Value (gql/value.go): a small struct tagging
// a type plus a scalar word and a boxed payload, immutable once constructed,
// cheap to copy and pass by value through the evaluator. Unlike the teacher
// (whose zero-allocation unsafe-pointer payload was tuned for bigslice-scale
// table scans), this runtime boxes non-scalar payloads behind a plain
// interface{}.
type Value struct {
	typ    ValueType
	scalar uint64
	boxed  interface{}
}

// Fields/ Struct row representation: ordered (name, Value) pairs.
type StructRow struct {
	Schema []ColumnType
	Vals   []Value
}

// Get returns the value bound to the named column, or (Empty, false).
func (s *StructRow) Get(name symbol.ID) (Value, bool) {
	for i, c := range s.Schema {
		if c.Name == name {
			return s.Vals[i], true
		}
	}
	return EmptyValue, false
}

// Table is a finite, in-memory (schema, rows) pair.
type Table struct {
	Schema []ColumnType
	Rows   [][]Value
}

// List is a homogeneous ordered sequence.
type List struct {
	Elem ValueType
	Vals []Value
}

// Dict is an unordered K->V mapping, K hashable. Internally kept as a Go
// map from each key's content hash to its (key, value) entry, since Go maps
// cannot be keyed by an arbitrary Value.
type Dict struct {
	Key, Val ValueType
	entries  map[hash.Hash]dictEntry
}

type dictEntry struct {
	key, val Value
}

func NewEmptyDict(key, val ValueType) *Dict {
	return &Dict{Key: key, Val: val, entries: map[hash.Hash]dictEntry{}}
}

func (d *Dict) Set(key, val Value) error {
	h, err := key.Hash()
	if err != nil {
		return err
	}
	d.entries[h] = dictEntry{key, val}
	return nil
}

func (d *Dict) Get(key Value) (Value, bool, error) {
	h, err := key.Hash()
	if err != nil {
		return Value{}, false, err
	}
	e, ok := d.entries[h]
	return e.val, ok, nil
}

func (d *Dict) Len() int { return len(d.entries) }

// Each invokes fn for every entry in an arbitrary, stable-within-a-call
// order (sorted by hash, so repeated iteration over an unmodified Dict is
// deterministic).
func (d *Dict) Each(fn func(key, val Value)) {
	hs := make([]hash.Hash, 0, len(d.entries))
	for h := range d.entries {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].String() < hs[j].String() })
	for _, h := range hs {
		e := d.entries[h]
		fn(e.key, e.val)
	}
}

// --- constructors ---

func NewString(s string) Value { return Value{typ: StringType, boxed: s} }

func NewInt(v int64) Value { return Value{typ: IntegerType, scalar: uint64(v)} }

func NewFloat(v float64) Value { return Value{typ: FloatType, scalar: math.Float64bits(v)} }

func NewBool(v bool) Value {
	var s uint64
	if v {
		s = 1
	}
	return Value{typ: BoolType, scalar: s}
}

func NewTime(t time.Time) Value { return Value{typ: TimeType, boxed: t} }

func NewDuration(d time.Duration) Value { return Value{typ: DurationType, scalar: uint64(int64(d))} }

// NewField constructs a Field from a non-empty sequence of name segments.
func NewField(segments []string) Value {
	return Value{typ: FieldType, boxed: append([]string(nil), segments...)}
}

// NewGlob compiles a shell-style glob pattern.
func NewGlob(pattern string) (Value, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return Value{}, newShellErr(ErrParse, nil, "invalid glob %q: %v", pattern, err)
	}
	return Value{typ: GlobType, boxed: pattern}, nil
}

type regexValue struct {
	source string
	re     *regexp.Regexp
}

// NewRegex compiles source at construction time, per spec: "Regex
// compilation at AST-compile time reports the literal's location on
// failure."
func NewRegex(source string) (Value, error) {
	re, err := regexp.Compile(source)
	if err != nil {
		return Value{}, newShellErr(ErrParse, nil, "invalid regex %q: %v", source, err)
	}
	return Value{typ: RegexType, boxed: &regexValue{source: source, re: re}}, nil
}

// RegexMatcher returns the compiled matcher and its source text.
func (v Value) RegexMatcher() (*regexp.Regexp, string) {
	rv := v.boxed.(*regexValue)
	return rv.re, rv.source
}

// NewFile constructs a File value; quoted tracks whether the literal was
// written as a quoted string at parse time (affects printing, not identity).
func NewFile(path string, quoted bool) Value {
	return Value{typ: FileType, boxed: fileValue{path: path, quoted: quoted}}
}

type fileValue struct {
	path   string
	quoted bool
}

func (v Value) FilePath() string { return v.boxed.(fileValue).path }

func NewBinary(data []byte) Value { return Value{typ: BinaryType, boxed: data} }

func (v Value) Bytes() []byte { return v.boxed.([]byte) }

func NewBinaryStream(r *Receiver) Value { return Value{typ: BinaryStreamType, boxed: r} }

func (v Value) BinaryStreamReceiver() *Receiver { return v.boxed.(*Receiver) }

func NewCommand(c Command) Value { return Value{typ: CommandType, boxed: c} }

func (v Value) Command() Command { return v.boxed.(Command) }

func NewStruct(row *StructRow) Value {
	return Value{typ: StructType(row.Schema), boxed: row}
}

func (v Value) Struct() *StructRow { return v.boxed.(*StructRow) }

func NewTable(t *Table) Value { return Value{typ: TableType(t.Schema), boxed: t} }

func (v Value) Table() *Table { return v.boxed.(*Table) }

func NewTableStream(schema []ColumnType, r *Receiver) Value {
	return Value{typ: TableStreamType(schema), boxed: r}
}

func (v Value) TableStreamReceiver() *Receiver { return v.boxed.(*Receiver) }

func NewList(l *List) Value { return Value{typ: ListType(l.Elem), boxed: l} }

func (v Value) List() *List { return v.boxed.(*List) }

func NewDictValue(d *Dict) Value { return Value{typ: DictType(d.Key, d.Val), boxed: d} }

func (v Value) Dict() *Dict { return v.boxed.(*Dict) }

func NewScopeValue(s *Scope) Value { return Value{typ: ScopeType, boxed: s} }

func (v Value) Scope() *Scope { return v.boxed.(*Scope) }

func NewTypeValue(t ValueType) Value { return Value{typ: TypeType, boxed: t} }

func (v Value) TypeValue() ValueType { return v.boxed.(ValueType) }

var EmptyValue = Value{typ: EmptyType}

// --- accessors ---

func (v Value) Type() ValueType { return v.typ }
func (v Value) Kind() Kind      { return v.typ.Kind }

func (v Value) Str() string {
	switch v.typ.Kind {
	case KField:
		return strings.Join(v.boxed.([]string), ".")
	case KFile:
		return v.boxed.(fileValue).path
	case KRegex:
		return v.boxed.(*regexValue).source
	case KGlob:
		return v.boxed.(string)
	default:
		return v.boxed.(string)
	}
}

func (v Value) Int() int64 { return int64(v.scalar) }

func (v Value) Float() float64 { return math.Float64frombits(v.scalar) }

func (v Value) Bool() bool { return v.scalar != 0 }

func (v Value) Time() time.Time { return v.boxed.(time.Time) }

func (v Value) Duration() time.Duration { return time.Duration(int64(v.scalar)) }

func (v Value) FieldSegments() []string { return v.boxed.([]string) }

// --- parsing helpers used by ValueType.Parse ---

func parseIntegerLiteral(text string) (Value, error) {
	stripped := strings.ReplaceAll(text, "_", "")
	n, err := strconv.ParseInt(stripped, 10, 64)
	if err != nil {
		return Value{}, newShellErr(ErrParse, nil, "invalid integer literal %q", text)
	}
	return NewInt(n), nil
}

func parseFloatLiteral(text string) (Value, error) {
	stripped := strings.ReplaceAll(text, "_", "")
	f, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return Value{}, newShellErr(ErrParse, nil, "invalid float literal %q", text)
	}
	return NewFloat(f), nil
}

// --- equality, ordering, hashing (spec §4.1) ---

// Eq is structural equality, total across variants: values of different
// Kind always compare unequal, never error (spec §9 Open Question #2).
func (v Value) Eq(o Value) bool {
	if v.typ.Kind != o.typ.Kind {
		return false
	}
	switch v.typ.Kind {
	case KString, KField, KGlob, KFile:
		return v.Str() == o.Str()
	case KRegex:
		return v.Str() == o.Str()
	case KInteger, KBool, KDuration:
		return v.scalar == o.scalar
	case KFloat:
		return v.Float() == o.Float()
	case KTime:
		return v.Time().Equal(o.Time())
	case KBinary:
		return string(v.Bytes()) == string(o.Bytes())
	case KList:
		lv, ov := v.List(), o.List()
		if len(lv.Vals) != len(ov.Vals) {
			return false
		}
		for i := range lv.Vals {
			if !lv.Vals[i].Eq(ov.Vals[i]) {
				return false
			}
		}
		return true
	case KStruct:
		lv, ov := v.Struct(), o.Struct()
		if len(lv.Vals) != len(ov.Vals) {
			return false
		}
		for i := range lv.Vals {
			if lv.Schema[i].Name != ov.Schema[i].Name || !lv.Vals[i].Eq(ov.Vals[i]) {
				return false
			}
		}
		return true
	case KEmpty:
		return true
	case KType:
		return v.TypeValue().structurallyEqual(o.TypeValue())
	default:
		// Command, Scope, Table, TableStream, BinaryStream, Dict: identity
		// comparison — these are not hashable/comparable per spec §3, but Eq
		// must still be total, so fall back to pointer identity.
		return v.boxed == o.boxed
	}
}

// Compare returns -1/0/1 per spec §4.1: total within a hashable/comparable
// variant, erroring across variants or for non-comparable kinds. NaN
// comparisons fail rather than silently producing an "unordered" result.
func (v Value) Compare(o Value) (int, error) {
	if v.typ.Kind != o.typ.Kind {
		return 0, newShellErr(ErrType, nil, "cannot compare %s with %s", v.typ.Kind, o.typ.Kind)
	}
	if !v.typ.IsComparable() {
		return 0, newShellErr(ErrType, nil, "values of type %s are not comparable", v.typ.Kind)
	}
	switch v.typ.Kind {
	case KString, KField, KGlob, KFile, KRegex:
		return strings.Compare(v.Str(), o.Str()), nil
	case KInteger:
		a, b := v.Int(), o.Int()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case KDuration:
		a, b := v.Duration(), o.Duration()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case KFloat:
		a, b := v.Float(), o.Float()
		if math.IsNaN(a) || math.IsNaN(b) {
			return 0, newShellErr(ErrType, nil, "NaN is not ordered")
		}
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case KBool:
		a, b := v.Bool(), o.Bool()
		if a == b {
			return 0, nil
		}
		if !a {
			return -1, nil
		}
		return 1, nil
	case KTime:
		a, b := v.Time(), o.Time()
		switch {
		case a.Before(b):
			return -1, nil
		case a.After(b):
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, newShellErr(ErrType, nil, "values of type %s are not comparable", v.typ.Kind)
	}
}

// Hash returns the content hash of v. Errors for non-hashable variants, per
// spec §3/§4.1: "attempting to key a Dict by a non-hashable value fails with
// a type error."
func (v Value) Hash() (hash.Hash, error) {
	if !v.typ.IsHashable() {
		return hash.Zero, newShellErr(ErrType, nil, "values of type %s are not hashable", v.typ.Kind)
	}
	switch v.typ.Kind {
	case KString, KField, KGlob, KFile, KRegex:
		return hash.String(v.Str()), nil
	case KInteger, KDuration:
		return hash.Int(v.Int()), nil
	case KFloat:
		return hash.Float(v.Float()), nil
	case KBool:
		return hash.Bool(v.Bool()), nil
	case KTime:
		return hash.Time(v.Time()), nil
	case KBinary:
		return hash.Bytes(v.Bytes()), nil
	case KEmpty:
		return hash.Zero, nil
	case KType:
		return hash.String(v.TypeValue().String()), nil
	default:
		return hash.Zero, newShellErr(ErrType, nil, "values of type %s are not hashable", v.typ.Kind)
	}
}

// --- printing ---

func (v Value) String() string {
	switch v.typ.Kind {
	case KString:
		return v.Str()
	case KInteger:
		return strconv.FormatInt(v.Int(), 10)
	case KFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case KBool:
		return strconv.FormatBool(v.Bool())
	case KTime:
		return v.Time().Format(time.RFC3339Nano)
	case KDuration:
		return v.Duration().String()
	case KField:
		return v.Str()
	case KGlob, KRegex:
		return v.Str()
	case KFile:
		return v.Str()
	case KBinary:
		return fmt.Sprintf("<%d bytes>", len(v.Bytes()))
	case KBinaryStream:
		return "<binary stream>"
	case KCommand:
		return "<command>"
	case KStruct:
		return structString(v.Struct())
	case KTable:
		return fmt.Sprintf("<table %d rows>", len(v.Table().Rows))
	case KTableStream:
		return "<table stream>"
	case KList:
		parts := make([]string, len(v.List().Vals))
		for i, e := range v.List().Vals {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KDict:
		var b strings.Builder
		b.WriteByte('{')
		first := true
		v.Dict().Each(func(k, val Value) {
			if !first {
				b.WriteByte(' ')
			}
			first = false
			fmt.Fprintf(&b, "%s:%s", k.String(), val.String())
		})
		b.WriteByte('}')
		return b.String()
	case KScope:
		return "<scope>"
	case KType:
		return v.TypeValue().String()
	case KEmpty:
		return ""
	default:
		return "<?>"
	}
}

func structString(s *StructRow) string {
	parts := make([]string, len(s.Vals))
	for i, c := range s.Schema {
		parts[i] = fmt.Sprintf("%s:%s", c.Name.Str(), s.Vals[i].String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// --- serialization (pup) ---
//
// Each variant is prefixed with a one-byte "magic" tag, the way the
// teacher's gql/table.go/gql/value.go dispatch UnmarshalMagic on a leading
// byte. Marshal panics on BinaryStream, TableStream and Scope values; the
// other kinds round-trip. A builtin Command round-trips by name. A closure
// Command is decoded with its name, parameters and the bindings of its
// defining Scope (marshaled via the MarshalContext machinery in
// marshal_context.go so cyclic scope<->closure references resolve); its body
// is written only in textual form, which decoding skips, so the decoded
// closure has no body to run.

type magic byte

const (
	magicString magic = iota
	magicInteger
	magicFloat
	magicBool
	magicTime
	magicDuration
	magicField
	magicGlob
	magicRegex
	magicFile
	magicBinary
	magicStruct
	magicTable
	magicList
	magicDict
	magicType
	magicEmpty
	magicCommand
)

// Marshal encodes v. BinaryStream, TableStream, and Scope values cannot be
// serialized directly (they are live handles, not data) and Marshal panics
// with an internal error if asked to encode one; callers must Materialize
// first.
func (v Value) Marshal(mc *MarshalContext, enc *marshal.Encoder) {
	switch v.typ.Kind {
	case KString:
		enc.PutByte(byte(magicString))
		enc.PutString(v.Str())
	case KInteger:
		enc.PutByte(byte(magicInteger))
		enc.PutVarint(v.Int())
	case KFloat:
		enc.PutByte(byte(magicFloat))
		enc.PutUint64(math.Float64bits(v.Float()))
	case KBool:
		enc.PutByte(byte(magicBool))
		enc.PutBool(v.Bool())
	case KTime:
		enc.PutByte(byte(magicTime))
		enc.PutVarint(v.Time().UnixNano())
	case KDuration:
		enc.PutByte(byte(magicDuration))
		enc.PutVarint(int64(v.Duration()))
	case KField:
		enc.PutByte(byte(magicField))
		segs := v.FieldSegments()
		enc.PutVarint(int64(len(segs)))
		for _, s := range segs {
			enc.PutString(s)
		}
	case KGlob:
		enc.PutByte(byte(magicGlob))
		enc.PutString(v.Str())
	case KRegex:
		enc.PutByte(byte(magicRegex))
		enc.PutString(v.Str())
	case KFile:
		enc.PutByte(byte(magicFile))
		enc.PutString(v.Str())
	case KBinary:
		enc.PutByte(byte(magicBinary))
		enc.PutBytes(v.Bytes())
	case KStruct:
		enc.PutByte(byte(magicStruct))
		marshalSchema(enc, v.Struct().Schema)
		for _, val := range v.Struct().Vals {
			val.Marshal(mc, enc)
		}
	case KTable:
		enc.PutByte(byte(magicTable))
		t := v.Table()
		marshalSchema(enc, t.Schema)
		enc.PutVarint(int64(len(t.Rows)))
		for _, row := range t.Rows {
			for _, val := range row {
				val.Marshal(mc, enc)
			}
		}
	case KList:
		enc.PutByte(byte(magicList))
		l := v.List()
		marshalType(enc, l.Elem)
		enc.PutVarint(int64(len(l.Vals)))
		for _, val := range l.Vals {
			val.Marshal(mc, enc)
		}
	case KDict:
		enc.PutByte(byte(magicDict))
		d := v.Dict()
		marshalType(enc, d.Key)
		marshalType(enc, d.Val)
		enc.PutVarint(int64(d.Len()))
		d.Each(func(k, val Value) {
			k.Marshal(mc, enc)
			val.Marshal(mc, enc)
		})
	case KType:
		enc.PutByte(byte(magicType))
		marshalType(enc, v.TypeValue())
	case KEmpty:
		enc.PutByte(byte(magicEmpty))
	case KCommand:
		enc.PutByte(byte(magicCommand))
		mc.MarshalCommand(enc, v.Command())
	default:
		Panicf(ErrInternal, nil, "cannot marshal value of type %s", v.typ.Kind)
	}
}

// UnmarshalValue decodes a Value previously encoded by Marshal.
func UnmarshalValue(mc *UnmarshalContext, dec *marshal.Decoder) Value {
	switch magic(dec.Byte()) {
	case magicString:
		return NewString(dec.String())
	case magicInteger:
		return NewInt(dec.Varint())
	case magicFloat:
		return NewFloat(math.Float64frombits(dec.Uint64()))
	case magicBool:
		return NewBool(dec.Bool())
	case magicTime:
		return NewTime(time.Unix(0, dec.Varint()).UTC())
	case magicDuration:
		return NewDuration(time.Duration(dec.Varint()))
	case magicField:
		n := int(dec.Varint())
		segs := make([]string, n)
		for i := range segs {
			segs[i] = dec.String()
		}
		return NewField(segs)
	case magicGlob:
		v, err := NewGlob(dec.String())
		if err != nil {
			Panicf(ErrInternal, nil, "corrupt glob in stream: %v", err)
		}
		return v
	case magicRegex:
		v, err := NewRegex(dec.String())
		if err != nil {
			Panicf(ErrInternal, nil, "corrupt regex in stream: %v", err)
		}
		return v
	case magicFile:
		return NewFile(dec.String(), false)
	case magicBinary:
		return NewBinary(dec.Bytes())
	case magicStruct:
		schema := unmarshalSchema(dec)
		vals := make([]Value, len(schema))
		for i := range vals {
			vals[i] = UnmarshalValue(mc, dec)
		}
		return NewStruct(&StructRow{Schema: schema, Vals: vals})
	case magicTable:
		schema := unmarshalSchema(dec)
		n := int(dec.Varint())
		rows := make([][]Value, n)
		for i := range rows {
			row := make([]Value, len(schema))
			for j := range row {
				row[j] = UnmarshalValue(mc, dec)
			}
			rows[i] = row
		}
		return NewTable(&Table{Schema: schema, Rows: rows})
	case magicList:
		elem := unmarshalType(dec)
		n := int(dec.Varint())
		vals := make([]Value, n)
		for i := range vals {
			vals[i] = UnmarshalValue(mc, dec)
		}
		return NewList(&List{Elem: elem, Vals: vals})
	case magicDict:
		key := unmarshalType(dec)
		val := unmarshalType(dec)
		n := int(dec.Varint())
		d := NewEmptyDict(key, val)
		for i := 0; i < n; i++ {
			k := UnmarshalValue(mc, dec)
			v := UnmarshalValue(mc, dec)
			if err := d.Set(k, v); err != nil {
				Panicf(ErrInternal, nil, "corrupt dict in stream: %v", err)
			}
		}
		return NewDictValue(d)
	case magicType:
		return NewTypeValue(unmarshalType(dec))
	case magicEmpty:
		return EmptyValue
	case magicCommand:
		return NewCommand(mc.UnmarshalCommand(dec))
	default:
		Panicf(ErrInternal, nil, "corrupt value stream: unknown magic byte")
		panic("unreachable")
	}
}

func marshalSchema(enc *marshal.Encoder, schema []ColumnType) {
	enc.PutVarint(int64(len(schema)))
	for _, c := range schema {
		enc.PutSymbol(c.Name.Str())
		marshalType(enc, c.Type)
	}
}

func unmarshalSchema(dec *marshal.Decoder) []ColumnType {
	n := int(dec.Varint())
	schema := make([]ColumnType, n)
	for i := range schema {
		schema[i] = ColumnType{Name: symbol.Intern(dec.Symbol()), Type: unmarshalType(dec)}
	}
	return schema
}

func marshalType(enc *marshal.Encoder, t ValueType) {
	enc.PutByte(byte(t.Kind))
	switch t.Kind {
	case KList:
		marshalType(enc, *t.Elem)
	case KDict:
		marshalType(enc, *t.Key)
		marshalType(enc, *t.Elem)
	case KStruct, KTable, KTableStream:
		marshalSchema(enc, t.Schema)
	}
}

func unmarshalType(dec *marshal.Decoder) ValueType {
	k := Kind(dec.Byte())
	switch k {
	case KList:
		elem := unmarshalType(dec)
		return ListType(elem)
	case KDict:
		key := unmarshalType(dec)
		val := unmarshalType(dec)
		return DictType(key, val)
	case KStruct, KTable, KTableStream:
		return ValueType{Kind: k, Schema: unmarshalSchema(dec)}
	default:
		return ValueType{Kind: k}
	}
}
