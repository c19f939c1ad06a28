// Package pup registers the "pup" namespace: binary serialization of Values
// via the marshal package, exposed as "pup:to" / "pup:from". Grounded on
// the teacher's gql/table.go and gql/marshal_context.go, which together
// define GQL's "pup" on-disk binary format; adapted here to serialize any
// Value (not just Table) using this runtime's MarshalContext/UnmarshalContext
// cyclic-reference machinery (marshal_context.go).
package pup

import (
	"fmt"

	"github.com/mascguy/crush-shell/lang"
	"github.com/mascguy/crush-shell/marshal"
)

// Register installs pup:to and pup:from into ns.
func Register(ns *lang.Scope, lookup func(path string) (lang.Command, error)) error {
	if err := lang.RegisterBuiltinCommand(ns, "to", false,
		[]lang.FormalArg{{Required: true}},
		"serialize a value to its pup binary encoding", toLongHelp, toCmd); err != nil {
		return err
	}
	fromCmd := makeFromCmd(lookup)
	if err := lang.RegisterBuiltinCommand(ns, "from", false,
		[]lang.FormalArg{{Required: true}},
		"deserialize a pup binary encoding back to a value", fromLongHelp, fromCmd); err != nil {
		return err
	}
	return nil
}

const toLongHelp = `to value

Encodes value as a Binary using the pup wire format (spec §6: "pup
provides symmetric Marshal/Unmarshal for every Value variant except live
handles"). BinaryStream, TableStream, and Scope values must be materialized
before calling pup:to.`

func toCmd(ctx *lang.Context) error {
	pos := ctx.Positional()
	if len(pos) != 1 {
		return errArity("to", 1, len(pos))
	}
	mc := lang.NewMarshalContext()
	enc := marshal.NewEncoder(nil)
	pos[0].Marshal(mc, enc)
	data := marshal.ReleaseEncoder(enc)
	return send(ctx, lang.NewBinary(append([]byte(nil), data...)))
}

const fromLongHelp = `from data

Decodes data (a Binary previously produced by pup:to) back into a Value.`

func makeFromCmd(lookup func(path string) (lang.Command, error)) func(ctx *lang.Context) error {
	return func(ctx *lang.Context) error {
		pos := ctx.Positional()
		if len(pos) != 1 {
			return errArity("from", 1, len(pos))
		}
		if pos[0].Kind() != lang.KBinary {
			return errTypeMismatch("from", pos[0])
		}
		uc := lang.NewUnmarshalContext(lookup)
		dec := marshal.NewDecoder(pos[0].Bytes())
		defer marshal.ReleaseDecoder(dec)
		return send(ctx, lang.UnmarshalValue(uc, dec))
	}
}

func errArity(name string, want, got int) error {
	return fmt.Errorf("%s: expected %d arguments, got %d", name, want, got)
}

func errTypeMismatch(name string, v lang.Value) error {
	return fmt.Errorf("%s: expected a binary value, got %s", name, v.Kind())
}

func send(ctx *lang.Context, v lang.Value) error {
	if ctx.Output == nil {
		return nil
	}
	return ctx.Output.Send(v)
}
