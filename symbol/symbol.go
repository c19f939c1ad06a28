// Package symbol manages symbols. Symbols are deduped strings represented as
// small integers.
package symbol

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/grailbio/base/log"
	"github.com/mascguy/crush-shell/hash"
	"github.com/mascguy/crush-shell/marshal"
)

// ID represents an interned symbol.
type ID int32

const (
	// Invalid is a sentinel.
	Invalid = ID(0)
)

type idInfo struct {
	name string
	hash hash.Hash
}

// Singleton symbol intern table.
type table struct {
	sync.Mutex

	// max ID value of pre-interned symbols. Pre-interned symbols are symbols
	// that are interned during shell startup. These symbols are guaranteed to
	// have the same ID<->name mapping across process restarts, so a script
	// compiled against one process can be replayed against another.
	preInterned ID

	// The readers can access the following fields using acquire loads.
	// The writers must synchronize using the mutex.
	syms   sync.Map       // string -> ID
	idsPtr unsafe.Pointer // *[]idInfo
}

var symbols table

func maybeInit() {
	if atomic.LoadPointer(&symbols.idsPtr) == nil {
		symbols.Lock()
		defer symbols.Unlock()
		if symbols.idsPtr != nil {
			return
		}
		ids := make([]idInfo, 1, 1024)
		ids[0] = idInfo{"(invalid)", hash.String("(invalid)")}
		symbols.syms.Store("(invalid)", Invalid)
		atomic.StorePointer(&symbols.idsPtr, unsafe.Pointer(&ids))
	}
}

func init() {
	maybeInit()
}

func (t *table) ids() []idInfo {
	return *(*[]idInfo)(atomic.LoadPointer(&t.idsPtr))
}

// MarkPreInternedSymbols must be called at the end of shell runtime
// initialization, after all predefined symbols have been interned.
func MarkPreInternedSymbols() {
	symbols.preInterned = ID(len(symbols.ids()))
	log.Debug.Printf("Pre-interned %d symbols", symbols.preInterned)
}

// Hash hashes a symbol.
func (id ID) Hash() hash.Hash {
	return symbols.ids()[id].hash
}

// MarshalBinary implements the GOB interface.
func (id ID) MarshalBinary() ([]byte, error) {
	enc := marshal.NewEncoder(nil)
	id.Marshal(enc)
	return marshal.ReleaseEncoder(enc), nil
}

// Marshal encodes the ID in binary.
func (id ID) Marshal(enc *marshal.Encoder) {
	if id < symbols.preInterned {
		enc.PutByte(0)
		enc.PutVarint(int64(id))
		return
	}
	enc.PutByte(1)
	enc.PutSymbol(id.Str())
}

// Str returns a human-readable string.
//
// Note: we don't call it String() since it makes the code deadlock prone.
func (id ID) Str() string {
	name := symbols.ids()[id].name
	if name == "" {
		log.Panicf("symboltable: id %d not found", id)
	}
	return name
}

// UnmarshalBinary implements the GOB interface.
func (id *ID) UnmarshalBinary(data []byte) error {
	dec := marshal.NewDecoder(data)
	id.Unmarshal(dec)
	if dec.Len() > 0 {
		log.Panicf("Value.UnmarshalBinary: %dB garbage at the end", dec.Len())
	}
	marshal.ReleaseDecoder(dec)
	return nil
}

// Unmarshal decodes the data produced by MarshalBinary.
func (id *ID) Unmarshal(dec *marshal.Decoder) {
	b := dec.Byte()
	switch b {
	case 0:
		*id = ID(dec.Varint())
	case 1:
		*id = Intern(dec.Symbol())
	default:
		log.Panicf("unmarshal symbol.id: corrupt data %v", b)
	}
}

// Intern finds or creates an ID for the given string.
func Intern(v string) ID {
	maybeInit()
	if v == "" {
		log.Panicf("Empty symbol")
	}
	if id, ok := symbols.syms.Load(v); ok {
		return id.(ID)
	}

	symbols.Lock()
	defer symbols.Unlock()
	if id, ok := symbols.syms.Load(v); ok {
		return id.(ID)
	}
	// Slow path: add a new symbol.
	ids := symbols.ids()
	id := ID(len(ids))
	if id == Invalid {
		id++
	}
	for len(ids) <= int(id) {
		ids = append(ids, idInfo{})
	}

	// Note: a reader may read ids[id] unsynchronized, but that only happens
	// when it looks up an as-yet-unallocated ID, which application logic
	// never does. So the next store is safe.
	ids[id] = idInfo{v, hash.String(v)}
	// The next store makes the update officially visible.
	atomic.StorePointer(&symbols.idsPtr, unsafe.Pointer(&ids))
	symbols.syms.Store(v, id)
	return id
}
