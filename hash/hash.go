// Package hash computes content hashes of values flowing through the shell.
// Hashes are used to dedup AST subtrees, to key Dict entries, and to name
// cached materializations of TableStreams.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"
)

// Hash is a 32-byte content hash.
type Hash [32]byte

// Zero is the zero-valued Hash. It is never returned by Bytes or String, so
// it is safe to use as a "not yet computed" sentinel.
var Zero = Hash{}

// String returns the hex encoding of h.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Add combines h and o commutatively by byte-wise addition (mod 256): Zero is
// its identity, and h.Add(o) == o.Add(h). It is used to combine hashes of an
// unordered collection (e.g. Dict entries) where order must not affect the
// result.
func (h Hash) Add(o Hash) Hash {
	var r Hash
	for i := range r {
		r[i] = h[i] + o[i]
	}
	return r
}

// Merge folds o into h order-sensitively: h.Merge(o) != o.Merge(h) in
// general. It is used to combine hashes of an ordered sequence (e.g. AST
// children, struct fields in declaration order).
func (h Hash) Merge(o Hash) Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, h[:]...)
	buf = append(buf, o[:]...)
	return Bytes(buf)
}

// Bytes hashes an arbitrary byte slice.
func Bytes(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// String hashes a string.
func String(s string) Hash {
	return Bytes([]byte(s))
}

// Int hashes an int64.
func Int(v int64) Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return Bytes(buf[:])
}

// Float hashes a float64.
func Float(v float64) Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return Bytes(buf[:])
}

// Bool hashes a bool.
func Bool(v bool) Hash {
	if v {
		return Bytes([]byte{1})
	}
	return Bytes([]byte{0})
}

// Time hashes a time.Time by its absolute instant only, so two instants that
// are equal but carry different zones hash the same, matching how Value
// equality treats Time (it compares with time.Time.Equal).
func Time(t time.Time) Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(t.UnixNano()))
	return Bytes(buf[:])
}

// Duration hashes a time.Duration.
func Duration(d time.Duration) Hash {
	return Int(int64(d))
}
