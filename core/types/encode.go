package types

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// canonicalEncoder builds the stable byte encodings transaction and
// block ids are hashed over: same logical content must always produce
// identical bytes. It is a small length-prefixed binary writer rather
// than a general-purpose codec, since the field set it encodes is a
// handful of fixed-shape records (fixed uint64s, byte slices, and one
// string-keyed map) with no nested lists or variable-length integers
// that would call for something heavier.
type canonicalEncoder struct {
	buf bytes.Buffer
}

func newCanonicalEncoder() *canonicalEncoder {
	return &canonicalEncoder{}
}

func (e *canonicalEncoder) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *canonicalEncoder) writeBytes(b []byte) {
	e.writeUint64(uint64(len(b)))
	e.buf.Write(b)
}

func (e *canonicalEncoder) writeString(s string) {
	e.writeBytes([]byte(s))
}

// writeStringMap writes a map[string]string in key-sorted order so the
// encoding is independent of Go's randomised map iteration order.
func (e *canonicalEncoder) writeStringMap(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.writeUint64(uint64(len(keys)))
	for _, k := range keys {
		e.writeString(k)
		e.writeString(m[k])
	}
}

func (e *canonicalEncoder) bytes() []byte {
	return e.buf.Bytes()
}
