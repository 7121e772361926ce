package hash

import (
	"encoding/binary"

	"github.com/chazu/updater/vm"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a path batch.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian fixed-width (int64=8B)
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Entries: serialized inline in batch order
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of a batch. Entry
// order is significant: it changes the compiled program.
func Serialize(root string, entries []vm.PathEntry) []byte {
	s := &serializer{buf: make([]byte, 0, 64+32*len(entries))}
	s.writeByte(HashVersion)
	s.writeByte(TagBatch)
	s.writeString(root)
	s.writeUint32(uint32(len(entries)))
	for _, e := range entries {
		s.writeByte(TagEntry)
		s.writeString(e.Path)
		s.writeInt(e.DataOffset)
	}
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeInt(v int) {
	s.writeInt64(int64(v))
}
