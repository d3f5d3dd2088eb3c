package ffi

import (
	"encoding/binary"
	"fmt"
)

// Modern implements the explicit-allocator FFI bridge. The guest exports
// __alloc(len) -> i32. ReadBuffer assumes the guest-produced memory layout
// at offset p is a 4-byte little-endian length followed by the payload at
// p+4, matching what guest code writes when it returns a value. WriteBuffer
// makes no such assumption: it allocates exactly len(data) bytes and writes
// the payload directly at the returned offset, with no added framing.
type Modern struct {
	mem     Memory
	exports Exports
}

// NewModern builds a Modern FFI bridge. The guest must export __alloc;
// its absence is only an error once a write is attempted.
func NewModern(mem Memory, exports Exports) *Modern {
	return &Modern{mem: mem, exports: exports}
}

// ReadBuffer reads the 4-byte length at offset, validates it against
// memory size, and returns a copy of the payload at offset+4.
func (m *Modern) ReadBuffer(offset uint32) ([]byte, error) {
	lenBytes, ok := m.mem.Read(offset, 4)
	if !ok {
		return nil, fmt.Errorf("%w: reading length at %d", errOutOfBounds, offset)
	}
	length := binary.LittleEndian.Uint32(lenBytes)

	payloadStart, overflowed := addUint32(offset, 4)
	if overflowed {
		return nil, errOverflow
	}
	payloadEnd, overflowed := addUint32(payloadStart, length)
	if overflowed {
		return nil, errOverflow
	}
	if payloadEnd > m.mem.Size() {
		return nil, fmt.Errorf("%w: buffer of length %d at %d exceeds memory size %d", errOutOfBounds, length, offset, m.mem.Size())
	}
	payload, ok := m.mem.Read(payloadStart, length)
	if !ok {
		return nil, fmt.Errorf("%w: reading %d bytes at %d", errOutOfBounds, length, payloadStart)
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// WriteBuffer calls __alloc(len(data)) and writes data directly at the
// returned offset, without any implicit length prefix — the guest's
// allocator manages its own memory layout, and any framing the guest needs
// is its own concern, not this bridge's.
func (m *Modern) WriteBuffer(data []byte) (uint32, error) {
	if !m.exports.Has("__alloc") {
		return 0, fmt.Errorf("ffi: guest does not export __alloc")
	}
	results, err := m.exports.Call("__alloc", uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("ffi: __alloc: %w", err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("ffi: __alloc returned %d results, want 1", len(results))
	}
	offset := uint32(results[0])

	if len(data) > 0 && !m.mem.Write(offset, data) {
		return 0, fmt.Errorf("%w: writing %d bytes at %d", errOutOfBounds, len(data), offset)
	}
	return offset, nil
}

func addUint32(a, b uint32) (uint32, bool) {
	sum := a + b
	return sum, sum < a
}
