package ffi

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Legacy implements the AssemblyScript-dialect FFI bridge.
// Guest strings and byte buffers are length-prefixed: for a pointer p, the
// 4 bytes at p-4 hold a little-endian size, and the payload occupies
// [p, p+size). Writes go through the guest's own allocator exports.
type Legacy struct {
	mem     Memory
	exports Exports
}

// NewLegacy builds a Legacy FFI bridge over the given instance memory and
// exports. A missing __new is an error once a write is attempted; __pin
// and __unpin are called only when the guest exports them, and __collect
// is never called.
func NewLegacy(mem Memory, exports Exports) *Legacy {
	return &Legacy{mem: mem, exports: exports}
}

// ReadBuffer dereferences the length-prefixed layout at ptr and returns a
// copy of the raw payload bytes.
func (l *Legacy) ReadBuffer(ptr uint32) ([]byte, error) {
	if ptr < 4 {
		return nil, fmt.Errorf("%w: pointer %d has no length prefix", errOutOfBounds, ptr)
	}
	sizeBytes, ok := l.mem.Read(ptr-4, 4)
	if !ok {
		return nil, fmt.Errorf("%w: reading length prefix at %d", errOutOfBounds, ptr-4)
	}
	size := binary.LittleEndian.Uint32(sizeBytes)
	payload, ok := l.mem.Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("%w: reading %d bytes at %d", errOutOfBounds, size, ptr)
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// ReadString dereferences the length-prefixed layout at ptr and decodes it
// as UTF-16LE, the native AssemblyScript string encoding.
func (l *Legacy) ReadString(ptr uint32) (string, error) {
	raw, err := l.ReadBuffer(ptr)
	if err != nil {
		return "", err
	}
	if len(raw)%2 != 0 {
		return "", fmt.Errorf("ffi: odd-length utf16 buffer at %d", ptr)
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2 : i*2+2])
	}
	return string(utf16.Decode(units)), nil
}

// assemblyScriptObjectID is the runtime type id AssemblyScript's __new
// uses for a raw ArrayBuffer; 0 is the reserved "no class" id accepted by
// every __new implementation generated for a plain byte buffer.
const assemblyScriptObjectID = 0

// WriteBuffer allocates size(data)+overhead via the guest's __new, pins
// it so it survives until __unpin, writes the payload, and returns the
// guest pointer. Callers that keep the buffer alive across multiple ABI
// calls are responsible for eventually calling Unpin.
func (l *Legacy) WriteBuffer(data []byte) (uint32, error) {
	if !l.exports.Has("__new") {
		return 0, fmt.Errorf("ffi: guest does not export __new")
	}
	results, err := l.exports.Call("__new", uint64(len(data)), uint64(assemblyScriptObjectID))
	if err != nil {
		return 0, fmt.Errorf("ffi: __new: %w", err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("ffi: __new returned %d results, want 1", len(results))
	}
	ptr := uint32(results[0])
	if l.exports.Has("__pin") {
		if _, err := l.exports.Call("__pin", uint64(ptr)); err != nil {
			return 0, fmt.Errorf("ffi: __pin: %w", err)
		}
	}
	if len(data) > 0 && !l.mem.Write(ptr, data) {
		return 0, fmt.Errorf("%w: writing %d bytes at %d", errOutOfBounds, len(data), ptr)
	}
	return ptr, nil
}

// Unpin releases a buffer previously returned by WriteBuffer.
func (l *Legacy) Unpin(ptr uint32) error {
	if !l.exports.Has("__unpin") {
		return nil
	}
	_, err := l.exports.Call("__unpin", uint64(ptr))
	return err
}

// AbortArgs carries the message/file/line/column the guest's abort hook
// was invoked with.
type AbortArgs struct {
	Message string
	File    string
	Line    int32
	Column  int32
}

// DecodeAbort reads the four pointer-or-scalar arguments AssemblyScript's
// `~lib/builtins/abort` host import is called with: message and file name
// are UTF-16LE string pointers, line and column are plain i32s.
func (l *Legacy) DecodeAbort(msgPtr, filePtr uint32, line, col int32) (AbortArgs, error) {
	var args AbortArgs
	var err error
	if msgPtr != 0 {
		args.Message, err = l.ReadString(msgPtr)
		if err != nil {
			return AbortArgs{}, err
		}
	}
	if filePtr != 0 {
		args.File, err = l.ReadString(filePtr)
		if err != nil {
			return AbortArgs{}, err
		}
	}
	args.Line = line
	args.Column = col
	return args, nil
}
