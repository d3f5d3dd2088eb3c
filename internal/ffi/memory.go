// Package ffi implements the two guest/host memory bridges: the legacy
// AssemblyScript length-prefixed convention and the modern explicit
// __alloc-based convention. Both bridges are written
// against a small Memory/Exports abstraction so the same code serves
// either engine flavor (wazero's api.Memory for the fast engine,
// wasmtime-go's Memory for the cacheable engine).
package ffi

import "fmt"

// Memory is the minimal guest linear-memory surface the FFI bridges need.
type Memory interface {
	// Size returns the current memory size in bytes.
	Size() uint32
	// Read returns byteCount bytes starting at offset, or false if the
	// range is out of bounds. The slice may alias guest memory; callers
	// that keep it copy it.
	Read(offset, byteCount uint32) ([]byte, bool)
	// Write writes v starting at offset, or returns false if out of bounds.
	Write(offset uint32, v []byte) bool
}

// Exports is the minimal guest-export-calling surface the FFI bridges
// need to invoke guest allocator functions (__new/__pin/__unpin/__collect
// or __alloc).
type Exports interface {
	// Call invokes the named export with the given i32/i64 arguments and
	// returns its results (wazero/wasmtime both use uint64-packed results).
	Call(name string, args ...uint64) ([]uint64, error)
	// Has reports whether the named export exists.
	Has(name string) bool
	// Arity reports the named export's real parameter count, read from its
	// compiled signature rather than guessed by trial invocation. It
	// returns an error if the export does not exist.
	Arity(name string) (int, error)
}

// errOutOfBounds is returned when a read or write falls outside the
// guest's current linear memory.
var errOutOfBounds = fmt.Errorf("ffi: out of bounds memory access")

// errOverflow is returned when offset arithmetic would overflow — treated
// as a fatal runtime error rather than a wrapped-around access.
var errOverflow = fmt.Errorf("ffi: offset arithmetic overflow")
