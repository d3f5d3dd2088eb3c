package ffi

import (
	"context"
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v3"
	"github.com/tetratelabs/wazero/api"
)

// WazeroMemory adapts a wazero api.Module's memory to the Memory
// interface, used by the fast engine flavor.
type WazeroMemory struct {
	mem api.Memory
}

// NewWazeroMemory wraps the given module's exported memory.
func NewWazeroMemory(mod api.Module) *WazeroMemory {
	return &WazeroMemory{mem: mod.Memory()}
}

func (w *WazeroMemory) Size() uint32 { return w.mem.Size() }

func (w *WazeroMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	return w.mem.Read(offset, byteCount)
}

func (w *WazeroMemory) Write(offset uint32, v []byte) bool {
	return w.mem.Write(offset, v)
}

// WazeroExports adapts a wazero api.Module's exported functions to the
// Exports interface.
type WazeroExports struct {
	ctx context.Context
	mod api.Module
}

// NewWazeroExports wraps mod's exported functions for FFI allocator calls.
func NewWazeroExports(ctx context.Context, mod api.Module) *WazeroExports {
	return &WazeroExports{ctx: ctx, mod: mod}
}

func (w *WazeroExports) Has(name string) bool {
	return w.mod.ExportedFunction(name) != nil
}

func (w *WazeroExports) Call(name string, args ...uint64) ([]uint64, error) {
	fn := w.mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("ffi: export %q not found", name)
	}
	return fn.Call(w.ctx, args...)
}

func (w *WazeroExports) Arity(name string) (int, error) {
	fn := w.mod.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("ffi: export %q not found", name)
	}
	return len(fn.Definition().ParamTypes()), nil
}

// WasmtimeMemory adapts a wasmtime Memory to the Memory interface, used by
// the cacheable engine flavor. store must outlive every call.
type WasmtimeMemory struct {
	store *wasmtime.Store
	mem   *wasmtime.Memory
}

// NewWasmtimeMemory wraps mem for access through store.
func NewWasmtimeMemory(store *wasmtime.Store, mem *wasmtime.Memory) *WasmtimeMemory {
	return &WasmtimeMemory{store: store, mem: mem}
}

func (w *WasmtimeMemory) Size() uint32 {
	return uint32(len(w.mem.UnsafeData(w.store)))
}

func (w *WasmtimeMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	data := w.mem.UnsafeData(w.store)
	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(data)) {
		return nil, false
	}
	return data[offset:end], true
}

func (w *WasmtimeMemory) Write(offset uint32, v []byte) bool {
	data := w.mem.UnsafeData(w.store)
	end := uint64(offset) + uint64(len(v))
	if end > uint64(len(data)) {
		return false
	}
	copy(data[offset:end], v)
	return true
}

// WasmtimeExports adapts a wasmtime Instance's exported functions to the
// Exports interface.
type WasmtimeExports struct {
	store    *wasmtime.Store
	instance *wasmtime.Instance
}

// NewWasmtimeExports wraps instance's exported functions for FFI allocator
// calls.
func NewWasmtimeExports(store *wasmtime.Store, instance *wasmtime.Instance) *WasmtimeExports {
	return &WasmtimeExports{store: store, instance: instance}
}

func (w *WasmtimeExports) Has(name string) bool {
	return w.instance.GetExport(w.store, name) != nil
}

func (w *WasmtimeExports) Call(name string, args ...uint64) ([]uint64, error) {
	export := w.instance.GetExport(w.store, name)
	if export == nil || export.Func() == nil {
		return nil, fmt.Errorf("ffi: export %q not found", name)
	}
	fn := export.Func()
	callArgs := make([]interface{}, len(args))
	for i, a := range args {
		callArgs[i] = int32(a)
	}
	result, err := fn.Call(w.store, callArgs...)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	switch v := result.(type) {
	case int32:
		return []uint64{uint64(uint32(v))}, nil
	case int64:
		return []uint64{uint64(v)}, nil
	default:
		return nil, fmt.Errorf("ffi: unexpected result type %T from %q", result, name)
	}
}

func (w *WasmtimeExports) Arity(name string) (int, error) {
	export := w.instance.GetExport(w.store, name)
	if export == nil || export.Func() == nil {
		return 0, fmt.Errorf("ffi: export %q not found", name)
	}
	return len(export.Func().Type(w.store).Params()), nil
}
