package execctx

import (
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v3"
	"github.com/tetratelabs/wazero/api"

	"github.com/massalabs/sc-runtime/internal/engine"
)

// gasAccessor implements abi.GasAccessor against the two metering globals
// the instrumented module exports (engine.GlobalRemainingPoints,
// engine.GlobalExhaustedPoints), through whichever engine flavor produced
// the running instance.
type gasAccessor struct {
	wazeroRemaining api.MutableGlobal
	wazeroExhausted api.Global

	wasmtimeStore      *wasmtime.Store
	wasmtimeRemaining  *wasmtime.Global
	wasmtimeExhausted  *wasmtime.Global
}

func newWazeroGasAccessor(mod api.Module) (*gasAccessor, error) {
	remaining := mod.ExportedGlobal(engine.GlobalRemainingPoints)
	exhausted := mod.ExportedGlobal(engine.GlobalExhaustedPoints)
	if remaining == nil || exhausted == nil {
		return nil, fmt.Errorf("execctx: metering globals not exported by instance")
	}
	mutable, ok := remaining.(api.MutableGlobal)
	if !ok {
		return nil, fmt.Errorf("execctx: %s is not mutable", engine.GlobalRemainingPoints)
	}
	return &gasAccessor{wazeroRemaining: mutable, wazeroExhausted: exhausted}, nil
}

func newWasmtimeGasAccessor(store *wasmtime.Store, instance *wasmtime.Instance) (*gasAccessor, error) {
	remainingExport := instance.GetExport(store, engine.GlobalRemainingPoints)
	exhaustedExport := instance.GetExport(store, engine.GlobalExhaustedPoints)
	if remainingExport == nil || exhaustedExport == nil {
		return nil, fmt.Errorf("execctx: metering globals not exported by instance")
	}
	remaining := remainingExport.Global()
	exhausted := exhaustedExport.Global()
	if remaining == nil || exhausted == nil {
		return nil, fmt.Errorf("execctx: metering exports are not globals")
	}
	return &gasAccessor{wasmtimeStore: store, wasmtimeRemaining: remaining, wasmtimeExhausted: exhausted}, nil
}

func (g *gasAccessor) Remaining() uint64 {
	if g.wazeroRemaining != nil {
		return g.wazeroRemaining.Get()
	}
	return uint64(g.wasmtimeRemaining.Get(g.wasmtimeStore).I64())
}

func (g *gasAccessor) SetRemaining(v uint64) {
	if g.wazeroRemaining != nil {
		g.wazeroRemaining.Set(v)
		return
	}
	_ = g.wasmtimeRemaining.Set(g.wasmtimeStore, wasmtime.ValI64(int64(v)))
}

func (g *gasAccessor) Exhausted() bool {
	if g.wazeroExhausted != nil {
		return uint32(g.wazeroExhausted.Get()) != 0
	}
	return g.wasmtimeExhausted.Get(g.wasmtimeStore).I32() != 0
}
