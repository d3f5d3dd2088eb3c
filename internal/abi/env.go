// Package abi implements the ABI Registry & dispatch: the
// host's function table exposed to the guest, binding a symbolic name to
// a typed handler under a uniform gas-debit, argument-decoding, and
// tracing discipline.
package abi

import (
	"context"
	"fmt"
	"sync"

	"github.com/massalabs/sc-runtime/internal/ffi"
	"github.com/massalabs/sc-runtime/internal/gascost"
	"github.com/massalabs/sc-runtime/internal/hostiface"
	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/trace"
)

// GasAccessor reads and writes the two metering globals exported by the
// compiled module (engine.GlobalRemainingPoints/GlobalExhaustedPoints),
// abstracted so abi does not depend on either WASM engine library
// directly.
type GasAccessor interface {
	Remaining() uint64
	SetRemaining(uint64)
	Exhausted() bool
}

// legacyVersionGatedNames lists the console/trace ABI names that an older
// runtime version refused to call when no cost was configured, once the
// host interface reports version > 0. Every
// other ABI simply debits 0 when its name is absent from the cost table.
var legacyVersionGatedNames = map[string]bool{
	"console.log":   true,
	"console.info":  true,
	"console.warn":  true,
	"console.error": true,
	"console.debug": true,
	"trace":         true,
}

// Env is the per-call environment threaded through every ABI handler: the
// host interface, gas accessor, cost table, optional trace recorder, and
// the dialect-specific FFI bridge. A short-lived mutex is held around each
// dispatch purely to serialize access to the shared trace buffer and gas
// globals within one execution — there is no cross-execution
// sharing through it.
type Env struct {
	mu sync.Mutex

	Ctx  context.Context
	Host hostiface.Interface
	Gas  GasAccessor
	Cost *gascost.Table

	// AbiEnabled gates every call; false during the implicit start
	// function.
	AbiEnabled bool

	// HostVersion selects whether legacyVersionGatedNames are hard errors
	// (version > 0) when uncosted, or silently free (version == 0).
	HostVersion int

	Trace *trace.Recorder

	Legacy *ffi.Legacy
	Modern *ffi.Modern

	// Sub drives nested module executions for call/local_call/
	// local_execution; nil in contexts that disallow sub-calls.
	Sub SubCaller
}

// dispatch is the one generic handler every thin per-ABI wrapper funnels
// through: abi_enabled check, gas debit, and
// optional trace recording. fn performs steps 3-5 (decode, invoke host,
// encode) and returns the trace-ready return value.
func (e *Env) dispatch(name string, params []trace.Param, fn func() (trace.Value, error)) (trace.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.AbiEnabled {
		return trace.Value{}, fmt.Errorf("abi %q called while disabled: %w", name, rterr.ErrABI)
	}

	cost, hasCost := e.Cost.Cost(name)
	if !hasCost && e.HostVersion > 0 && legacyVersionGatedNames[name] {
		return trace.Value{}, fmt.Errorf("abi %q: %w: no cost configured for host version %d", name, rterr.ErrABI, e.HostVersion)
	}
	if cost > 0 {
		if e.Gas.Remaining() < cost {
			e.Gas.SetRemaining(0)
			return trace.Value{}, rterr.RuntimeGasExhaustedIn(name)
		}
		e.Gas.SetRemaining(e.Gas.Remaining() - cost)
	}

	e.Trace.Enter(name, params...)
	ret, err := fn()
	if err != nil {
		// An errored call still closes its trace node so the tree stays
		// well-formed, with a zero-value return.
		e.Trace.Exit(trace.Value{})
		return trace.Value{}, err
	}
	e.Trace.Exit(ret)
	return ret, nil
}
