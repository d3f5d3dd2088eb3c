package execctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytecodealliance/wasmtime-go/v3"
	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"

	"github.com/massalabs/sc-runtime/internal/abi"
	"github.com/massalabs/sc-runtime/internal/engine"
	"github.com/massalabs/sc-runtime/internal/ffi"
	"github.com/massalabs/sc-runtime/internal/gascost"
	"github.com/massalabs/sc-runtime/internal/hostiface"
	"github.com/massalabs/sc-runtime/internal/logging"
	"github.com/massalabs/sc-runtime/internal/metrics"
	"github.com/massalabs/sc-runtime/internal/modcache"
	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/trace"
	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

// Runner is the top-level execution entry point: it owns the engines, the
// module cache, and the ABI registry, and exposes run_main/run_function as
// RunMain/RunFunction. One Runner is shared across many concurrent
// executions; each call builds its own store/instance/environment.
type Runner struct {
	Cache       *modcache.Cache
	FastEngine  *engine.Engine
	Registry    *abi.Registry
	Costs       *gascost.Table
	Log         logging.Logger
	TraceOn     bool
	HostVersion int
	MaxDepth    int
	Metrics     *metrics.Registry
}

// runningInstance collects the per-flavor handles needed to call an export
// and read back gas/memory state, behind the shared ffi.Exports/ffi.Memory
// shape so the rest of execModule doesn't branch on flavor again.
type runningInstance struct {
	exports ffi.Exports
	memory  ffi.Memory
	gas     *gasAccessor
	closeFn func() error
}

// instantiate builds a store/instance for cm, wiring env's dialect-specific
// ABI handlers as its imports, and returns the unified accessor set. env's
// Legacy/Modern fields are set by the caller once memory/exports are known,
// since the FFI bridge needs the very instance being created here.
func (r *Runner) instantiate(ctx context.Context, cm *engine.CompiledModule, dialect engine.Dialect, env *abi.Env, parsed *wasmbin.Module) (*runningInstance, error) {
	bindings, err := collectFuncImports(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rterr.ErrCompile, err)
	}

	switch cm.Engine().Flavor() {
	case engine.FlavorFast:
		rt := cm.Engine().WazeroRuntime()
		if err := buildWazeroImports(ctx, rt, dialect, r.Registry, env, bindings); err != nil {
			return nil, err
		}
		mod, err := rt.InstantiateModule(ctx, cm.WazeroCompiled(), wazero.NewModuleConfig())
		if err != nil {
			return nil, classifyInstantiateError(err)
		}
		gas, err := newWazeroGasAccessor(mod)
		if err != nil {
			return nil, err
		}
		return &runningInstance{
			exports: ffi.NewWazeroExports(ctx, mod),
			memory:  ffi.NewWazeroMemory(mod),
			gas:     gas,
			closeFn: func() error { return mod.Close(ctx) },
		}, nil
	case engine.FlavorCacheable:
		linker, err := buildWasmtimeLinker(cm.Engine().WasmtimeEngine(), dialect, r.Registry, env, bindings)
		if err != nil {
			return nil, err
		}
		store := wasmtime.NewStore(cm.Engine().WasmtimeEngine())
		store.SetWasiConfig(nil)
		instance, err := linker.Instantiate(store, cm.WasmtimeModule())
		if err != nil {
			return nil, classifyInstantiateError(err)
		}
		gas, err := newWasmtimeGasAccessor(store, instance)
		if err != nil {
			return nil, err
		}
		memExport := instance.GetExport(store, "memory")
		if memExport == nil || memExport.Memory() == nil {
			return nil, fmt.Errorf("%w: instance does not export linear memory", rterr.ErrCompile)
		}
		return &runningInstance{
			exports: ffi.NewWasmtimeExports(store, instance),
			memory:  ffi.NewWasmtimeMemory(store, memExport.Memory()),
			gas:     gas,
			closeFn: func() error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine flavor", rterr.ErrCompile)
	}
}

// classifyInstantiateError maps an instance-creation error to the init-gas
// exhaustion sentinel when its message mentions an unreachable trap, which
// is what the metering debit preamble raises on exhaustion. Any other
// unreachable trap during the implicit start is mapped the same way; no
// ABI-call or trace state is inspected.
func classifyInstantiateError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unreachable") {
		return rterr.ErrInitGasExhausted
	}
	return fmt.Errorf("%w: %v", rterr.ErrCompile, err)
}

// RunMain is the run_main entry point: instantiate, run the implicit
// start, invoke the "main" export with no arguments, and discard its i32
// return value — main's Response.Data is always empty.
func (r *Runner) RunMain(ctx context.Context, host hostiface.Interface, bytecode []byte, gasLimit uint64) (*Response, error) {
	return r.execModule(ctx, host, bytecode, gasLimit, "main", nil, true)
}

// RunFunction is the run_function entry point: instantiate and invoke the
// named export, passing param as a single FFI buffer argument when
// non-empty, and decoding its i32 return value as a buffer pointer/offset.
func (r *Runner) RunFunction(ctx context.Context, host hostiface.Interface, bytecode []byte, gasLimit uint64, function string, param []byte) (*Response, error) {
	return r.execModule(ctx, host, bytecode, gasLimit, function, param, false)
}

// execModule implements the 8-step algorithm shared by run_main and
// run_function: build store, snapshot gas for read-only accounting,
// instantiate (running the implicit start), compute init cost, enforce the
// launch-cost floor, enable ABIs, invoke the named export, and package the
// response.
func (r *Runner) execModule(ctx context.Context, host hostiface.Interface, bytecode []byte, gasLimit uint64, function string, param []byte, isMain bool) (*Response, error) {
	dialect, moduleBytes, err := engine.ParseDialect(bytecode)
	if err != nil {
		return nil, err
	}
	parsed, err := wasmbin.Parse(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rterr.ErrCompile, err)
	}

	// Step 2: read-only call accounting snapshot, taken before any
	// instance exists.
	if err := host.SaveGasRemainingBeforeSubexecution(ctx, gasLimit); err != nil {
		return nil, rterr.WrapHostInterface(err)
	}

	cm, err := r.Cache.GetOrCompile(ctx, dialect, moduleBytes, gasLimit)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := r.Log.WithFields(logging.Fields{"run_id": runID, "function": function})

	var recorder *trace.Recorder
	if r.TraceOn {
		recorder = trace.NewRecorder()
	}

	env := &abi.Env{
		Ctx:         ctx,
		Host:        host,
		Cost:        r.Costs,
		AbiEnabled:  false,
		HostVersion: r.HostVersion,
		Trace:       recorder,
		Sub:         &subCaller{runner: r},
	}

	inst, err := r.instantiate(ctx, cm, dialect, env, parsed)
	if err != nil {
		logger.Debug("instance creation failed: %v", err)
		return nil, err
	}
	defer inst.closeFn()
	env.Gas = inst.gas

	if dialect == engine.DialectLegacy {
		env.Legacy = ffi.NewLegacy(inst.memory, inst.exports)
	} else {
		env.Modern = ffi.NewModern(inst.memory, inst.exports)
	}

	// Step 4: gas consumed by the implicit start function.
	remainingAfterStart := inst.gas.Remaining()
	initCost := gasLimit - remainingAfterStart
	if remainingAfterStart > gasLimit {
		initCost = 0
	}

	// Step 5: launch cost must fit in what's left after init.
	budgetAfterInit := gasLimit - initCost
	launchCost := r.Costs.LaunchCost()
	if budgetAfterInit < launchCost {
		return nil, &rterr.ExecutionError{Err: rterr.ErrLaunchCostUnderflow, InitCost: initCost}
	}

	// Step 6: arm the guest's metering budget and enable ABI calls.
	inst.gas.SetRemaining(budgetAfterInit - launchCost)
	env.AbiEnabled = true

	data, err := r.invokeExport(env, dialect, inst, function, param, isMain)
	if err != nil {
		r.recordInstance("failure")
		if inst.gas.Exhausted() {
			return nil, &rterr.ExecutionError{Err: rterr.RuntimeGasExhaustedIn(function), InitCost: initCost}
		}
		return nil, &rterr.ExecutionError{Err: err, InitCost: initCost}
	}

	r.recordInstance("success")
	r.recordGas(gasLimit, inst.gas.Remaining())

	resp := &Response{
		Data:         data,
		RemainingGas: inst.gas.Remaining(),
		InitCost:     initCost,
	}
	if recorder != nil {
		resp.Trace = recorder.Roots()
	}
	return resp, nil
}

func (r *Runner) recordInstance(outcome string) {
	if r.Metrics != nil {
		r.Metrics.InstancesTotal.WithLabelValues(outcome).Inc()
	}
}

// recordGas observes total gas spent (init cost plus whatever was consumed
// after ABIs were enabled) against the histogram.
func (r *Runner) recordGas(gasLimit, remaining uint64) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.GasConsumed.Observe(float64(gasLimit - remaining))
}

func (r *Runner) invokeExport(env *abi.Env, dialect engine.Dialect, inst *runningInstance, function string, param []byte, isMain bool) ([]byte, error) {
	if !inst.exports.Has(function) {
		return nil, fmt.Errorf("%w: export %q not found", rterr.ErrABI, function)
	}

	var argPtr uint64
	haveArg := false
	if len(param) > 0 {
		var ptr uint32
		var err error
		if dialect == engine.DialectLegacy {
			ptr, err = env.Legacy.WriteBuffer(param)
		} else {
			ptr, err = env.Modern.WriteBuffer(param)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: writing argument buffer: %v", rterr.ErrABI, err)
		}
		argPtr = uint64(ptr)
		haveArg = true
	}

	arity, err := inst.exports.Arity(function)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rterr.ErrABI, err)
	}
	if arity != 0 && arity != 1 {
		return nil, fmt.Errorf("%w: export %q: unexpected number of parameters: %d", rterr.ErrABI, function, arity)
	}

	var results []uint64
	if arity == 1 {
		results, err = inst.exports.Call(function, argPtr)
	} else {
		results, err = inst.exports.Call(function)
	}
	if err != nil {
		return nil, err
	}

	if isMain || len(results) == 0 {
		return []byte{}, nil
	}
	ptr := uint32(results[0])
	if dialect == engine.DialectLegacy {
		return env.Legacy.ReadBuffer(ptr)
	}
	return env.Modern.ReadBuffer(ptr)
}
