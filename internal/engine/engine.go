package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v3"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/massalabs/sc-runtime/internal/gascost"
	"github.com/massalabs/sc-runtime/internal/metrics"
	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

// Dialect selects the guest FFI convention a compiled module expects.
type Dialect byte

const (
	DialectLegacy Dialect = 0
	DialectModern Dialect = 1
)

// ParseDialect reads the one-byte dialect discriminator off a bytecode
// blob and returns the remaining WASM module bytes.
func ParseDialect(blob []byte) (Dialect, []byte, error) {
	if len(blob) <= 2 {
		return 0, nil, fmt.Errorf("%w: unsupported file format", rterr.ErrCompile)
	}
	switch blob[0] {
	case byte(DialectLegacy):
		return DialectLegacy, blob[1:], nil
	case byte(DialectModern):
		return DialectModern, blob[1:], nil
	default:
		return 0, nil, fmt.Errorf("%w: unsupported file format", rterr.ErrCompile)
	}
}

// Flavor distinguishes the two compiler configurations.
type Flavor int

const (
	// FlavorCacheable produces artifacts that can be serialized and
	// reloaded: slower compile, faster execute. Backed by wasmtime-go,
	// whose Module.Serialize/NewModuleDeserialize directly implements
	// the on-disk serialization format.
	FlavorCacheable Flavor = iota
	// FlavorFast produces artifacts optimized for one-shot execution;
	// serialization is disallowed. Backed by wazero, which exposes no
	// artifact-serialization API — enforcing that contract for free.
	FlavorFast
)

// MemoryLimits caps linear-memory growth. NewFastEngine applies it;
// NewCacheableEngine stores it but does not apply it.
type MemoryLimits struct {
	MaxPages uint32
}

// Engine owns one compiler configuration (feature gate + condom limits +
// metering cost) for one Flavor. A CompiledModule produced by an Engine
// must only be instantiated by that same Engine — mixing flavors is
// undefined behavior.
type Engine struct {
	flavor    Flavor
	limits    Limits
	memory    MemoryLimits
	costs     *gascost.Table
	calibrate bool

	wazeroRuntime  wazero.Runtime
	wasmtimeEngine *wasmtime.Engine

	metrics *metrics.Registry
}

// SetMetrics attaches a metrics registry so condom rejections are counted
// by limit category. Safe to leave unset; rejections are simply unrecorded.
func (e *Engine) SetMetrics(reg *metrics.Registry) { e.metrics = reg }

// NewCacheableEngine builds the cacheable (wasmtime-backed) engine flavor.
func NewCacheableEngine(limits Limits, memory MemoryLimits, costs *gascost.Table, calibrate bool) (*Engine, error) {
	cfg := wasmtime.NewConfig()
	cfg.SetWasmBulkMemory(true)
	cfg.SetWasmMultiValue(false)
	cfg.SetWasmReferenceTypes(false)
	cfg.SetWasmSIMD(false)
	cfg.SetWasmThreads(false)
	cfg.SetWasmMemory64(false)
	cfg.SetCraneliftOptLevel(wasmtime.OptLevelSpeed)
	cfg.SetCraneliftNanCanonicalization(true)
	return &Engine{
		flavor:         FlavorCacheable,
		limits:         limits,
		memory:         memory,
		costs:          costs,
		calibrate:      calibrate,
		wasmtimeEngine: wasmtime.NewEngineWithConfig(cfg),
	}, nil
}

// NewFastEngine builds the fast (wazero-backed) one-shot engine flavor.
func NewFastEngine(limits Limits, memory MemoryLimits, costs *gascost.Table, calibrate bool) (*Engine, error) {
	features := api.CoreFeaturesV1 | api.CoreFeatureBulkMemoryOperations
	cfg := wazero.NewRuntimeConfigCompiler().
		WithCoreFeatures(features).
		WithCloseOnContextDone(true)
	if memory.MaxPages > 0 {
		cfg = cfg.WithMemoryLimitPages(memory.MaxPages)
	}
	rt := wazero.NewRuntimeWithConfig(context.Background(), cfg)
	return &Engine{
		flavor:        FlavorFast,
		limits:        limits,
		memory:        memory,
		costs:         costs,
		calibrate:     calibrate,
		wazeroRuntime: rt,
	}, nil
}

// Flavor reports which compiler flavor this engine is.
func (e *Engine) Flavor() Flavor { return e.flavor }

// CompiledModule is the immutable artifact handed to the Module Cache and
// the Runner. It carries the dialect tag, the gas limit recorded
// at compile time, and the owning engine; it cannot outlive that engine.
type CompiledModule struct {
	engine   *Engine
	dialect  Dialect
	gasLimit uint64

	wazeroCompiled  wazero.CompiledModule
	wasmtimeModule  *wasmtime.Module
}

// Dialect satisfies hostiface.CompiledModule.
func (c *CompiledModule) Dialect() byte { return byte(c.dialect) }

// GasLimit returns the gas limit recorded at compile time.
func (c *CompiledModule) GasLimit() uint64 { return c.gasLimit }

// Engine returns the owning engine.
func (c *CompiledModule) Engine() *Engine { return c.engine }

// Compile runs Condom, instruments metering (or gas-calibration counting),
// and compiles bytecode into an artifact owned by e at the given gas
// limit. bytecode must already have had its dialect-tag byte stripped by
// the caller (ParseDialect); dialect is passed explicitly so the caller
// controls FFI wiring.
func (e *Engine) Compile(ctx context.Context, dialect Dialect, wasmModule []byte, gasLimit uint64) (*CompiledModule, error) {
	parsed, err := wasmbin.Parse(wasmModule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rterr.ErrCompile, err)
	}
	if err := CheckCondom(parsed, e.limits); err != nil {
		if e.metrics != nil {
			var limitErr *rterr.StructuralLimitError
			if errors.As(err, &limitErr) {
				e.metrics.CondomRejectedTotal.WithLabelValues(limitErr.Category).Inc()
			}
		}
		return nil, err
	}

	var instrumented []byte
	if e.calibrate {
		instrumented, err = InstrumentCalibration(wasmModule)
	} else {
		instrumented, err = InstrumentMetering(wasmModule, e.costs.OperatorCost())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: metering instrumentation: %v", rterr.ErrCompile, err)
	}

	cm := &CompiledModule{engine: e, dialect: dialect, gasLimit: gasLimit}
	switch e.flavor {
	case FlavorFast:
		compiled, err := e.wazeroRuntime.CompileModule(ctx, instrumented)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", rterr.ErrCompile, err)
		}
		cm.wazeroCompiled = compiled
	case FlavorCacheable:
		mod, err := wasmtime.NewModule(e.wasmtimeEngine, instrumented)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", rterr.ErrCompile, err)
		}
		cm.wasmtimeModule = mod
	}
	return cm, nil
}

// Serialize writes a dialect-tag byte followed by the engine's native
// serialized artifact. Only cacheable artifacts support
// this; calling it on a fast artifact is a programming error, since the
// fast (wazero) flavor exposes no serialization API in the first place.
func (c *CompiledModule) Serialize() ([]byte, error) {
	if c.engine.flavor != FlavorCacheable {
		panic("engine: attempted to serialize a fast (non-cacheable) artifact")
	}
	artifact, err := c.wasmtimeModule.Serialize()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(artifact))
	out = append(out, byte(c.dialect))
	out = append(out, artifact...)
	return out, nil
}

// Deserialize peels the dialect tag and reconstructs a CompiledModule
// owned by e, which must be a cacheable engine configured with the same
// limits and gas costs the artifact was produced under. The deserialized
// module is trusted: the format is not a cross-process authenticated
// format, so callers must only feed it artifacts this system
// itself produced and stored.
func (e *Engine) Deserialize(data []byte, gasLimit uint64) (*CompiledModule, error) {
	if e.flavor != FlavorCacheable {
		return nil, fmt.Errorf("%w: deserialize requires a cacheable engine", rterr.ErrCompile)
	}
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty serialized artifact", rterr.ErrCompile)
	}
	dialect := Dialect(data[0])
	mod, err := wasmtime.NewModuleDeserialize(e.wasmtimeEngine, data[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rterr.ErrCompile, err)
	}
	return &CompiledModule{engine: e, dialect: dialect, gasLimit: gasLimit, wasmtimeModule: mod}, nil
}

// WazeroRuntime exposes the underlying wazero runtime for the fast flavor,
// used by execctx to build module configs / instantiate.
func (e *Engine) WazeroRuntime() wazero.Runtime { return e.wazeroRuntime }

// WasmtimeEngine exposes the underlying wasmtime engine for the cacheable
// flavor, used by execctx to build stores/instances.
func (e *Engine) WasmtimeEngine() *wasmtime.Engine { return e.wasmtimeEngine }

// WazeroCompiled exposes the underlying wazero compiled module.
func (c *CompiledModule) WazeroCompiled() wazero.CompiledModule { return c.wazeroCompiled }

// WasmtimeModule exposes the underlying wasmtime module.
func (c *CompiledModule) WasmtimeModule() *wasmtime.Module { return c.wasmtimeModule }

// Close releases the compiled artifact's resources.
func (c *CompiledModule) Close(ctx context.Context) error {
	if c.wazeroCompiled != nil {
		return c.wazeroCompiled.Close(ctx)
	}
	return nil
}
