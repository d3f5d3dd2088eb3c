// Package runtime is the public entry point: it wires together the engine
// factory, module cache, and ABI registry into a single Runner, configured
// with the same With...().Init() chain the host project's own WASM SDK
// uses.
package runtime

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/massalabs/sc-runtime/internal/abi"
	"github.com/massalabs/sc-runtime/internal/engine"
	"github.com/massalabs/sc-runtime/internal/execctx"
	"github.com/massalabs/sc-runtime/internal/gascost"
	"github.com/massalabs/sc-runtime/internal/logging"
	"github.com/massalabs/sc-runtime/internal/metrics"
	"github.com/massalabs/sc-runtime/internal/modcache"
)

// Response re-exports the execution result type so callers never need to
// import internal/execctx directly.
type Response = execctx.Response

// Runtime is the configured, ready-to-use facade over a Runner.
type Runtime struct {
	runner *execctx.Runner
}

// Config accumulates options before Init builds the Runtime. Use New() to
// obtain one with sensible defaults, chain With... calls, then Init().
type Config struct {
	configErr error

	memoryMaxPages uint32
	condomLimits   engine.Limits
	costs          *gascost.Table
	cacheCapacity  int
	traceEnabled   bool
	hostVersion    int
	maxDepth       int
	calibrate      bool
	logger         logging.Logger
	metricsReg     prometheus.Registerer
}

// New returns a Config with conservative defaults: full condom limits, the
// default gas-cost table (operator_cost pinned to 23), a 128-entry module
// cache, tracing off, and a no-op logger.
func New() *Config {
	return &Config{
		memoryMaxPages: 0,
		condomLimits:   engine.DefaultLimits(),
		costs:          gascost.NewTable(),
		cacheCapacity:  128,
		maxDepth:       16,
		logger:         logging.NoOp(),
	}
}

// WithMemoryMaxPages sets the linear-memory page cap handed to both
// engines; 0 means no limit. Only the fast (wazero) engine applies it. The
// cacheable engine, which compiles every module RunMain and RunFunction
// execute, does not apply it, so those executions run without a page cap.
func (c *Config) WithMemoryMaxPages(pages uint32) *Config {
	c.memoryMaxPages = pages
	return c
}

// WithCondomLimits replaces the structural-limit configuration.
func (c *Config) WithCondomLimits(limits engine.Limits) *Config {
	c.condomLimits = limits
	return c
}

// WithGasCostTable loads a gas-cost table from JSON bytes (name -> cost),
// rounding every entry to the nearest multiple of ten.
func (c *Config) WithGasCostTable(data []byte) *Config {
	t, err := gascost.Load(data)
	if err != nil {
		c.configErr = fmt.Errorf("runtime: loading gas cost table: %w", err)
		return c
	}
	c.costs = t
	return c
}

// WithCacheCapacity sets the module cache's LRU capacity.
func (c *Config) WithCacheCapacity(n int) *Config {
	c.cacheCapacity = n
	return c
}

// WithTrace enables or disables the per-call ABI trace tree.
func (c *Config) WithTrace(enabled bool) *Config {
	c.traceEnabled = enabled
	return c
}

// WithHostVersion sets the interface version used to gate the legacy
// uncosted console/trace ABI family.
func (c *Config) WithHostVersion(v int) *Config {
	c.hostVersion = v
	return c
}

// WithMaxDepth sets the sub-call recursion guard; 0 disables the guard.
func (c *Config) WithMaxDepth(n int) *Config {
	c.maxDepth = n
	return c
}

// WithGasCalibration switches the metering middleware for the per-import
// call-counting calibration middleware.
func (c *Config) WithGasCalibration(enabled bool) *Config {
	c.calibrate = enabled
	return c
}

// WithLogger replaces the default no-op logger.
func (c *Config) WithLogger(l logging.Logger) *Config {
	c.logger = l
	return c
}

// WithMetricsRegisterer enables Prometheus instrumentation (instance
// outcomes, gas-consumed histogram, cache hit/miss, condom rejections),
// registering the collectors against reg. Not calling this leaves
// metrics collection disabled.
func (c *Config) WithMetricsRegisterer(reg prometheus.Registerer) *Config {
	c.metricsReg = reg
	return c
}

// Init builds engines, the module cache, and the ABI registry, returning a
// ready-to-use Runtime, or the delayed configuration error from an earlier
// With... call.
func (c *Config) Init() (*Runtime, error) {
	if c.configErr != nil {
		return nil, c.configErr
	}

	memory := engine.MemoryLimits{MaxPages: c.memoryMaxPages}

	var metricsReg *metrics.Registry
	if c.metricsReg != nil {
		metricsReg = metrics.NewRegistry()
		metricsReg.MustRegister(c.metricsReg)
	}

	cacheableEngine, err := engine.NewCacheableEngine(c.condomLimits, memory, c.costs, c.calibrate)
	if err != nil {
		return nil, fmt.Errorf("runtime: building cacheable engine: %w", err)
	}
	cacheableEngine.SetMetrics(metricsReg)
	fastEngine, err := engine.NewFastEngine(c.condomLimits, memory, c.costs, c.calibrate)
	if err != nil {
		return nil, fmt.Errorf("runtime: building fast engine: %w", err)
	}
	fastEngine.SetMetrics(metricsReg)

	cache, err := modcache.New(c.cacheCapacity, cacheableEngine, metricsReg)
	if err != nil {
		return nil, fmt.Errorf("runtime: building module cache: %w", err)
	}

	runner := &execctx.Runner{
		Cache:       cache,
		FastEngine:  fastEngine,
		Registry:    abi.NewRegistry(),
		Costs:       c.costs,
		Log:         c.logger,
		TraceOn:     c.traceEnabled,
		HostVersion: c.hostVersion,
		MaxDepth:    c.maxDepth,
		Metrics:     metricsReg,
	}
	return &Runtime{runner: runner}, nil
}
