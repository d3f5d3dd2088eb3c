package runtime

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/massalabs/sc-runtime/internal/engine"
)

func TestNewAppliesDefaults(t *testing.T) {
	c := New()
	if c.cacheCapacity != 128 {
		t.Errorf("cacheCapacity = %d, want 128", c.cacheCapacity)
	}
	if c.maxDepth != 16 {
		t.Errorf("maxDepth = %d, want 16", c.maxDepth)
	}
	if c.traceEnabled {
		t.Error("traceEnabled should default to false")
	}
	if c.configErr != nil {
		t.Errorf("unexpected configErr: %v", c.configErr)
	}
}

func TestWithGasCostTableCapturesDelayedError(t *testing.T) {
	c := New().WithGasCostTable([]byte("not json"))
	if c.configErr == nil {
		t.Fatal("expected a delayed configErr for invalid JSON")
	}
	_, err := c.Init()
	if err == nil {
		t.Error("Init should surface the delayed configErr")
	}
}

func TestChainingReturnsSameConfig(t *testing.T) {
	c := New()
	got := c.WithTrace(true).WithHostVersion(1).WithMaxDepth(4)
	if got != c {
		t.Error("With... methods should mutate and return the same *Config")
	}
	if !c.traceEnabled || c.hostVersion != 1 || c.maxDepth != 4 {
		t.Errorf("chained options not applied: %+v", c)
	}
}

func TestWithCondomLimitsReplacesDefaults(t *testing.T) {
	custom := engine.Limits{}
	c := New().WithCondomLimits(custom)
	if c.condomLimits != custom {
		t.Error("WithCondomLimits should replace condomLimits verbatim")
	}
}

func TestWithMetricsRegistererStoresRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New().WithMetricsRegisterer(reg)
	if c.metricsReg != reg {
		t.Error("WithMetricsRegisterer should store the given Registerer")
	}
}
