package abi

import (
	"errors"
	"testing"

	"github.com/massalabs/sc-runtime/internal/gascost"
	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/trace"
)

// stubGas is a minimal in-memory GasAccessor for exercising Env.dispatch
// without a live WASM instance.
type stubGas struct {
	remaining uint64
	exhausted bool
}

func (g *stubGas) Remaining() uint64 { return g.remaining }
func (g *stubGas) SetRemaining(v uint64) {
	g.remaining = v
	if v == 0 {
		g.exhausted = true
	}
}
func (g *stubGas) Exhausted() bool { return g.exhausted }

func newTestEnv(gas uint64, hostVersion int) (*Env, *stubGas) {
	costs := gascost.NewTable()
	costs.Set("get_data", 10)
	g := &stubGas{remaining: gas}
	return &Env{
		Gas:         g,
		Cost:        costs,
		AbiEnabled:  true,
		HostVersion: hostVersion,
		Trace:       trace.NewRecorder(),
	}, g
}

func TestDispatchDisabledRejected(t *testing.T) {
	env, _ := newTestEnv(100, 0)
	env.AbiEnabled = false
	_, err := env.dispatch("get_data", nil, func() (trace.Value, error) { return trace.Value{}, nil })
	if !errors.Is(err, rterr.ErrABI) {
		t.Errorf("expected ErrABI, got %v", err)
	}
}

func TestDispatchDebitsCost(t *testing.T) {
	env, gas := newTestEnv(100, 0)
	_, err := env.dispatch("get_data", nil, func() (trace.Value, error) { return trace.Int(1), nil })
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gas.remaining != 90 {
		t.Errorf("remaining = %d, want 90", gas.remaining)
	}
}

func TestDispatchExhaustsOnInsufficientGas(t *testing.T) {
	env, gas := newTestEnv(5, 0)
	_, err := env.dispatch("get_data", nil, func() (trace.Value, error) { return trace.Int(1), nil })
	if !errors.Is(err, rterr.ErrRuntimeGasExhausted) {
		t.Errorf("expected ErrRuntimeGasExhausted, got %v", err)
	}
	if !gas.Exhausted() {
		t.Error("gas should be marked exhausted")
	}
}

func TestDispatchRecordsTrace(t *testing.T) {
	env, _ := newTestEnv(100, 0)
	_, err := env.dispatch("get_data", []trace.Param{{Name: "key", Value: trace.Bytes([]byte("k"))}},
		func() (trace.Value, error) { return trace.Bytes([]byte("v")), nil })
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	roots := env.Trace.Roots()
	if len(roots) != 1 || roots[0].Name != "get_data" {
		t.Fatalf("expected a get_data trace node, got %+v", roots)
	}
}

func TestDispatchErrorStillClosesTraceNode(t *testing.T) {
	env, _ := newTestEnv(100, 0)
	wantErr := errors.New("handler failed")
	_, err := env.dispatch("get_data", nil, func() (trace.Value, error) { return trace.Value{}, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
	roots := env.Trace.Roots()
	if len(roots) != 1 {
		t.Fatalf("errored call should still close its trace node, got %+v", roots)
	}
}

func TestDispatchVersionGatedUncostedName(t *testing.T) {
	env, _ := newTestEnv(100, 1)
	_, err := env.dispatch("console.log", nil, func() (trace.Value, error) { return trace.Value{}, nil })
	if !errors.Is(err, rterr.ErrABI) {
		t.Errorf("expected ErrABI for uncosted gated name at host version > 0, got %v", err)
	}
}

func TestDispatchUncostedNameAllowedAtVersionZero(t *testing.T) {
	env, _ := newTestEnv(100, 0)
	_, err := env.dispatch("console.log", nil, func() (trace.Value, error) { return trace.Value{}, nil })
	if err != nil {
		t.Errorf("uncosted console.log at host version 0 should be free, got %v", err)
	}
}
