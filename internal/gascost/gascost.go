// Package gascost implements the Gas Cost Table: a mapping from
// ABI name to a non-negative gas cost, plus the distinguished entries used
// by the engine and runner.
package gascost

import "encoding/json"

// DefaultOperatorCost is the per-WASM-operator cost wired into the
// metering middleware when the cost table does not override it via the
// "operator_cost" entry. The original runtime hard-codes this value to
// avoid breaking gas compatibility with previously deployed contracts,
// despite a table-driven per-operator cost being the intended design.
const DefaultOperatorCost uint64 = 23

// Distinguished entry names, alongside per-ABI-name entries in the table.
const (
	KeyLaunch        = "launch"
	KeyOperatorCost  = "operator_cost"
	KeyCLCompilation = "cl_compilation"
	KeySPCompilation = "sp_compilation"
	KeyMaxInstance   = "max_instance"
)

// Table is the loaded, rounded gas-cost table.
type Table struct {
	costs map[string]uint64
}

// NewTable builds an empty table. Unset entries cost 0, except
// OperatorCost() which falls back to DefaultOperatorCost.
func NewTable() *Table {
	return &Table{costs: make(map[string]uint64)}
}

// Load parses a JSON object of ABI-name-to-cost (the same shape the
// original runtime's ABI cost file uses) and rounds every value to the
// nearest multiple of 10 at load time.
func Load(data []byte) (*Table, error) {
	raw := make(map[string]uint64)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	t := NewTable()
	for name, cost := range raw {
		t.costs[name] = roundToTen(cost)
	}
	return t, nil
}

// roundToTen rounds v to the nearest multiple of 10. A unit digit strictly
// greater than 5 rounds up; anything else, including an exact tie at unit
// digit 5, rounds down. This asymmetric tie-break matches the original
// runtime's rounding rule exactly (not round-half-up, not banker's
// rounding).
func roundToTen(v uint64) uint64 {
	unit := v % 10
	if unit > 5 {
		return v + (10 - unit)
	}
	return v - unit
}

// Set installs a cost for name, rounding it to the nearest multiple of 10.
func (t *Table) Set(name string, cost uint64) {
	t.costs[name] = roundToTen(cost)
}

// Cost returns the configured cost for an ABI name, or 0 if absent.
func (t *Table) Cost(name string) (uint64, bool) {
	c, ok := t.costs[name]
	return c, ok
}

// LaunchCost returns the per-instance startup cost.
func (t *Table) LaunchCost() uint64 {
	return t.costs[KeyLaunch]
}

// OperatorCost returns the fixed per-operator cost wired into metering,
// defaulting to DefaultOperatorCost when unset.
func (t *Table) OperatorCost() uint64 {
	if c, ok := t.costs[KeyOperatorCost]; ok {
		return c
	}
	return DefaultOperatorCost
}

// CLCompilationCost returns the budget cap for cacheable-engine
// compilation, as enforced by the host.
func (t *Table) CLCompilationCost() uint64 { return t.costs[KeyCLCompilation] }

// SPCompilationCost returns the budget cap for fast-engine compilation.
func (t *Table) SPCompilationCost() uint64 { return t.costs[KeySPCompilation] }

// MaxInstanceCost returns the per-instance budget cap enforced by the host.
func (t *Table) MaxInstanceCost() uint64 { return t.costs[KeyMaxInstance] }
