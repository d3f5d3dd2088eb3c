package execctx

import "github.com/massalabs/sc-runtime/internal/trace"

// Response is the result of a successful run_main/run_function invocation:
// the return buffer, the gas remaining after execution, the gas spent
// reaching the point ABIs became callable, and an optional trace tree.
type Response struct {
	Data         []byte
	RemainingGas uint64
	InitCost     uint64
	Trace        []*trace.Node
}
