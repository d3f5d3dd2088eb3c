package runtime

import (
	"context"

	"github.com/massalabs/sc-runtime/internal/hostiface"
)

// RunMain compiles bytecode (or reuses the cached compiled artifact),
// instantiates it, runs its implicit start under gasLimit, then invokes its
// "main" export with no arguments. Data on the returned Response is always
// empty; RemainingGas and InitCost report gas accounting, and Trace carries
// the ABI call tree when tracing was enabled at Init.
func (rt *Runtime) RunMain(ctx context.Context, host hostiface.Interface, bytecode []byte, gasLimit uint64) (*Response, error) {
	return rt.runner.RunMain(ctx, host, bytecode, gasLimit)
}

// RunFunction compiles bytecode (or reuses the cached compiled artifact),
// instantiates it, runs its implicit start under gasLimit, then invokes the
// named export with param as its single argument buffer (when non-empty),
// returning the export's decoded return buffer as Response.Data.
func (rt *Runtime) RunFunction(ctx context.Context, host hostiface.Interface, bytecode []byte, gasLimit uint64, function string, param []byte) (*Response, error) {
	return rt.runner.RunFunction(ctx, host, bytecode, gasLimit, function, param)
}
