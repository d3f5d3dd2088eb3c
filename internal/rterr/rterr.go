// Package rterr collects the error taxonomy: one sentinel per failure
// category, plus the wrapper types that carry category-specific detail.
// It is a leaf package with no dependencies on the rest of the module so
// that engine, ffi, abi, and execctx can all report through it without
// creating import cycles.
package rterr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure category. Wrap with fmt.Errorf("...:
// %w", ...) so errors.Is/errors.As keep working across sub-call boundaries.
var (
	// ErrStructuralLimit is returned when a condom check rejects a module
	// before compilation completes.
	ErrStructuralLimit = errors.New("structural limit exceeded")

	// ErrCompile covers validation failures or use of a disallowed feature.
	ErrCompile = errors.New("compile error")

	// ErrInitGasExhausted is returned when the implicit start function
	// trapped with unreachable during metering.
	ErrInitGasExhausted = errors.New("not enough gas, limit reached at initialization")

	// ErrLaunchCostUnderflow is returned when the metered budget after
	// init cannot cover the launch cost.
	ErrLaunchCostUnderflow = errors.New("not enough gas to launch the virtual machine")

	// ErrRuntimeGasExhausted is returned when the guest traps on a
	// metering debit mid-execution.
	ErrRuntimeGasExhausted = errors.New("not enough gas")

	// ErrGuestAbort is returned when the guest invokes its abort hook or
	// process.exit.
	ErrGuestAbort = errors.New("guest abort")

	// ErrABI covers argument-decoding failures and other ABI-handler
	// validation errors.
	ErrABI = errors.New("abi error")

	// ErrHostInterface wraps any error returned by the external host.
	ErrHostInterface = errors.New("host interface error")

	// ErrDepth is returned when sub-call recursion exceeds the
	// host-maintained depth bound.
	ErrDepth = errors.New("depth error")

	// ErrNotReady is returned when an operation is attempted on an
	// instance that has not reached the required lifecycle state.
	ErrNotReady = errors.New("instance not ready")
)

// RuntimeGasExhaustedIn wraps ErrRuntimeGasExhausted, naming the function
// that was executing when metering tripped.
func RuntimeGasExhaustedIn(function string) error {
	return fmt.Errorf("not enough gas, limit reached at %s: %w", function, ErrRuntimeGasExhausted)
}

// GuestAbortError is the fatal error raised when the guest invokes its
// AssemblyScript abort(message, file, line, col) hook.
type GuestAbortError struct {
	Message string
	File    string
	Line    int32
	Column  int32
}

func (e *GuestAbortError) Error() string {
	return fmt.Sprintf("guest abort: %s at %s:%d:%d", e.Message, e.File, e.Line, e.Column)
}

func (e *GuestAbortError) Unwrap() error { return ErrGuestAbort }

// ProcessExitError is the fatal error raised when the guest invokes
// process.exit(code).
type ProcessExitError struct {
	Code int32
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("guest process.exit(%d)", e.Code)
}

func (e *ProcessExitError) Unwrap() error { return ErrGuestAbort }

// StructuralLimitError names the condom category that was exceeded and the
// observed vs. allowed values.
type StructuralLimitError struct {
	Category string
	Observed int
	Allowed  int
}

func (e *StructuralLimitError) Error() string {
	return fmt.Sprintf("too many %s: %d exceeds limit %d", e.Category, e.Observed, e.Allowed)
}

func (e *StructuralLimitError) Unwrap() error { return ErrStructuralLimit }

// ExecutionError wraps an underlying failure with the init gas cost
// computed so far, so the host can charge accordingly even on failure.
type ExecutionError struct {
	Err      error
	InitCost uint64
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error (init_cost=%d): %v", e.InitCost, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// WrapHostInterface wraps an arbitrary error returned by the host
// interface so it participates in errors.Is(err, ErrHostInterface).
func WrapHostInterface(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrHostInterface, err)
}

// WrapABI wraps an argument-decoding or handler-validation failure.
func WrapABI(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("abi %q: %w: %w", name, ErrABI, err)
}
