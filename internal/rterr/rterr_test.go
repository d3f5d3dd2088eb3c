package rterr

import (
	"errors"
	"testing"
)

func TestStructuralLimitErrorUnwraps(t *testing.T) {
	err := &StructuralLimitError{Category: "exports", Observed: 20, Allowed: 10}
	if !errors.Is(err, ErrStructuralLimit) {
		t.Error("expected errors.Is(err, ErrStructuralLimit)")
	}
	var target *StructuralLimitError
	if !errors.As(err, &target) || target.Category != "exports" {
		t.Errorf("errors.As failed: %+v", target)
	}
}

func TestExecutionErrorUnwraps(t *testing.T) {
	inner := RuntimeGasExhaustedIn("main")
	wrapped := &ExecutionError{Err: inner, InitCost: 42}
	if !errors.Is(wrapped, ErrRuntimeGasExhausted) {
		t.Error("expected errors.Is(wrapped, ErrRuntimeGasExhausted)")
	}
}

func TestRuntimeGasExhaustedInNamesFunction(t *testing.T) {
	err := RuntimeGasExhaustedIn("my_export")
	if !errors.Is(err, ErrRuntimeGasExhausted) {
		t.Error("expected errors.Is with ErrRuntimeGasExhausted")
	}
	if got := err.Error(); got == "" {
		t.Error("expected non-empty message")
	}
}

func TestWrapHostInterfaceNilPassthrough(t *testing.T) {
	if WrapHostInterface(nil) != nil {
		t.Error("WrapHostInterface(nil) should return nil")
	}
	wrapped := WrapHostInterface(errors.New("boom"))
	if !errors.Is(wrapped, ErrHostInterface) {
		t.Error("expected errors.Is(wrapped, ErrHostInterface)")
	}
}

func TestWrapABINilPassthrough(t *testing.T) {
	if WrapABI("get_data", nil) != nil {
		t.Error("WrapABI(name, nil) should return nil")
	}
	wrapped := WrapABI("get_data", errors.New("bad arg"))
	if !errors.Is(wrapped, ErrABI) {
		t.Error("expected errors.Is(wrapped, ErrABI)")
	}
}

func TestGuestAbortAndProcessExitUnwrap(t *testing.T) {
	abort := &GuestAbortError{Message: "m", File: "f", Line: 1, Column: 2}
	if !errors.Is(abort, ErrGuestAbort) {
		t.Error("GuestAbortError should unwrap to ErrGuestAbort")
	}
	exit := &ProcessExitError{Code: 7}
	if !errors.Is(exit, ErrGuestAbort) {
		t.Error("ProcessExitError should unwrap to ErrGuestAbort")
	}
}
