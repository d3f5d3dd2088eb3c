package execctx

import (
	"fmt"

	"github.com/massalabs/sc-runtime/internal/abi"
	"github.com/massalabs/sc-runtime/internal/engine"
	"github.com/massalabs/sc-runtime/internal/ffi"
	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

// subCaller implements abi.SubCaller by recursively driving execModule's
// instantiate/invoke pair against bytecode resolved through the host
// interface, threading the outer execution's remaining gas as the nested
// budget and writing the nested remaining gas back on return.
type subCaller struct {
	runner *Runner
}

func (s *subCaller) runNested(env *abi.Env, bytecode []byte, function string, params []byte) ([]byte, error) {
	if s.runner.MaxDepth > 0 {
		if err := env.Host.IncrementCallDepth(env.Ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", rterr.ErrDepth, err)
		}
		defer env.Host.DecrementCallDepth(env.Ctx)
	}

	dialect, moduleBytes, err := engine.ParseDialect(bytecode)
	if err != nil {
		return nil, err
	}
	parsed, err := wasmbin.Parse(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rterr.ErrCompile, err)
	}

	remainingGas := env.Gas.Remaining()
	hostCM, err := env.Host.GetModule(env.Ctx, bytecode, remainingGas)
	if err != nil {
		return nil, rterr.WrapHostInterface(err)
	}
	cm, ok := hostCM.(*engine.CompiledModule)
	if !ok {
		return nil, fmt.Errorf("%w: host interface returned a module of an unrecognized type", rterr.ErrHostInterface)
	}

	nestedEnv := &abi.Env{
		Ctx:         env.Ctx,
		Host:        env.Host,
		Cost:        env.Cost,
		AbiEnabled:  false,
		HostVersion: env.HostVersion,
		Trace:       env.Trace,
		Sub:         s,
	}

	inst, err := s.runner.instantiate(env.Ctx, cm, dialect, nestedEnv, parsed)
	if err != nil {
		return nil, err
	}
	defer inst.closeFn()
	nestedEnv.Gas = inst.gas

	if dialect == engine.DialectLegacy {
		nestedEnv.Legacy = ffi.NewLegacy(inst.memory, inst.exports)
	} else {
		nestedEnv.Modern = ffi.NewModern(inst.memory, inst.exports)
	}

	remainingAfterStart := inst.gas.Remaining()
	initCost := remainingGas - remainingAfterStart
	budgetAfterInit := remainingGas - initCost
	launchCost := env.Cost.LaunchCost()
	if budgetAfterInit < launchCost {
		return nil, rterr.ErrLaunchCostUnderflow
	}
	inst.gas.SetRemaining(budgetAfterInit - launchCost)
	nestedEnv.AbiEnabled = true

	data, err := s.runner.invokeExport(nestedEnv, dialect, inst, function, params, false)
	env.Gas.SetRemaining(inst.gas.Remaining())
	if err != nil {
		if inst.gas.Exhausted() {
			return nil, rterr.RuntimeGasExhaustedIn(function)
		}
		return nil, err
	}
	return data, nil
}

func (s *subCaller) Call(env *abi.Env, address, function string, params []byte, coins uint64) ([]byte, error) {
	bytecode, err := env.Host.InitCall(env.Ctx, address, coins)
	if err != nil {
		return nil, rterr.WrapHostInterface(err)
	}
	data, err := s.runNested(env, bytecode, function, params)
	if finishErr := env.Host.FinishCall(env.Ctx); finishErr != nil && err == nil {
		err = rterr.WrapHostInterface(finishErr)
	}
	return data, err
}

func (s *subCaller) LocalCall(env *abi.Env, function string, params []byte) ([]byte, error) {
	bytecode, err := env.Host.GetBytecode(env.Ctx)
	if err != nil {
		return nil, rterr.WrapHostInterface(err)
	}
	return s.runNested(env, bytecode, function, params)
}

func (s *subCaller) LocalExecution(env *abi.Env, bytecode []byte, function string, params []byte) ([]byte, error) {
	return s.runNested(env, bytecode, function, params)
}
