package abi

import (
	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/trace"
)

// SubCaller performs a nested module execution on behalf of a call/
// local_call/local_execution ABI. It is implemented by the execution
// context rather than by abi itself, since driving a nested run requires
// the instance lifecycle state machine and the recursion-depth guard that
// live there; declaring the interface here instead of importing that
// package keeps abi a leaf relative to it.
type SubCaller interface {
	// Call compiles and runs function on the module deployed at address,
	// transferring coins first, and returns its serialized result.
	Call(env *Env, address, function string, params []byte, coins uint64) ([]byte, error)

	// LocalCall runs function against the bytecode currently executing
	// (same address, same ledger context, no coin transfer).
	LocalCall(env *Env, function string, params []byte) ([]byte, error)

	// LocalExecution compiles and runs function against an arbitrary
	// bytecode blob under the current address's context, without
	// persisting it as the address's bytecode.
	LocalExecution(env *Env, bytecode []byte, function string, params []byte) ([]byte, error)
}

func registerLegacySubCalls(r *Registry) {
	r.addLegacy("assembly_script_call", func(env *Env, args []uint64) ([]uint64, error) {
		address, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_call", err)
		}
		function, err := env.Legacy.ReadString(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_call", err)
		}
		params, err := env.Legacy.ReadBuffer(ptr32(args[2]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_call", err)
		}
		coins := args[3]
		var result []byte
		_, err = env.dispatch("assembly_script_call",
			[]trace.Param{{Name: "address", Value: trace.String(address)}, {Name: "function", Value: trace.String(function)}},
			func() (trace.Value, error) {
				if env.Sub == nil {
					return trace.Value{}, rterr.ErrHostInterface
				}
				result, err = env.Sub.Call(env, address, function, params, coins)
				return trace.Bytes(result), err
			})
		if err != nil {
			return nil, err
		}
		ptr, err := env.Legacy.WriteBuffer(result)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_call", err)
		}
		return oneResult(ptr), nil
	})

	r.addLegacy("assembly_script_local_call", func(env *Env, args []uint64) ([]uint64, error) {
		function, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_local_call", err)
		}
		params, err := env.Legacy.ReadBuffer(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_local_call", err)
		}
		var result []byte
		_, err = env.dispatch("assembly_script_local_call", nil, func() (trace.Value, error) {
			if env.Sub == nil {
				return trace.Value{}, rterr.ErrHostInterface
			}
			result, err = env.Sub.LocalCall(env, function, params)
			return trace.Bytes(result), err
		})
		if err != nil {
			return nil, err
		}
		ptr, err := env.Legacy.WriteBuffer(result)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_local_call", err)
		}
		return oneResult(ptr), nil
	})

	r.addLegacy("assembly_script_local_execution", func(env *Env, args []uint64) ([]uint64, error) {
		bytecode, err := env.Legacy.ReadBuffer(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_local_execution", err)
		}
		function, err := env.Legacy.ReadString(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_local_execution", err)
		}
		params, err := env.Legacy.ReadBuffer(ptr32(args[2]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_local_execution", err)
		}
		var result []byte
		_, err = env.dispatch("assembly_script_local_execution", nil, func() (trace.Value, error) {
			if env.Sub == nil {
				return trace.Value{}, rterr.ErrHostInterface
			}
			result, err = env.Sub.LocalExecution(env, bytecode, function, params)
			return trace.Bytes(result), err
		})
		if err != nil {
			return nil, err
		}
		ptr, err := env.Legacy.WriteBuffer(result)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_local_execution", err)
		}
		return oneResult(ptr), nil
	})
}
