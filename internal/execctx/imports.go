package execctx

import (
	"context"
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v3"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/massalabs/sc-runtime/internal/abi"
	"github.com/massalabs/sc-runtime/internal/engine"
	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

// wasmValueType maps a raw WASM value-type byte to a wazero api.ValueType.
func wasmValueType(b byte) (api.ValueType, error) {
	switch b {
	case 0x7f:
		return api.ValueTypeI32, nil
	case 0x7e:
		return api.ValueTypeI64, nil
	case 0x7d:
		return api.ValueTypeF32, nil
	case 0x7c:
		return api.ValueTypeF64, nil
	default:
		return 0, fmt.Errorf("execctx: unsupported value type 0x%x", b)
	}
}

func wasmtimeValType(b byte) (*wasmtime.ValType, error) {
	switch b {
	case 0x7f:
		return wasmtime.NewValType(wasmtime.KindI32), nil
	case 0x7e:
		return wasmtime.NewValType(wasmtime.KindI64), nil
	case 0x7d:
		return wasmtime.NewValType(wasmtime.KindF32), nil
	case 0x7c:
		return wasmtime.NewValType(wasmtime.KindF64), nil
	default:
		return nil, fmt.Errorf("execctx: unsupported value type 0x%x", b)
	}
}

// funcImportBinding pairs one func import with its resolved signature.
type funcImportBinding struct {
	desc wasmbin.ImportDesc
	sig  wasmbin.FuncType
}

func collectFuncImports(parsed *wasmbin.Module) ([]funcImportBinding, error) {
	var out []funcImportBinding
	for _, imp := range parsed.FuncImports {
		if imp.Kind != 0 {
			return nil, fmt.Errorf("execctx: non-function import %q.%q is not supported by the host interface", imp.Module, imp.Field)
		}
		if int(imp.TypeIndex) >= len(parsed.Types) {
			return nil, fmt.Errorf("execctx: import %q.%q references out-of-range type %d", imp.Module, imp.Field, imp.TypeIndex)
		}
		out = append(out, funcImportBinding{desc: imp, sig: parsed.Types[imp.TypeIndex]})
	}
	return out, nil
}

// dispatchImport calls the registered ABI handler (legacy or modern,
// selected by dialect) for one import, converting between the raw i32/i64
// stack values wazero/wasmtime hand us and the handler's own argument
// convention.
func dispatchImport(env *abi.Env, dialect engine.Dialect, reg *abi.Registry, field string, args []uint64) ([]uint64, error) {
	switch dialect {
	case engine.DialectLegacy:
		h, ok := reg.Legacy(field)
		if !ok {
			return nil, fmt.Errorf("%w: unknown legacy ABI %q", rterr.ErrABI, field)
		}
		return h(env, args)
	case engine.DialectModern:
		h, ok := reg.Modern(field)
		if !ok {
			return nil, fmt.Errorf("%w: unknown modern ABI %q", rterr.ErrABI, field)
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: modern ABI %q expects exactly one offset argument, got %d", rterr.ErrABI, field, len(args))
		}
		offset, err := h(env, uint32(args[0]))
		if err != nil {
			return nil, err
		}
		return []uint64{uint64(offset)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown dialect %d", rterr.ErrCompile, byte(dialect))
	}
}

// buildWazeroImports instantiates one host module per distinct import
// namespace so the main module's imports resolve against them.
func buildWazeroImports(ctx context.Context, rt wazero.Runtime, dialect engine.Dialect, reg *abi.Registry, env *abi.Env, bindings []funcImportBinding) error {
	byModule := map[string][]funcImportBinding{}
	var order []string
	for _, b := range bindings {
		if _, seen := byModule[b.desc.Module]; !seen {
			order = append(order, b.desc.Module)
		}
		byModule[b.desc.Module] = append(byModule[b.desc.Module], b)
	}
	for _, moduleName := range order {
		builder := rt.NewHostModuleBuilder(moduleName)
		for _, b := range byModule[moduleName] {
			b := b
			params := make([]api.ValueType, len(b.sig.Params))
			for i, p := range b.sig.Params {
				vt, err := wasmValueType(p)
				if err != nil {
					return err
				}
				params[i] = vt
			}
			results := make([]api.ValueType, len(b.sig.Results))
			for i, r := range b.sig.Results {
				vt, err := wasmValueType(r)
				if err != nil {
					return err
				}
				results[i] = vt
			}
			fn := api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				out, err := dispatchImport(env, dialect, reg, b.desc.Field, append([]uint64(nil), stack[:len(params)]...))
				if err != nil {
					panic(err)
				}
				copy(stack, out)
			})
			builder = builder.NewFunctionBuilder().
				WithGoModuleFunction(fn, params, results).
				Export(b.desc.Field)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return fmt.Errorf("execctx: instantiating host module %q: %w", moduleName, err)
		}
	}
	return nil
}

// buildWasmtimeLinker defines every func import against a Linker, which
// resolves imports by (module,name) regardless of declaration order.
func buildWasmtimeLinker(eng *wasmtime.Engine, dialect engine.Dialect, reg *abi.Registry, env *abi.Env, bindings []funcImportBinding) (*wasmtime.Linker, error) {
	linker := wasmtime.NewLinker(eng)
	for _, b := range bindings {
		b := b
		params := make([]*wasmtime.ValType, len(b.sig.Params))
		for i, p := range b.sig.Params {
			vt, err := wasmtimeValType(p)
			if err != nil {
				return nil, err
			}
			params[i] = vt
		}
		results := make([]*wasmtime.ValType, len(b.sig.Results))
		for i, r := range b.sig.Results {
			vt, err := wasmtimeValType(r)
			if err != nil {
				return nil, err
			}
			results[i] = vt
		}
		ty := wasmtime.NewFuncType(params, results)
		err := linker.FuncNew(b.desc.Module, b.desc.Field, ty, func(caller *wasmtime.Caller, wargs []wasmtime.Val) ([]wasmtime.Val, *wasmtime.Trap) {
			args := make([]uint64, len(wargs))
			for i, v := range wargs {
				args[i] = valToUint64(v)
			}
			out, err := dispatchImport(env, dialect, reg, b.desc.Field, args)
			if err != nil {
				return nil, wasmtime.NewTrap(err.Error())
			}
			results := make([]wasmtime.Val, len(out))
			for i, v := range out {
				if i < len(b.sig.Results) && b.sig.Results[i] == 0x7e {
					results[i] = wasmtime.ValI64(int64(v))
				} else {
					results[i] = wasmtime.ValI32(int32(uint32(v)))
				}
			}
			return results, nil
		})
		if err != nil {
			return nil, fmt.Errorf("execctx: defining import %q.%q: %w", b.desc.Module, b.desc.Field, err)
		}
	}
	return linker, nil
}

func valToUint64(v wasmtime.Val) uint64 {
	switch v.Kind() {
	case wasmtime.KindI64:
		return uint64(v.I64())
	default:
		return uint64(uint32(v.I32()))
	}
}
