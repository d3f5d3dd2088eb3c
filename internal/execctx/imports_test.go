package execctx

import (
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/massalabs/sc-runtime/internal/abi"
	"github.com/massalabs/sc-runtime/internal/engine"
	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

func TestWasmValueTypeMapping(t *testing.T) {
	cases := map[byte]api.ValueType{
		0x7f: api.ValueTypeI32,
		0x7e: api.ValueTypeI64,
		0x7d: api.ValueTypeF32,
		0x7c: api.ValueTypeF64,
	}
	for b, want := range cases {
		got, err := wasmValueType(b)
		if err != nil {
			t.Fatalf("wasmValueType(0x%x): %v", b, err)
		}
		if got != want {
			t.Errorf("wasmValueType(0x%x) = %v, want %v", b, got, want)
		}
	}
	if _, err := wasmValueType(0xff); err == nil {
		t.Error("expected error for unsupported value type byte")
	}
}

func TestWasmtimeValTypeMapping(t *testing.T) {
	for _, b := range []byte{0x7f, 0x7e, 0x7d, 0x7c} {
		if _, err := wasmtimeValType(b); err != nil {
			t.Errorf("wasmtimeValType(0x%x): %v", b, err)
		}
	}
	if _, err := wasmtimeValType(0x00); err == nil {
		t.Error("expected error for unsupported value type byte")
	}
}

func TestCollectFuncImports(t *testing.T) {
	parsed := &wasmbin.Module{
		Types: []wasmbin.FuncType{
			{Params: []byte{0x7f, 0x7f}, Results: []byte{0x7f}},
		},
		FuncImports: []wasmbin.ImportDesc{
			{Module: "env", Field: "add", Kind: 0, TypeIndex: 0},
		},
	}
	bindings, err := collectFuncImports(parsed)
	if err != nil {
		t.Fatalf("collectFuncImports: %v", err)
	}
	if len(bindings) != 1 {
		t.Fatalf("got %d bindings, want 1", len(bindings))
	}
	b := bindings[0]
	if b.desc.Field != "add" || len(b.sig.Params) != 2 || len(b.sig.Results) != 1 {
		t.Errorf("unexpected binding: %+v", b)
	}
}

func TestCollectFuncImportsRejectsNonFuncImport(t *testing.T) {
	parsed := &wasmbin.Module{
		FuncImports: []wasmbin.ImportDesc{{Module: "env", Field: "mem", Kind: 2}},
	}
	if _, err := collectFuncImports(parsed); err == nil {
		t.Error("expected error for non-function import")
	}
}

func TestCollectFuncImportsRejectsOutOfRangeType(t *testing.T) {
	parsed := &wasmbin.Module{
		FuncImports: []wasmbin.ImportDesc{{Module: "env", Field: "f", Kind: 0, TypeIndex: 5}},
	}
	if _, err := collectFuncImports(parsed); err == nil {
		t.Error("expected error for out-of-range type index")
	}
}

func TestDispatchImportLegacy(t *testing.T) {
	reg := abi.NewRegistry()
	env := &abi.Env{}
	out, err := dispatchImport(env, engine.DialectLegacy, reg, "unregistered_name", nil)
	if err == nil || out != nil {
		t.Error("expected error for an unregistered legacy ABI name")
	}
}

func TestDispatchImportModernRequiresOneArg(t *testing.T) {
	reg := abi.NewRegistry()
	env := &abi.Env{}
	if _, err := dispatchImport(env, engine.DialectModern, reg, "get_data", []uint64{1, 2}); err == nil {
		t.Error("expected error when modern ABI called with != 1 argument")
	}
}
