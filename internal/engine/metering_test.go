package engine

import (
	"testing"

	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

// buildMeteringFixture assembles a minimal valid module with:
//
//	type 0: (i32, i32) -> i32   (an imported "env.add" function)
//	import: env.add : type 0
//	function 0: type 0, body calls the import then drops one operand
//	global section: empty (0 globals), so appended metering globals land at index 0,1
//	export: "run" -> function 1
func buildMeteringFixture(t *testing.T) []byte {
	t.Helper()
	var b []byte
	b = append(b, wasmbin.Header()...)

	typeSection := []byte{
		0x01,             // count
		0x60,             // func form
		0x02, 0x7f, 0x7f, // 2 params: i32 i32
		0x01, 0x7f, // 1 result: i32
	}
	b = wasmbin.AppendSection(b, wasmbin.SectionType, typeSection)

	importSection := wasmbin.AppendVarU32([]byte{}, 1)
	importSection = wasmbin.AppendName(importSection, "env")
	importSection = wasmbin.AppendName(importSection, "add")
	importSection = append(importSection, 0x00, 0x00)
	b = wasmbin.AppendSection(b, wasmbin.SectionImport, importSection)

	b = wasmbin.AppendSection(b, wasmbin.SectionFunction, []byte{0x01, 0x00})

	// Empty global section: count 0.
	b = wasmbin.AppendSection(b, wasmbin.SectionGlobal, []byte{0x00})

	exportSection := wasmbin.AppendVarU32([]byte{}, 1)
	exportSection = wasmbin.AppendName(exportSection, "run")
	exportSection = append(exportSection, 0x00, 0x01) // func index 1 (0 is the import)
	b = wasmbin.AppendSection(b, wasmbin.SectionExport, exportSection)

	// Body: local.get 0 ; local.get 1 ; call 0 ; drop ; end
	body := []byte{
		0x00,       // 0 locals groups
		0x20, 0x00, // local.get 0
		0x20, 0x01, // local.get 1
		0x10, 0x00, // call 0 (the import)
		0x1a, // drop
		0x0b, // end
	}
	codeSection := wasmbin.AppendVarU32([]byte{}, 1)
	codeSection = wasmbin.AppendVarU32(codeSection, uint32(len(body)))
	codeSection = append(codeSection, body...)
	b = wasmbin.AppendSection(b, wasmbin.SectionCode, codeSection)

	return b
}

func TestInstrumentMeteringAppendsGlobalsAndExports(t *testing.T) {
	orig := buildMeteringFixture(t)
	instrumented, err := InstrumentMetering(orig, 10)
	if err != nil {
		t.Fatalf("InstrumentMetering: %v", err)
	}

	mod, err := wasmbin.Parse(instrumented)
	if err != nil {
		t.Fatalf("re-parsing instrumented module: %v", err)
	}
	if mod.ExportCount != 3 {
		t.Errorf("ExportCount = %d, want 3 (run + 2 metering globals)", mod.ExportCount)
	}

	secs, err := wasmbin.Sections(instrumented)
	if err != nil {
		t.Fatalf("Sections: %v", err)
	}
	var sawGlobal, sawCode bool
	for _, s := range secs {
		switch s.ID {
		case wasmbin.SectionGlobal:
			sawGlobal = true
			if s.BodyEnd <= s.BodyStart {
				t.Error("global section body unexpectedly empty after instrumentation")
			}
		case wasmbin.SectionCode:
			sawCode = true
			if s.BodyEnd <= s.BodyStart {
				t.Error("code section body unexpectedly empty after instrumentation")
			}
		}
	}
	if !sawGlobal || !sawCode {
		t.Error("expected both global and code sections to survive instrumentation")
	}
}

func TestInstrumentMeteringPreservesFunctionCount(t *testing.T) {
	orig := buildMeteringFixture(t)
	instrumented, err := InstrumentMetering(orig, 5)
	if err != nil {
		t.Fatalf("InstrumentMetering: %v", err)
	}
	origMod, _ := wasmbin.Parse(orig)
	newMod, err := wasmbin.Parse(instrumented)
	if err != nil {
		t.Fatalf("re-parsing instrumented module: %v", err)
	}
	if newMod.FunctionCount != origMod.FunctionCount {
		t.Errorf("FunctionCount changed: %d -> %d", origMod.FunctionCount, newMod.FunctionCount)
	}
	if newMod.ImportCount != origMod.ImportCount {
		t.Errorf("ImportCount changed: %d -> %d", origMod.ImportCount, newMod.ImportCount)
	}
}

func TestInstrumentMeteringGrowsCodeSize(t *testing.T) {
	orig := buildMeteringFixture(t)
	instrumented, err := InstrumentMetering(orig, 1)
	if err != nil {
		t.Fatalf("InstrumentMetering: %v", err)
	}
	if len(instrumented) <= len(orig) {
		t.Errorf("instrumented module should grow (debit preambles), got %d <= %d", len(instrumented), len(orig))
	}
}
