package engine

import (
	"testing"

	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

func TestInstrumentCalibrationAddsCounterPerImport(t *testing.T) {
	orig := buildMeteringFixture(t)
	instrumented, err := InstrumentCalibration(orig)
	if err != nil {
		t.Fatalf("InstrumentCalibration: %v", err)
	}

	mod, err := wasmbin.Parse(instrumented)
	if err != nil {
		t.Fatalf("re-parsing instrumented module: %v", err)
	}
	// 1 original export ("run") + 1 calibration counter (one func import).
	if mod.ExportCount != 2 {
		t.Errorf("ExportCount = %d, want 2", mod.ExportCount)
	}
	if len(instrumented) <= len(orig) {
		t.Error("calibrated module should grow (counter global + increment code)")
	}
}

func TestInstrumentCalibrationNoOpWithoutFuncImports(t *testing.T) {
	var b []byte
	b = append(b, wasmbin.Header()...)
	typeSection := []byte{0x01, 0x60, 0x00, 0x00} // () -> ()
	b = wasmbin.AppendSection(b, wasmbin.SectionType, typeSection)
	b = wasmbin.AppendSection(b, wasmbin.SectionFunction, []byte{0x01, 0x00})
	exportSection := wasmbin.AppendVarU32([]byte{}, 1)
	exportSection = wasmbin.AppendName(exportSection, "run")
	exportSection = append(exportSection, 0x00, 0x00)
	b = wasmbin.AppendSection(b, wasmbin.SectionExport, exportSection)
	body := []byte{0x00, 0x0b}
	codeSection := wasmbin.AppendVarU32([]byte{}, 1)
	codeSection = wasmbin.AppendVarU32(codeSection, uint32(len(body)))
	codeSection = append(codeSection, body...)
	b = wasmbin.AppendSection(b, wasmbin.SectionCode, codeSection)

	out, err := InstrumentCalibration(b)
	if err != nil {
		t.Fatalf("InstrumentCalibration: %v", err)
	}
	if string(out) != string(b) {
		t.Error("expected module with no func imports to pass through unchanged")
	}
}

func TestInstrumentCalibrationPreservesFunctionCount(t *testing.T) {
	orig := buildMeteringFixture(t)
	instrumented, err := InstrumentCalibration(orig)
	if err != nil {
		t.Fatalf("InstrumentCalibration: %v", err)
	}
	origMod, _ := wasmbin.Parse(orig)
	newMod, err := wasmbin.Parse(instrumented)
	if err != nil {
		t.Fatalf("re-parsing instrumented module: %v", err)
	}
	if newMod.FunctionCount != origMod.FunctionCount {
		t.Errorf("FunctionCount changed: %d -> %d", origMod.FunctionCount, newMod.FunctionCount)
	}
}
