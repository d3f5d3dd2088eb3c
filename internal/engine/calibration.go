package engine

import (
	"fmt"

	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

// InstrumentCalibration replaces per-operator metering with a per-import
// invocation counter: one exported
// i64 global per function import, incremented every time guest code calls
// that import. Operator counting is a separate concern and is not touched
// by this pass — calibration exists to measure how often each ABI is
// actually invoked, not how many WASM operators run.
func InstrumentCalibration(moduleBytes []byte) ([]byte, error) {
	mod, err := wasmbin.Parse(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("calibration: parse: %w", err)
	}
	secs, err := wasmbin.Sections(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("calibration: sections: %w", err)
	}

	numFuncImports := 0
	for _, imp := range mod.FuncImports {
		if imp.Kind == 0 {
			numFuncImports++
		}
	}
	if numFuncImports == 0 {
		// Nothing to count; module has no host imports to calibrate.
		return moduleBytes, nil
	}

	// New globals are appended right after the existing ones, one per
	// imported function, in import order. Imported globals precede defined
	// ones in the global index space.
	importedGlobals := 0
	for _, imp := range mod.FuncImports {
		if imp.Kind == 3 {
			importedGlobals++
		}
	}
	firstNewGlobal := uint32(importedGlobals + mod.GlobalCount)

	out := wasmbin.Header()
	for _, s := range secs {
		switch s.ID {
		case wasmbin.SectionGlobal:
			out = wasmbin.AppendSection(out, wasmbin.SectionGlobal, rebuildGlobalSectionForCalibration(moduleBytes[s.BodyStart:s.BodyEnd], numFuncImports))
		case wasmbin.SectionExport:
			out = wasmbin.AppendSection(out, wasmbin.SectionExport, rebuildExportSectionForCalibration(moduleBytes[s.BodyStart:s.BodyEnd], firstNewGlobal, numFuncImports))
		case wasmbin.SectionCode:
			body, err := rebuildCodeSectionForCalibration(moduleBytes[s.BodyStart:s.BodyEnd], numFuncImports, firstNewGlobal)
			if err != nil {
				return nil, fmt.Errorf("calibration: code section: %w", err)
			}
			out = wasmbin.AppendSection(out, wasmbin.SectionCode, body)
		default:
			out = append(out, moduleBytes[s.Start:s.End]...)
		}
	}
	return out, nil
}

func rebuildGlobalSectionForCalibration(body []byte, numFuncImports int) []byte {
	r := newCountingReader(body)
	n := r.mustVarU32()
	out := wasmbin.AppendVarU32(nil, n+uint32(numFuncImports))
	out = append(out, body[r.pos:]...)
	for i := 0; i < numFuncImports; i++ {
		// i64, mutable, init i64.const 0
		out = append(out, 0x7e, 0x01, 0x42, 0x00, 0x0b)
	}
	return out
}

func rebuildExportSectionForCalibration(body []byte, firstNewGlobal uint32, numFuncImports int) []byte {
	r := newCountingReader(body)
	n := r.mustVarU32()
	out := wasmbin.AppendVarU32(nil, n+uint32(numFuncImports))
	out = append(out, body[r.pos:]...)
	for i := 0; i < numFuncImports; i++ {
		out = wasmbin.AppendName(out, fmt.Sprintf("massa_calib_count_%d", i))
		out = append(out, 0x03) // export kind: global
		out = wasmbin.AppendVarU32(out, firstNewGlobal+uint32(i))
	}
	return out
}

func rebuildCodeSectionForCalibration(body []byte, numFuncImports int, firstNewGlobal uint32) ([]byte, error) {
	r := newCountingReader(body)
	count := r.mustVarU32()
	out := wasmbin.AppendVarU32(nil, count)

	for i := uint32(0); i < count; i++ {
		size, n, err := wasmbin.LEBUint32(r.buf[r.pos:])
		if err != nil {
			return nil, err
		}
		r.pos += n
		fnBody := r.buf[r.pos : r.pos+int(size)]
		r.pos += int(size)

		instrumented, err := instrumentCallsForCalibration(fnBody, numFuncImports, firstNewGlobal)
		if err != nil {
			return nil, err
		}
		out = wasmbin.AppendVarU32(out, uint32(len(instrumented)))
		out = append(out, instrumented...)
	}
	return out, nil
}

func instrumentCallsForCalibration(fnBody []byte, numFuncImports int, firstNewGlobal uint32) ([]byte, error) {
	localsLen, err := localsHeaderLength(fnBody)
	if err != nil {
		return nil, err
	}
	instrs, err := wasmbin.WalkOperators(fnBody)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(fnBody)+len(instrs)*2)
	out = append(out, fnBody[:localsLen]...)
	for _, ins := range instrs {
		if ins.Opcode == 0x10 { // call
			targetIdx, _, err := wasmbin.LEBUint32(fnBody[ins.Offset+1 : ins.Offset+ins.Length])
			if err == nil && int(targetIdx) < numFuncImports {
				out = append(out, incrementCounterGlobal(firstNewGlobal+targetIdx)...)
			}
		}
		out = append(out, fnBody[ins.Offset:ins.Offset+ins.Length]...)
	}
	return out, nil
}

// incrementCounterGlobal emits: global.get g ; i64.const 1 ; i64.add ; global.set g
func incrementCounterGlobal(g uint32) []byte {
	var b []byte
	b = append(b, 0x23)
	b = wasmbin.AppendVarU32(b, g)
	b = append(b, 0x42, 0x01) // i64.const 1
	b = append(b, 0x7c)       // i64.add
	b = append(b, 0x24)
	b = wasmbin.AppendVarU32(b, g)
	return b
}
