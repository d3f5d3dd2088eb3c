package wasmbin

import "testing"

// buildModule assembles a minimal valid WASM binary:
//
//	type 0: (i32, i32) -> i32   (an imported "env.add" function)
//	import: env.add : type 0
//	function 1: type 0 (defined, trivial body; index 0 is the import)
//	export: "run" -> function 1
func buildModule(t *testing.T) []byte {
	t.Helper()
	var b []byte
	b = append(b, magic...)
	b = append(b, version...)

	// Type section: one type, (i32 i32) -> i32.
	typeSection := []byte{
		0x01,                   // count
		0x60,                   // func form
		0x02, 0x7f, 0x7f,       // 2 params: i32 i32
		0x01, 0x7f,             // 1 result: i32
	}
	b = appendSection(b, SectionType, typeSection)

	// Import section: env.add : type 0.
	importSection := []byte{0x01} // count
	importSection = appendName(importSection, "env")
	importSection = appendName(importSection, "add")
	importSection = append(importSection, 0x00, 0x00) // kind=func, type index 0

	b = appendSection(b, SectionImport, importSection)

	// Function section: one locally defined function using type 0.
	b = appendSection(b, SectionFunction, []byte{0x01, 0x00})

	// Export section: "run" -> func index 1 (index 0 is the import).
	exportSection := []byte{0x01}
	exportSection = appendName(exportSection, "run")
	exportSection = append(exportSection, 0x00, 0x01) // kind=func, index 1
	b = appendSection(b, SectionExport, exportSection)

	// Code section: one body, just "end".
	body := []byte{0x00, 0x0b} // 0 locals groups, end
	codeSection := []byte{0x01, byte(len(body))}
	codeSection = append(codeSection, body...)
	b = appendSection(b, SectionCode, codeSection)

	return b
}

func appendSection(b []byte, id SectionID, payload []byte) []byte {
	b = append(b, byte(id))
	b = appendVarU32(b, uint32(len(payload)))
	return append(b, payload...)
}

func appendVarU32(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
		} else {
			b = append(b, c)
			return b
		}
	}
}

func appendName(b []byte, s string) []byte {
	b = appendVarU32(b, uint32(len(s)))
	return append(b, s...)
}

func TestParseCountsAndTypes(t *testing.T) {
	m, err := Parse(buildModule(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.TypeCount != 1 {
		t.Errorf("TypeCount = %d, want 1", m.TypeCount)
	}
	if len(m.Types) != 1 {
		t.Fatalf("len(Types) = %d, want 1", len(m.Types))
	}
	gotParams := m.Types[0].Params
	if len(gotParams) != 2 || gotParams[0] != 0x7f || gotParams[1] != 0x7f {
		t.Errorf("Types[0].Params = %v, want [0x7f 0x7f]", gotParams)
	}
	gotResults := m.Types[0].Results
	if len(gotResults) != 1 || gotResults[0] != 0x7f {
		t.Errorf("Types[0].Results = %v, want [0x7f]", gotResults)
	}

	if m.ImportCount != 1 {
		t.Errorf("ImportCount = %d, want 1", m.ImportCount)
	}
	if len(m.FuncImports) != 1 {
		t.Fatalf("len(FuncImports) = %d, want 1", len(m.FuncImports))
	}
	imp := m.FuncImports[0]
	if imp.Module != "env" || imp.Field != "add" || imp.Kind != 0 || imp.TypeIndex != 0 {
		t.Errorf("FuncImports[0] = %+v, unexpected", imp)
	}

	if m.FunctionCount != 1 {
		t.Errorf("FunctionCount = %d, want 1", m.FunctionCount)
	}
	if m.ExportCount != 1 {
		t.Errorf("ExportCount = %d, want 1", m.ExportCount)
	}
	if len(m.Functions) != 1 {
		t.Fatalf("len(Functions) = %d, want 1", len(m.Functions))
	}
}

func TestParseRejectsBadHeader(t *testing.T) {
	if _, err := Parse([]byte{0x00, 0x01, 0x02, 0x03}); err == nil {
		t.Error("expected error for truncated/bad header")
	}
}

func TestParseRejectsTruncatedSection(t *testing.T) {
	full := buildModule(t)
	if _, err := Parse(full[:len(full)-3]); err == nil {
		t.Error("expected error for truncated section")
	}
}

func TestAppendVarI64Roundtrip(t *testing.T) {
	cases := []int64{0, 1, -1, 127, -128, 300, -300, 1 << 40, -(1 << 40)}
	for _, v := range cases {
		buf := AppendVarI64(nil, v)
		got, err := readVarI64(&reader{buf: buf})
		if err != nil {
			t.Fatalf("readVarI64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("roundtrip(%d) = %d", v, got)
		}
	}
}

func TestSectionsWalksTopLevelStructure(t *testing.T) {
	mod := buildModule(t)
	secs, err := Sections(mod)
	if err != nil {
		t.Fatalf("Sections: %v", err)
	}
	wantIDs := []SectionID{SectionType, SectionImport, SectionFunction, SectionExport, SectionCode}
	if len(secs) != len(wantIDs) {
		t.Fatalf("got %d sections, want %d", len(secs), len(wantIDs))
	}
	for i, want := range wantIDs {
		if secs[i].ID != want {
			t.Errorf("section %d: id = %d, want %d", i, secs[i].ID, want)
		}
		if secs[i].BodyEnd < secs[i].BodyStart {
			t.Errorf("section %d: BodyEnd < BodyStart", i)
		}
	}
}

func TestHeaderMatchesParsePreamble(t *testing.T) {
	h := Header()
	if len(h) != 8 {
		t.Fatalf("Header() length = %d, want 8", len(h))
	}
	if _, err := Parse(append(h, buildModule(t)[8:]...)); err != nil {
		t.Errorf("module built from Header(): %v", err)
	}
}

func TestLEBUint32Roundtrip(t *testing.T) {
	var b []byte
	b = appendVarU32(b, 300)
	v, n, err := LEBUint32(b)
	if err != nil {
		t.Fatalf("LEBUint32: %v", err)
	}
	if v != 300 {
		t.Errorf("value = %d, want 300", v)
	}
	if n != len(b) {
		t.Errorf("consumed %d bytes, want %d", n, len(b))
	}
}
