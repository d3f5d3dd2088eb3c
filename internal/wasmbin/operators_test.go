package wasmbin

import "testing"

func TestWalkOperatorsSimpleBody(t *testing.T) {
	// No locals; i32.const 1; i32.const 2; i32.add; end.
	var body []byte
	body = append(body, 0x00)             // 0 local groups
	body = append(body, 0x41, 0x01)       // i32.const 1
	body = append(body, 0x41, 0x02)       // i32.const 2
	body = append(body, 0x6a)             // i32.add
	body = append(body, 0x0b)             // end

	instrs, err := WalkOperators(body)
	if err != nil {
		t.Fatalf("WalkOperators: %v", err)
	}
	if len(instrs) != 4 {
		t.Fatalf("got %d instructions, want 4", len(instrs))
	}
	if instrs[0].Opcode != 0x41 || instrs[0].Length != 2 {
		t.Errorf("instr[0] = %+v, want i32.const with length 2", instrs[0])
	}
	if instrs[2].Opcode != 0x6a || instrs[2].Boundary {
		t.Errorf("instr[2] (i32.add) should not be a block boundary: %+v", instrs[2])
	}
	if !instrs[3].Boundary {
		t.Errorf("end instruction should be a block boundary: %+v", instrs[3])
	}
}

func TestWalkOperatorsLocalsDeclarations(t *testing.T) {
	// 2 local groups: 1xi32, 2xi64; then end.
	body := []byte{0x02, 0x01, 0x7f, 0x02, 0x7e, 0x0b}
	instrs, err := WalkOperators(body)
	if err != nil {
		t.Fatalf("WalkOperators: %v", err)
	}
	if len(instrs) != 1 || instrs[0].Opcode != 0x0b {
		t.Fatalf("expected a single end instruction after skipping locals, got %+v", instrs)
	}
}

func TestWalkOperatorsBulkMemory(t *testing.T) {
	// memory.fill (0xfc 11 memidx) then end.
	body := []byte{0x00, 0xfc, 0x0b, 0x00, 0x0b}
	instrs, err := WalkOperators(body)
	if err != nil {
		t.Fatalf("WalkOperators: %v", err)
	}
	if len(instrs) != 2 {
		t.Fatalf("got %d instructions, want 2", len(instrs))
	}
	if instrs[0].Opcode != 0xfc {
		t.Errorf("instr[0].Opcode = 0x%x, want 0xfc", instrs[0].Opcode)
	}
}

func TestWalkOperatorsRejectsUnsupportedOpcode(t *testing.T) {
	// 0xfe is not assigned in the MVP+bulk-memory feature gate.
	body := []byte{0x00, 0xfe}
	if _, err := WalkOperators(body); err == nil {
		t.Error("expected error for unsupported opcode")
	}
}

func TestWalkOperatorsBrTable(t *testing.T) {
	// br_table with 2 targets + default, then end.
	body := []byte{0x00, 0x0e, 0x02, 0x00, 0x01, 0x02, 0x0b}
	instrs, err := WalkOperators(body)
	if err != nil {
		t.Fatalf("WalkOperators: %v", err)
	}
	if len(instrs) != 2 {
		t.Fatalf("got %d instructions, want 2", len(instrs))
	}
	if !instrs[0].Boundary {
		t.Error("br_table should be a block boundary")
	}
}
