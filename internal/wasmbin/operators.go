package wasmbin

import "fmt"

// Instr is one decoded operator within a function body, as an offset/length
// into the body's byte slice. Boundary reports whether this operator ends a
// basic block for metering purposes: block/loop/if/else/end,
// branches, calls, and unreachable all end a block, since control may not
// fall straight through to the next operator deterministically without
// re-evaluating the gas budget.
type Instr struct {
	Offset   int
	Length   int
	Opcode   byte
	Boundary bool
}

var blockBoundaryOpcodes = map[byte]bool{
	0x00: true, // unreachable
	0x02: true, // block
	0x03: true, // loop
	0x04: true, // if
	0x05: true, // else
	0x0b: true, // end
	0x0c: true, // br
	0x0d: true, // br_if
	0x0e: true, // br_table
	0x0f: true, // return
	0x10: true, // call
	0x11: true, // call_indirect
}

// WalkOperators decodes the flat operator stream of one function body
// (locals declarations followed by the expression, as stored in the code
// section) and returns each operator's offset/length within body, along
// with whether it ends a basic block. It understands the WASM 1.0 MVP
// instruction set plus the bulk-memory proposal (0xfc-prefixed ops), which
// is the only optional feature this runtime enables.
func WalkOperators(body []byte) ([]Instr, error) {
	r := &reader{buf: body, pos: 0}

	// Skip local declarations: count, then (count:varint, valtype:byte) pairs.
	nGroups, err := r.readVarU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nGroups; i++ {
		if _, err := r.readVarU32(); err != nil {
			return nil, err
		}
		if _, err := r.readByte(); err != nil {
			return nil, err
		}
	}

	var out []Instr
	for r.pos < len(body) {
		start := r.pos
		op, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if err := skipImmediate(r, op); err != nil {
			return nil, err
		}
		out = append(out, Instr{
			Offset:   start,
			Length:   r.pos - start,
			Opcode:   op,
			Boundary: blockBoundaryOpcodes[op],
		})
	}
	return out, nil
}

// skipImmediate advances r past the immediate operand(s) of op, if any.
// Coverage: WASM 1.0 MVP plus bulk-memory (0xfc prefix memory.copy/fill and
// table.copy/init/grow/size/fill via 0xfc). Every other optional feature
// (SIMD, threads, reference-types beyond MVP, tail calls, multi-memory,
// memory64, exceptions) is disabled by the fixed feature gate
// and is never expected to appear in an accepted module.
func skipImmediate(r *reader, op byte) error {
	switch op {
	// No immediate.
	case 0x00, 0x01, 0x0b, 0x0f, 0x05, 0x1a, 0x1b,
		0x45, 0x46, 0x47, 0x48, 0x49, 0x4a, 0x4b, 0x4c, 0x4d, 0x4e, 0x4f,
		0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59, 0x5a,
		0x5b, 0x5c, 0x5d, 0x5e, 0x5f, 0x60, 0x61, 0x62, 0x63, 0x64, 0x65,
		0x66, 0x67, 0x68, 0x69, 0x6a, 0x6b, 0x6c, 0x6d, 0x6e, 0x6f, 0x70,
		0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x7b,
		0x7c, 0x7d, 0x7e, 0x7f, 0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86,
		0x87, 0x88, 0x89, 0x8a, 0x8b, 0x8c, 0x8d, 0x8e, 0x8f, 0x90, 0x91,
		0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9a, 0x9b, 0x9c,
		0x9d, 0x9e, 0x9f, 0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7,
		0xa8, 0xa9, 0xaa, 0xab, 0xac, 0xad, 0xae, 0xaf, 0xb0, 0xb1, 0xb2,
		0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xbb, 0xbc, 0xbd,
		0xbe, 0xbf:
		return nil

	// block, loop, if: one blocktype byte (MVP: valtype or 0x40 empty).
	case 0x02, 0x03, 0x04:
		_, err := r.readByte()
		return err

	// br, br_if: one labelidx varint.
	case 0x0c, 0x0d:
		_, err := r.readVarU32()
		return err

	// br_table: vec(labelidx) + labelidx.
	case 0x0e:
		n, err := r.readVarU32()
		if err != nil {
			return err
		}
		for i := uint32(0); i <= n; i++ {
			if _, err := r.readVarU32(); err != nil {
				return err
			}
		}
		return nil

	// call: funcidx varint.
	case 0x10:
		_, err := r.readVarU32()
		return err

	// call_indirect: typeidx varint + tableidx varint.
	case 0x11:
		if _, err := r.readVarU32(); err != nil {
			return err
		}
		_, err := r.readVarU32()
		return err

	// local.get/set/tee, global.get/set: one index varint.
	case 0x20, 0x21, 0x22, 0x23, 0x24:
		_, err := r.readVarU32()
		return err

	// table.get/set: one tableidx varint.
	case 0x25, 0x26:
		_, err := r.readVarU32()
		return err

	// memory loads/stores: align varint + offset varint.
	case 0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f, 0x30, 0x31, 0x32,
		0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d, 0x3e:
		if _, err := r.readVarU32(); err != nil {
			return err
		}
		_, err := r.readVarU32()
		return err

	// memory.size, memory.grow: one reserved memidx byte (0x00).
	case 0x3f, 0x40:
		_, err := r.readByte()
		return err

	// i32.const: i32 LEB.
	case 0x41:
		_, err := r.readVarU32()
		return err

	// i64.const: i64 LEB.
	case 0x42:
		_, err := readVarI64(r)
		return err

	// f32.const: 4 raw bytes.
	case 0x43:
		return r.skip(4)

	// f64.const: 8 raw bytes.
	case 0x44:
		return r.skip(8)

	// ref.null: reftype byte.
	case 0xd0:
		_, err := r.readByte()
		return err

	// ref.is_null: no immediate.
	case 0xd1:
		return nil

	// ref.func: funcidx varint.
	case 0xd2:
		_, err := r.readVarU32()
		return err

	// 0xfc-prefixed: bulk memory / table ops, and saturating truncation.
	case 0xfc:
		sub, err := r.readVarU32()
		if err != nil {
			return err
		}
		switch sub {
		case 0, 1, 2, 3, 4, 5, 6, 7: // trunc_sat variants: no immediate
			return nil
		case 8: // memory.init: dataidx + memidx(0x00)
			if _, err := r.readVarU32(); err != nil {
				return err
			}
			_, err := r.readByte()
			return err
		case 9: // data.drop: dataidx
			_, err := r.readVarU32()
			return err
		case 10: // memory.copy: memidx + memidx
			if _, err := r.readByte(); err != nil {
				return err
			}
			_, err := r.readByte()
			return err
		case 11: // memory.fill: memidx
			_, err := r.readByte()
			return err
		case 12: // table.init: elemidx + tableidx
			if _, err := r.readVarU32(); err != nil {
				return err
			}
			_, err := r.readVarU32()
			return err
		case 13: // elem.drop: elemidx
			_, err := r.readVarU32()
			return err
		case 14: // table.copy: tableidx + tableidx
			if _, err := r.readVarU32(); err != nil {
				return err
			}
			_, err := r.readVarU32()
			return err
		case 15: // table.grow: tableidx
			_, err := r.readVarU32()
			return err
		case 16: // table.size: tableidx
			_, err := r.readVarU32()
			return err
		case 17: // table.fill: tableidx
			_, err := r.readVarU32()
			return err
		default:
			return fmt.Errorf("%w: unsupported 0xfc subopcode %d", ErrMalformed, sub)
		}

	default:
		return fmt.Errorf("%w: unsupported opcode 0x%x", ErrMalformed, op)
	}
}
