package engine

import (
	"fmt"

	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

// Exported global names the runtime reads/writes around each execution to
// set the effective gas budget and observe the remaining gas.
const (
	GlobalRemainingPoints = "massa_remaining_points"
	GlobalExhaustedPoints = "massa_exhausted_points"
)

// InstrumentMetering rewrites module bytes to debit operatorCost per
// operator, grouped per basic block (a maximal straight-line run of
// operators between control-flow boundaries — block/loop/if/else/end,
// branches, calls, return, unreachable). Two new mutable globals are
// appended and exported: a remaining-points i64 and an exhausted-points
// i32, matching the Rust runtime's own metering globals (env/mod.rs
// get_remaining_points/set_remaining_points). Because the new globals are
// appended after every existing global, no existing global.get/global.set
// index in the guest's own code needs to shift, so this pass touches only
// the global section, the export section, and function bodies — never
// function, type, or table indices.
//
// When calibrating is true, metering is replaced with a per-ABI-call
// counter instead; that variant is
// implemented in InstrumentCalibration.
func InstrumentMetering(moduleBytes []byte, operatorCost uint64) ([]byte, error) {
	mod, err := wasmbin.Parse(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("metering: parse: %w", err)
	}
	secs, err := wasmbin.Sections(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("metering: sections: %w", err)
	}

	// Imported globals precede defined ones in the global index space.
	importedGlobals := 0
	for _, imp := range mod.FuncImports {
		if imp.Kind == 3 {
			importedGlobals++
		}
	}
	remainingIdx := uint32(importedGlobals + mod.GlobalCount)
	exhaustedIdx := remainingIdx + 1

	out := wasmbin.Header()
	for _, s := range secs {
		switch s.ID {
		case wasmbin.SectionGlobal:
			body := rebuildGlobalSection(moduleBytes[s.BodyStart:s.BodyEnd])
			out = wasmbin.AppendSection(out, wasmbin.SectionGlobal, body)
		case wasmbin.SectionExport:
			body := rebuildExportSection(moduleBytes[s.BodyStart:s.BodyEnd], remainingIdx, exhaustedIdx)
			out = wasmbin.AppendSection(out, wasmbin.SectionExport, body)
		case wasmbin.SectionCode:
			body, err := rebuildCodeSection(moduleBytes[s.BodyStart:s.BodyEnd], remainingIdx, exhaustedIdx, operatorCost)
			if err != nil {
				return nil, fmt.Errorf("metering: code section: %w", err)
			}
			out = wasmbin.AppendSection(out, wasmbin.SectionCode, body)
		default:
			out = append(out, moduleBytes[s.Start:s.End]...)
		}
	}
	return out, nil
}

// rebuildGlobalSection appends the two metering globals after the existing
// ones, each initialized to a zero constant; the host sets the real budget
// post-instantiation via the exported globals.
func rebuildGlobalSection(body []byte) []byte {
	out := make([]byte, 0, len(body)+32)
	r := newCountingReader(body)
	n := r.mustVarU32()
	out = wasmbin.AppendVarU32(nil, n+2)
	out = append(out, body[r.pos:]...)

	// remaining_points: i64, mutable, init i64.const 0
	out = append(out, 0x7e, 0x01, 0x42, 0x00, 0x0b)
	// exhausted_points: i32, mutable, init i32.const 0
	out = append(out, 0x7f, 0x01, 0x41, 0x00, 0x0b)
	return out
}

// rebuildExportSection appends export entries for the two metering globals.
func rebuildExportSection(body []byte, remainingIdx, exhaustedIdx uint32) []byte {
	out := make([]byte, 0, len(body)+64)
	r := newCountingReader(body)
	n := r.mustVarU32()
	out = wasmbin.AppendVarU32(nil, n+2)
	out = append(out, body[r.pos:]...)

	out = wasmbin.AppendName(out, GlobalRemainingPoints)
	out = append(out, 0x03) // export kind: global
	out = wasmbin.AppendVarU32(out, remainingIdx)

	out = wasmbin.AppendName(out, GlobalExhaustedPoints)
	out = append(out, 0x03)
	out = wasmbin.AppendVarU32(out, exhaustedIdx)
	return out
}

// countingReader is a tiny helper wrapping wasmbin's unexported varint
// decode via a re-implementation, since reader is not exported.
type countingReader struct {
	buf []byte
	pos int
}

func newCountingReader(buf []byte) *countingReader { return &countingReader{buf: buf} }

func (r *countingReader) mustVarU32() uint32 {
	v, n, err := wasmbin.LEBUint32(r.buf[r.pos:])
	if err != nil {
		// A well-formed section always starts with a valid count; a
		// decode failure here means the module failed wasmbin.Parse
		// earlier and we would not have reached this point.
		panic(err)
	}
	r.pos += n
	return v
}

// rebuildCodeSection walks every function body, splitting it into basic
// blocks and inserting a debit-and-trap-check preamble at the start of
// each non-empty block.
func rebuildCodeSection(body []byte, remainingIdx, exhaustedIdx uint32, operatorCost uint64) ([]byte, error) {
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

		instrumented, err := instrumentFunctionBody(fnBody, remainingIdx, exhaustedIdx, operatorCost)
		if err != nil {
			return nil, err
		}
		out = wasmbin.AppendVarU32(out, uint32(len(instrumented)))
		out = append(out, instrumented...)
	}
	return out, nil
}

// instrumentFunctionBody decodes local declarations (copied verbatim),
// then the operator stream, inserting a debit preamble before each basic
// block's first operator.
func instrumentFunctionBody(fnBody []byte, remainingIdx, exhaustedIdx uint32, operatorCost uint64) ([]byte, error) {
	localsLen, err := localsHeaderLength(fnBody)
	if err != nil {
		return nil, err
	}
	instrs, err := wasmbin.WalkOperators(fnBody)
	if err != nil {
		return nil, err
	}
	return reassembleWithPreambles(fnBody, localsLen, instrs, remainingIdx, exhaustedIdx, operatorCost)
}

// reassembleWithPreambles performs the actual instrumentation: for each
// basic block (a run of instructions ending at a boundary operator, or the
// final run before the implicit function end), emit the debit preamble
// first, then the block's original bytes unchanged.
func reassembleWithPreambles(fnBody []byte, localsLen int, instrs []wasmbin.Instr, remainingIdx, exhaustedIdx uint32, operatorCost uint64) ([]byte, error) {
	out := make([]byte, 0, len(fnBody)+len(instrs)*12)
	out = append(out, fnBody[:localsLen]...)

	blockStart := 0 // index into instrs of the current block's first operator
	for i, ins := range instrs {
		if ins.Boundary || i == len(instrs)-1 {
			blockCount := i - blockStart + 1
			if blockCount > 0 {
				out = append(out, debitPreamble(remainingIdx, exhaustedIdx, uint64(blockCount)*operatorCost)...)
				first := instrs[blockStart].Offset
				last := instrs[i].Offset + instrs[i].Length
				out = append(out, fnBody[first:last]...)
			}
			blockStart = i + 1
		}
	}
	return out, nil
}

// debitPreamble emits:
//
//	global.get remaining ; i64.const cost ; i64.lt_u
//	if (empty)
//	  i32.const 1 ; global.set exhausted ; unreachable
//	end
//	global.get remaining ; i64.const cost ; i64.sub ; global.set remaining
func debitPreamble(remainingIdx, exhaustedIdx uint32, cost uint64) []byte {
	var b []byte
	b = append(b, 0x23)
	b = wasmbin.AppendVarU32(b, remainingIdx) // global.get remaining
	b = append(b, 0x42)
	b = wasmbin.AppendVarI64(b, int64(cost)) // i64.const cost
	b = append(b, 0x54)                      // i64.lt_u
	b = append(b, 0x04, 0x40)                // if (empty blocktype)
	b = append(b, 0x41, 0x01)                // i32.const 1
	b = append(b, 0x24)
	b = wasmbin.AppendVarU32(b, exhaustedIdx) // global.set exhausted
	b = append(b, 0x00)                       // unreachable
	b = append(b, 0x0b)                       // end

	b = append(b, 0x23)
	b = wasmbin.AppendVarU32(b, remainingIdx) // global.get remaining
	b = append(b, 0x42)
	b = wasmbin.AppendVarI64(b, int64(cost)) // i64.const cost
	b = append(b, 0x7d)                      // i64.sub
	b = append(b, 0x24)
	b = wasmbin.AppendVarU32(b, remainingIdx) // global.set remaining
	return b
}

// localsHeaderLength returns the byte length of the locals-declaration
// header at the start of a function body, i.e. everything before the
// expression proper.
func localsHeaderLength(fnBody []byte) (int, error) {
	v, n, err := wasmbin.LEBUint32(fnBody)
	if err != nil {
		return 0, err
	}
	pos := n
	for i := uint32(0); i < v; i++ {
		_, n, err := wasmbin.LEBUint32(fnBody[pos:])
		if err != nil {
			return 0, err
		}
		pos += n + 1 // count varint + 1 valtype byte
	}
	return pos, nil
}
