// Package wasmbin implements a minimal WASM 1.0 (+ bulk-memory) binary
// format reader: it counts the structural metadata the Condom middleware
// inspects (internal/engine) and exposes a per-function-body operator walk
// used to inject metering debits. It deliberately avoids depending on a
// WASM-engine library's own internal decoder — wazero's lives under an
// unexported internal/ package tree, and wasmtime-go does not expose
// section introspection at all — so this is a from-scratch reader over the
// wire format itself, the same way the host project's own internal/wasm
// module is a from-scratch Go binary-format reader for Rego bytecode.
package wasmbin

import (
	"errors"
	"fmt"
)

// Magic and version preambles for a WASM module, per the core spec.
var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6d}
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// SectionID enumerates the standard WASM section identifiers.
type SectionID byte

const (
	SectionCustom   SectionID = 0
	SectionType     SectionID = 1
	SectionImport   SectionID = 2
	SectionFunction SectionID = 3
	SectionTable    SectionID = 4
	SectionMemory   SectionID = 5
	SectionGlobal   SectionID = 6
	SectionExport   SectionID = 7
	SectionStart    SectionID = 8
	SectionElement  SectionID = 9
	SectionCode     SectionID = 10
	SectionData     SectionID = 11
)

// ErrMalformed indicates the byte slice is not a well-formed WASM module
// header or a section could not be decoded.
var ErrMalformed = errors.New("malformed wasm module")

// CustomSection records a custom section's name and raw payload length,
// both of which Condom can bound.
type CustomSection struct {
	Name       string
	DataLength int
}

// FunctionBody is one entry of the code section: its byte offset/length
// within the original module (for operator walking).
type FunctionBody struct {
	Offset int
	Length int
}

// Module is the structural metadata the condom and metering middleware
// need. It does not retain a fully decoded AST — only the counts and byte
// ranges their checks and rewrites require.
type Module struct {
	raw []byte

	ModuleName string // from the "name" custom section, if present; "" otherwise

	TypeCount     int
	SignatureArit []int      // params+results per type, indexed like the type section
	Types         []FuncType // full param/result value types, indexed like the type section

	ImportCount int
	FuncImports []ImportDesc

	FunctionCount int // functions defined locally (excludes imported funcs)
	TypeIndices   []uint32

	TableCount          int
	TablePassiveElemLen []int // element segment lengths targeting tables

	MemoryCount int

	GlobalCount         int
	GlobalInitializers  int // number of global init expressions (== GlobalCount for MVP)
	ExportCount         int
	ExportNameLengths   []int
	PassiveElementCount int
	PassiveDataCount    int
	CustomSections      []CustomSection

	Functions []FunctionBody
}

// ImportDesc names one import entry of any kind. Condom counts imports but
// does not bound their module/field name lengths. TypeIndex is only
// meaningful when Kind == 0 (func).
type ImportDesc struct {
	Module    string
	Field     string
	Kind      byte // 0=func,1=table,2=mem,3=global
	TypeIndex uint32
}

// FuncType is one entry of the type section: its parameter and result
// value types, each a raw WASM value-type byte (0x7f=i32, 0x7e=i64,
// 0x7d=f32, 0x7c=f64). Retained (not just counted) so host-function import
// binding can build an exact signature instead of guessing.
type FuncType struct {
	Params  []byte
	Results []byte
}

// Parse decodes module structure from raw WASM bytes. It is intentionally
// lenient about section contents it doesn't need (e.g. it does not
// validate instruction encodings outside of code-section operator
// walking), since full validation is the compiler's job; Parse exists only
// to extract the counts Condom checks.
func Parse(b []byte) (*Module, error) {
	if len(b) < 8 || !bytesEqual(b[0:4], magic) || !bytesEqual(b[4:8], version) {
		return nil, fmt.Errorf("%w: bad header", ErrMalformed)
	}
	m := &Module{raw: b}
	r := &reader{buf: b, pos: 8}

	for r.pos < len(b) {
		id, err := r.readByte()
		if err != nil {
			return nil, err
		}
		size, err := r.readVarU32()
		if err != nil {
			return nil, err
		}
		start := r.pos
		end := start + int(size)
		if end > len(b) {
			return nil, fmt.Errorf("%w: section overruns module", ErrMalformed)
		}
		sect := &reader{buf: b[:end], pos: start}
		switch SectionID(id) {
		case SectionType:
			if err := parseTypeSection(sect, m); err != nil {
				return nil, err
			}
		case SectionImport:
			if err := parseImportSection(sect, m); err != nil {
				return nil, err
			}
		case SectionFunction:
			if err := parseFunctionSection(sect, m); err != nil {
				return nil, err
			}
		case SectionTable:
			if err := parseTableSection(sect, m); err != nil {
				return nil, err
			}
		case SectionMemory:
			if err := parseMemorySection(sect, m); err != nil {
				return nil, err
			}
		case SectionGlobal:
			if err := parseGlobalSection(sect, m); err != nil {
				return nil, err
			}
		case SectionExport:
			if err := parseExportSection(sect, m); err != nil {
				return nil, err
			}
		case SectionElement:
			if err := parseElementSection(sect, m); err != nil {
				return nil, err
			}
		case SectionCode:
			if err := parseCodeSection(sect, m); err != nil {
				return nil, err
			}
		case SectionData:
			if err := parseDataSection(sect, m); err != nil {
				return nil, err
			}
		case SectionCustom:
			if err := parseCustomSection(sect, end, m); err != nil {
				return nil, err
			}
		default:
			// Start section and any future/unknown section: not needed
			// for Condom's counts.
		}
		r.pos = end
	}
	return m, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("%w: unexpected eof", ErrMalformed)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: unexpected eof", ErrMalformed)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readVarU32 decodes an unsigned LEB128 varint, as used throughout the
// WASM binary format for counts and section sizes.
func (r *reader) readVarU32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, fmt.Errorf("%w: varint too long", ErrMalformed)
		}
	}
}

func (r *reader) readName() (string, error) {
	n, err := r.readVarU32()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) skip(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("%w: unexpected eof", ErrMalformed)
	}
	r.pos += n
	return nil
}

func parseTypeSection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	m.TypeCount = int(count)
	for i := uint32(0); i < count; i++ {
		form, err := r.readByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("%w: unsupported type form 0x%x", ErrMalformed, form)
		}
		nParams, err := r.readVarU32()
		if err != nil {
			return err
		}
		params, err := r.readBytes(int(nParams))
		if err != nil {
			return err
		}
		nResults, err := r.readVarU32()
		if err != nil {
			return err
		}
		results, err := r.readBytes(int(nResults))
		if err != nil {
			return err
		}
		m.SignatureArit = append(m.SignatureArit, int(nParams+nResults))
		m.Types = append(m.Types, FuncType{
			Params:  append([]byte(nil), params...),
			Results: append([]byte(nil), results...),
		})
	}
	return nil
}

func parseImportSection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	m.ImportCount = int(count)
	for i := uint32(0); i < count; i++ {
		modName, err := r.readName()
		if err != nil {
			return err
		}
		field, err := r.readName()
		if err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}
		var typeIndex uint32
		switch kind {
		case 0: // func
			typeIndex, err = r.readVarU32()
			if err != nil {
				return err
			}
		case 1: // table
			if err := skipTableType(r); err != nil {
				return err
			}
		case 2: // memory
			if err := skipLimits(r); err != nil {
				return err
			}
		case 3: // global
			if err := r.skip(1); err != nil {
				return err
			}
			if _, err := r.readByte(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown import kind %d", ErrMalformed, kind)
		}
		m.FuncImports = append(m.FuncImports, ImportDesc{Module: modName, Field: field, Kind: kind, TypeIndex: typeIndex})
	}
	return nil
}

func skipTableType(r *reader) error {
	if _, err := r.readByte(); err != nil { // elem type
		return err
	}
	return skipLimits(r)
}

func skipLimits(r *reader) error {
	flags, err := r.readByte()
	if err != nil {
		return err
	}
	if _, err := r.readVarU32(); err != nil { // min
		return err
	}
	if flags&0x01 != 0 {
		if _, err := r.readVarU32(); err != nil { // max
			return err
		}
	}
	return nil
}

func parseFunctionSection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	m.FunctionCount = int(count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.readVarU32()
		if err != nil {
			return err
		}
		m.TypeIndices = append(m.TypeIndices, idx)
	}
	return nil
}

func parseTableSection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	m.TableCount = int(count)
	for i := uint32(0); i < count; i++ {
		if err := skipTableType(r); err != nil {
			return err
		}
	}
	return nil
}

func parseMemorySection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	m.MemoryCount = int(count)
	for i := uint32(0); i < count; i++ {
		if err := skipLimits(r); err != nil {
			return err
		}
	}
	return nil
}

func parseGlobalSection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	m.GlobalCount = int(count)
	for i := uint32(0); i < count; i++ {
		if err := r.skip(2); err != nil { // valtype + mutability
			return err
		}
		if err := skipExpr(r); err != nil {
			return err
		}
		m.GlobalInitializers++
	}
	return nil
}

func parseExportSection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	m.ExportCount = int(count)
	for i := uint32(0); i < count; i++ {
		name, err := r.readName()
		if err != nil {
			return err
		}
		if err := r.skip(1); err != nil { // kind
			return err
		}
		if _, err := r.readVarU32(); err != nil { // index
			return err
		}
		m.ExportNameLengths = append(m.ExportNameLengths, len(name))
	}
	return nil
}

func parseElementSection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		flags, err := r.readVarU32()
		if err != nil {
			return err
		}
		active := flags&0x01 == 0
		if active {
			if flags&0x02 != 0 {
				if _, err := r.readVarU32(); err != nil { // table index
					return err
				}
			}
			if err := skipExpr(r); err != nil {
				return err
			}
		} else {
			m.PassiveElementCount++
		}
		if flags&0x02 != 0 || flags&0x01 != 0 {
			if _, err := r.readByte(); err != nil { // elemkind/reftype
				return err
			}
		}
		n, err := r.readVarU32()
		if err != nil {
			return err
		}
		if active {
			m.TablePassiveElemLen = append(m.TablePassiveElemLen, int(n))
		}
		for j := uint32(0); j < n; j++ {
			if flags&0x04 != 0 {
				if err := skipExpr(r); err != nil {
					return err
				}
			} else {
				if _, err := r.readVarU32(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func parseCodeSection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		size, err := r.readVarU32()
		if err != nil {
			return err
		}
		start := r.pos
		if err := r.skip(int(size)); err != nil {
			return err
		}
		m.Functions = append(m.Functions, FunctionBody{Offset: start, Length: int(size)})
	}
	return nil
}

func parseDataSection(r *reader, m *Module) error {
	count, err := r.readVarU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		flags, err := r.readVarU32()
		if err != nil {
			return err
		}
		active := flags&0x01 == 0
		if active {
			if flags&0x02 != 0 {
				if _, err := r.readVarU32(); err != nil {
					return err
				}
			}
			if err := skipExpr(r); err != nil {
				return err
			}
		} else {
			m.PassiveDataCount++
		}
		n, err := r.readVarU32()
		if err != nil {
			return err
		}
		if err := r.skip(int(n)); err != nil {
			return err
		}
	}
	return nil
}

func parseCustomSection(r *reader, end int, m *Module) error {
	name, err := r.readName()
	if err != nil {
		return err
	}
	dataLen := end - r.pos
	if dataLen < 0 {
		return fmt.Errorf("%w: custom section name overruns section", ErrMalformed)
	}
	m.CustomSections = append(m.CustomSections, CustomSection{Name: name, DataLength: dataLen})
	if name == "name" {
		// The "name" custom section's module-name subsection (id 0) holds
		// a single name string; best-effort extraction only, skipped on
		// any decode error since Condom only needs the length.
		sub := &reader{buf: r.buf[:end], pos: r.pos}
		if sub.pos < end {
			if subID, err := sub.readByte(); err == nil && subID == 0 {
				if _, err := sub.readVarU32(); err == nil {
					if modName, err := sub.readName(); err == nil {
						m.ModuleName = modName
					}
				}
			}
		}
	}
	return nil
}

// skipExpr advances past a constant init expression, terminated by the End
// opcode (0x0b). It only needs to recognize the MVP constant instructions
// used in global/element/data initializers.
func skipExpr(r *reader) error {
	for {
		op, err := r.readByte()
		if err != nil {
			return err
		}
		switch op {
		case 0x0b: // end
			return nil
		case 0x41: // i32.const
			if _, err := r.readVarU32(); err != nil {
				return err
			}
		case 0x42: // i64.const
			if _, err := readVarI64(r); err != nil {
				return err
			}
		case 0x43: // f32.const
			if err := r.skip(4); err != nil {
				return err
			}
		case 0x44: // f64.const
			if err := r.skip(8); err != nil {
				return err
			}
		case 0x23: // global.get
			if _, err := r.readVarU32(); err != nil {
				return err
			}
		case 0xd0: // ref.null
			if err := r.skip(1); err != nil {
				return err
			}
		case 0xd2: // ref.func
			if _, err := r.readVarU32(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unsupported const-expr opcode 0x%x", ErrMalformed, op)
		}
	}
}

func readVarI64(r *reader) (int64, error) {
	var result int64
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, nil
		}
	}
}

// LEBUint32 is exposed for callers that want to re-parse a raw varint (e.g.
// metering re-reading immediates while walking operators).
func LEBUint32(b []byte) (value uint32, n int, err error) {
	r := &reader{buf: b, pos: 0}
	v, err := r.readVarU32()
	if err != nil {
		return 0, 0, err
	}
	return v, r.pos, nil
}
