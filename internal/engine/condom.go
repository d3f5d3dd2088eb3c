// Package engine implements the Engine Factory: the two
// compiler flavors, the fixed deterministic feature gate, the Condom
// structural-limit middleware, the Metering gas-debit middleware, the
// Module Cache's unit of work (CompiledModule), and the serialization
// format.
package engine

import (
	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/wasmbin"
)

// Limits is the Condom Limits record: a configuration of optional
// maxima. A nil pointer field disables that check, mirroring the original
// Option<usize> fields.
type Limits struct {
	MaxExports               *int
	MaxFunctions             *int
	MaxSignatureLen          *int
	MaxNameLen               *int
	MaxImportsLen            *int
	MaxTableInitializersLen  *int
	MaxPassiveElementsLen    *int
	MaxPassiveDataLen        *int
	MaxGlobalInitializersLen *int
	MaxFunctionNamesLen      *int
	MaxTablesCount           *int
	MaxMemoriesLen           *int
	MaxGlobalsLen            *int
	MaxCustomSectionsLen     *int
	MaxCustomSectionsDataLen *int
}

func intPtr(v int) *int { return &v }

// DefaultLimits returns a conservative, fully enabled set of limits.
// Callers that want a check disabled should set the corresponding field
// back to nil.
func DefaultLimits() Limits {
	return Limits{
		MaxExports:               intPtr(10000),
		MaxFunctions:             intPtr(10000),
		MaxSignatureLen:          intPtr(1000),
		MaxNameLen:               intPtr(100000),
		MaxImportsLen:            intPtr(1000),
		MaxTableInitializersLen:  intPtr(10000),
		MaxPassiveElementsLen:    intPtr(10000),
		MaxPassiveDataLen:        intPtr(10000),
		MaxGlobalInitializersLen: intPtr(1000),
		MaxFunctionNamesLen:      intPtr(100000),
		MaxTablesCount:           intPtr(1),
		MaxMemoriesLen:           intPtr(1),
		MaxGlobalsLen:            intPtr(1000),
		MaxCustomSectionsLen:     intPtr(100),
		MaxCustomSectionsDataLen: intPtr(1_000_000),
	}
}

// CheckCondom runs every configured check against the parsed module
// structure, returning the first violated limit as a
// *rterr.StructuralLimitError. It never rewrites a
// function body — only module-level metadata is inspected.
func CheckCondom(m *wasmbin.Module, limits Limits) error {
	type check struct {
		name     string
		observed int
		allowed  *int
	}
	checks := []check{
		{"exports", m.ExportCount, limits.MaxExports},
		{"functions", m.FunctionCount, limits.MaxFunctions},
		{"imports", m.ImportCount, limits.MaxImportsLen},
		{"tables", m.TableCount, limits.MaxTablesCount},
		{"memories", m.MemoryCount, limits.MaxMemoriesLen},
		{"globals", m.GlobalCount, limits.MaxGlobalsLen},
		{"global initializers", m.GlobalInitializers, limits.MaxGlobalInitializersLen},
		{"passive elements", m.PassiveElementCount, limits.MaxPassiveElementsLen},
		{"passive data segments", m.PassiveDataCount, limits.MaxPassiveDataLen},
		{"custom sections", len(m.CustomSections), limits.MaxCustomSectionsLen},
	}
	for _, c := range checks {
		if c.allowed != nil && c.observed > *c.allowed {
			return &rterr.StructuralLimitError{Category: c.name, Observed: c.observed, Allowed: *c.allowed}
		}
	}

	if limits.MaxSignatureLen != nil {
		for _, arity := range m.SignatureArit {
			if arity > *limits.MaxSignatureLen {
				return &rterr.StructuralLimitError{Category: "signature arity", Observed: arity, Allowed: *limits.MaxSignatureLen}
			}
		}
	}
	if limits.MaxNameLen != nil && len(m.ModuleName) > *limits.MaxNameLen {
		return &rterr.StructuralLimitError{Category: "module name length", Observed: len(m.ModuleName), Allowed: *limits.MaxNameLen}
	}
	if limits.MaxFunctionNamesLen != nil {
		for _, n := range m.ExportNameLengths {
			if n > *limits.MaxFunctionNamesLen {
				return &rterr.StructuralLimitError{Category: "function name length", Observed: n, Allowed: *limits.MaxFunctionNamesLen}
			}
		}
	}
	if limits.MaxTableInitializersLen != nil {
		for _, n := range m.TablePassiveElemLen {
			if n > *limits.MaxTableInitializersLen {
				return &rterr.StructuralLimitError{Category: "table initializers", Observed: n, Allowed: *limits.MaxTableInitializersLen}
			}
		}
	}
	if limits.MaxCustomSectionsDataLen != nil {
		for _, cs := range m.CustomSections {
			if cs.DataLength > *limits.MaxCustomSectionsDataLen {
				return &rterr.StructuralLimitError{Category: "custom section data length", Observed: cs.DataLength, Allowed: *limits.MaxCustomSectionsDataLen}
			}
		}
	}
	return nil
}
