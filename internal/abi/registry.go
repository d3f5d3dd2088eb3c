package abi

// LegacyHandler is the per-ABI thin wrapper shape for the legacy dialect:
// arguments are guest i32 pointers/scalars packed as uint64, and the
// return is zero or one i32 (pointer or scalar), also packed as uint64.
type LegacyHandler func(env *Env, args []uint64) ([]uint64, error)

// ModernHandler is the per-ABI thin wrapper shape for the modern dialect:
// a single offset to a Protocol-Buffers-encoded argument message, and the
// offset of a freshly written Protocol-Buffers return message.
type ModernHandler func(env *Env, argOffset uint32) (uint32, error)

// Registry binds ABI names to their dialect-specific handlers. Both maps
// are built once at startup and shared (read-only) across executions.
type Registry struct {
	legacy map[string]LegacyHandler
	modern map[string]ModernHandler
}

// NewRegistry builds the full registry covering every ABI category:
// ledger, balances, bytecode, sub-calls, addressing, crypto,
// time/randomness, slot, scheduler, deferred calls, events, and access
// control.
func NewRegistry() *Registry {
	r := &Registry{
		legacy: make(map[string]LegacyHandler),
		modern: make(map[string]ModernHandler),
	}
	registerLegacyLedger(r)
	registerLegacyBalances(r)
	registerLegacyBytecode(r)
	registerLegacySubCalls(r)
	registerLegacyAddressing(r)
	registerLegacyCrypto(r)
	registerLegacyTimeAndRandom(r)
	registerLegacySlot(r)
	registerLegacyScheduler(r)
	registerLegacyDeferredCalls(r)
	registerLegacyEventAndAccess(r)
	registerLegacyConsole(r)
	registerModern(r)
	return r
}

func (r *Registry) addLegacy(name string, h LegacyHandler) { r.legacy[name] = h }
func (r *Registry) addModern(name string, h ModernHandler) { r.modern[name] = h }

// Legacy looks up a legacy-dialect handler by name.
func (r *Registry) Legacy(name string) (LegacyHandler, bool) {
	h, ok := r.legacy[name]
	return h, ok
}

// Modern looks up a modern-dialect handler by name.
func (r *Registry) Modern(name string) (ModernHandler, bool) {
	h, ok := r.modern[name]
	return h, ok
}
