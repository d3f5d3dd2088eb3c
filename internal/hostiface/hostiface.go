// Package hostiface declares the Host Interface contract: the
// capability surface the runtime consumes for ledger access, crypto,
// scheduling, and sub-module resolution. Nothing in this package
// implements the interface — the ledger/state store, cryptographic
// primitives, and scheduler are external collaborators supplied by the
// embedder.
package hostiface

import "context"

// AddressKind classifies an address as returned by ClassifyAddress.
type AddressKind int

const (
	AddressUnknown AddressKind = iota
	AddressUser
	AddressContract
)

// CompiledModule is the opaque handle a GetModule call hands back to the
// runner; its concrete type is defined by internal/engine, not here, to
// avoid a dependency cycle between hostiface and engine.
type CompiledModule interface {
	// Dialect returns the dialect tag the module was compiled from.
	Dialect() byte
}

// CallStackEntry identifies one frame of the current sub-call stack.
type CallStackEntry struct {
	Address string
}

// DeferredCallQuote reports availability and price for a deferred call.
type DeferredCallQuote struct {
	Available bool
	Price     uint64
}

// SendMessageArgs bundles the scheduler's send_message parameters.
type SendMessageArgs struct {
	TargetAddress string
	TargetHandler string
	ValidityStart uint64
	ValidityEnd   uint64
	MaxGas        uint64
	RawFee        uint64
	Coins         uint64
	Data          []byte
	Filter        *MessageFilter
}

// MessageFilter optionally restricts a scheduled message to a specific
// address and datastore key.
type MessageFilter struct {
	Address string
	Key     []byte
}

// Interface is the full capability surface consumed by the runtime. An
// embedder supplies one implementation per execution context; the runtime
// assumes it is internally thread-safe if shared across concurrent
// executions.
type Interface interface {
	// Ledger
	GetData(ctx context.Context, key []byte) ([]byte, error)
	GetDataFor(ctx context.Context, address string, key []byte) ([]byte, error)
	SetData(ctx context.Context, key, value []byte) error
	SetDataFor(ctx context.Context, address string, key, value []byte) error
	AppendData(ctx context.Context, key, value []byte) error
	AppendDataFor(ctx context.Context, address string, key, value []byte) error
	DeleteData(ctx context.Context, key []byte) error
	DeleteDataFor(ctx context.Context, address string, key []byte) error
	HasData(ctx context.Context, key []byte) (bool, error)
	HasDataFor(ctx context.Context, address string, key []byte) (bool, error)
	GetKeys(ctx context.Context, prefix []byte) ([][]byte, error)
	GetKeysFor(ctx context.Context, address string, prefix []byte) ([][]byte, error)

	// Bytecode
	GetBytecode(ctx context.Context) ([]byte, error)
	GetBytecodeFor(ctx context.Context, address string) ([]byte, error)
	SetBytecode(ctx context.Context, bytecode []byte) error
	SetBytecodeFor(ctx context.Context, address string, bytecode []byte) error
	CreateModule(ctx context.Context, bytecode []byte) (address string, err error)

	// Balances
	GetBalance(ctx context.Context) (uint64, error)
	GetBalanceFor(ctx context.Context, address string) (uint64, error)
	TransferCoins(ctx context.Context, to string, amount uint64) error
	TransferCoinsFor(ctx context.Context, from, to string, amount uint64) error

	// Sub-calls
	InitCall(ctx context.Context, address string, coins uint64) (bytecode []byte, err error)
	FinishCall(ctx context.Context) error
	GetModule(ctx context.Context, bytecode []byte, remainingGas uint64) (CompiledModule, error)

	// Addressing / identity
	ValidateAddress(ctx context.Context, address string) (bool, error)
	AddressFromPublicKey(ctx context.Context, publicKey string) (string, error)
	ClassifyAddress(ctx context.Context, address string) (AddressKind, error)
	OwnedAddresses(ctx context.Context) ([]string, error)
	CallStack(ctx context.Context) ([]CallStackEntry, error)

	// Crypto
	HashBlake3(ctx context.Context, data []byte) ([]byte, error)
	HashSHA256(ctx context.Context, data []byte) ([]byte, error)
	HashKeccak256(ctx context.Context, data []byte) ([]byte, error)
	SignatureVerify(ctx context.Context, data, signature, publicKey []byte) (bool, error)
	EVMSignatureVerify(ctx context.Context, data, signature, publicKey []byte) (bool, error)
	EVMPubKeyFromSignature(ctx context.Context, data, signature []byte) ([]byte, error)
	EVMAddressFromPubKey(ctx context.Context, publicKey []byte) (string, error)

	// Time and randomness
	CurrentTimestamp(ctx context.Context) (uint64, error)
	UnsafeRandomInt(ctx context.Context) (int64, error)
	UnsafeRandomFloat(ctx context.Context) (float64, error)

	// Slot
	CurrentPeriod(ctx context.Context) (uint64, error)
	CurrentThread(ctx context.Context) (uint8, error)
	ChainID(ctx context.Context) (uint64, error)
	OriginOperationID(ctx context.Context) (string, error)

	// Scheduler
	SendMessage(ctx context.Context, args SendMessageArgs) error

	// Deferred calls
	DeferredCallRegister(ctx context.Context, targetAddress, targetHandler string, validityPeriods, gas uint64, params []byte, coins uint64) (id string, err error)
	DeferredCallExists(ctx context.Context, id string) (bool, error)
	DeferredCallCancel(ctx context.Context, id string) error
	DeferredCallQuote(ctx context.Context, targetSlotPeriod uint64, gas uint64) (DeferredCallQuote, error)

	// Event
	GenerateEvent(ctx context.Context, data []byte) error

	// Access control
	CallerHasWriteAccess(ctx context.Context) (bool, error)

	// Recursion guard
	IncrementCallDepth(ctx context.Context) error
	DecrementCallDepth(ctx context.Context) error

	// SaveGasRemainingBeforeSubexecution is invoked unconditionally at the
	// top of exec_module, before the instance is created, so the host can
	// account read-only calls. Preserved as an unconditional call with no
	// further inferred semantics.
	SaveGasRemainingBeforeSubexecution(ctx context.Context, remainingGas uint64) error
}
