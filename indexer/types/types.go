// Package types holds the data model shared by every stage of the
// per-block event-reconstruction pipeline: the read-only block/receipt
// input, the internal TokenEvent produced by decoders and legacy
// adapters, and the CoinEvent/NftEvent/ContractRecord rows the sink
// ultimately persists.
package types

import (
	"math/big"
)

// AccountID is a NEAR hierarchical account identifier, e.g. "alice.near".
// It is kept as a plain string (not wrapped) since it is used directly as
// a map key component throughout the cache and reconciler.
type AccountID string

// Cause is the closed enumeration of balance-changing event causes.
type Cause string

const (
	CauseMint     Cause = "MINT"
	CauseTransfer Cause = "TRANSFER"
	CauseBurn     Cause = "BURN"
)

// Status is the closed enumeration of persisted event statuses. SuccessValue
// and SuccessReceiptId both map to StatusSuccess.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusUnknown Status = "UNKNOWN"
)

// ExecutionStatusKind is the raw receipt execution status as it arrives from
// the stream, before being collapsed into the persisted Status enum.
type ExecutionStatusKind int

const (
	ExecutionUnknown ExecutionStatusKind = iota
	ExecutionFailure
	ExecutionSuccessValue
	ExecutionSuccessReceiptID
)

// Succeeded reports whether the receipt's delta should be applied to the
// running balance.
func (k ExecutionStatusKind) Succeeded() bool {
	return k == ExecutionSuccessValue || k == ExecutionSuccessReceiptID
}

// Status collapses the raw execution status into the persisted enum.
func (k ExecutionStatusKind) Status() Status {
	switch k {
	case ExecutionSuccessValue, ExecutionSuccessReceiptID:
		return StatusSuccess
	case ExecutionFailure:
		return StatusFailure
	default:
		return StatusUnknown
	}
}

// Standard tags. The exact mapping of these strings is source-inherited and
// assumed stable.
const (
	StandardFTNep141 = "FT_NEP141"
	StandardFTLegacy = "FT_LEGACY"
	StandardNFTNep171 = "NFT_NEP171"
)

// EventTypeTag is the closed, 4-digit-max enumeration used by the composite
// index.
type EventTypeTag int

const (
	EventTypeNep141 EventTypeTag = 1
	EventTypeNep171 EventTypeTag = 2
	// Legacy families each get their own tag so their positions are counted
	// independently of the standard NEP-141 stream within a shard.
	EventTypeLegacyWrapNear EventTypeTag = 3
	EventTypeLegacyAurora   EventTypeTag = 4
	EventTypeLegacySkyward  EventTypeTag = 5
)

// AccountContractKey is the balance cache key: one entry per
// (account, token contract) pair. It is a plain comparable struct so it can
// be used directly as a map key (including inside hashicorp/golang-lru,
// whose Cache is keyed by interface{}).
type AccountContractKey struct {
	Account  AccountID
	Contract AccountID
}

// ActionKind distinguishes the receipt action variants this pipeline cares
// about; NEAR receipts may carry other action kinds (CreateAccount, Stake,
// DeployContract, ...) which decoders simply skip.
type ActionKind int

const (
	ActionOther ActionKind = iota
	ActionFunctionCall
)

// Action is one action within a receipt.
type Action struct {
	Kind       ActionKind
	MethodName string
	// ArgsBase64 is the raw base64 payload as it arrives on the wire.
	ArgsBase64 string
	// Deposit is the yoctoNEAR amount attached to a FunctionCall action.
	Deposit *big.Int
}

// ReceiptOutcome is the read-only input describing one executed receipt.
type ReceiptOutcome struct {
	ReceiptID          string
	PredecessorAccount AccountID
	ReceiverAccount    AccountID
	ExecutorAccount    AccountID
	Actions            []Action
	Logs               []string
	Status             ExecutionStatusKind
	// SuccessValueBase64 is the base64-encoded return value of a receipt
	// whose status is ExecutionSuccessValue, empty otherwise. Only the
	// Skyward legacy adapter reads it, to learn how much of a refund the
	// contract already returned on its own.
	SuccessValueBase64 string
}

// Shard is one parallel execution lane of a block.
type Shard struct {
	ShardID  uint64
	Receipts []ReceiptOutcome
}

// BlockContext is the immutable per-block input.
type BlockContext struct {
	Height         uint64
	Hash           string
	PrevHash       string
	TimestampNanos uint64
	Shards         []Shard
}

// TimestampMillis is the block timestamp in milliseconds, as used by the
// composite index.
func (b BlockContext) TimestampMillis() uint64 {
	return b.TimestampNanos / 1_000_000
}

// TokenEvent is the internal representation produced by decoders and legacy
// adapters, before the event builder resolves it into an absolute balance.
type TokenEvent struct {
	ReceiptID string
	ShardID   uint64
	TypeTag   EventTypeTag
	Standard  string

	Affected AccountID
	Involved *AccountID
	Delta    *big.Int
	Cause    Cause
	Memo     *string
	Status   ExecutionStatusKind

	// TokenID/OldOwner/NewOwner/Authorized are populated only by the NFT
	// decoding path; FT events leave them empty.
	TokenID       string
	OldOwner      *AccountID
	NewOwner      *AccountID
	Authorized    *AccountID
}

// CoinEventRow is the fully built, not-yet-indexed FT/legacy-FT row.
type CoinEventRow struct {
	EventIndex         *big.Int
	Standard           string
	ReceiptID          string
	BlockHeight        uint64
	BlockTimestamp     uint64
	ContractAccountID  AccountID
	AffectedAccountID  AccountID
	InvolvedAccountID  *AccountID
	DeltaAmount        *big.Int
	AbsoluteAmount     *big.Int
	Cause              Cause
	StatusStr          Status
	EventMemo          *string

	// ShardID and TypeTag are retained on the row until the
	// reconciler assigns the final composite index; they are
	// not persisted fields of CoinEventRow itself.
	ShardID int
	TypeTag EventTypeTag
}

// NftEventRow is the fully built NFT row, one per token id.
type NftEventRow struct {
	EventIndex        *big.Int
	ReceiptID         string
	BlockTimestamp    uint64
	ContractAccountID AccountID
	TokenID           string
	Cause             Cause
	StatusStr         Status
	OldOwner          *AccountID
	NewOwner          *AccountID
	Authorized        *AccountID
	Memo              *string

	ShardID int
	TypeTag EventTypeTag
}

// ContractRecord is the lifecycle record for a contract first seen, and
// (optionally) later marked inconsistent.
type ContractRecord struct {
	ContractAccountID AccountID
	Standard          string

	FirstEventAtTimestamp   uint64
	FirstEventAtBlockHeight uint64

	InconsistencyFoundAtTimestamp   *uint64
	InconsistencyFoundAtBlockHeight *uint64
}

// IsInconsistent reports whether this record has ever been marked
// inconsistent.
func (c ContractRecord) IsInconsistent() bool {
	return c.InconsistencyFoundAtBlockHeight != nil
}
