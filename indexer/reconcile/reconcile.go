// Package reconcile implements the block reconciler: the serial,
// per-block stage that runs after every shard has produced its
// event rows. It registers newly seen contracts, cross-checks the final
// balance of every affected account against the oracle, marks and persists
// newly inconsistent contracts, drops their events, assigns final composite
// indices, and writes the survivors to the sink in chunks.
package reconcile

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/near/near-indexer-events/indexer/cache"
	"github.com/near/near-indexer-events/indexer/index"
	"github.com/near/near-indexer-events/indexer/oracle"
	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/log"
)

var logger = log.NewModuleLogger("reconcile")

// maxPersistRetries bounds the retry count for marking a contract
// inconsistent in the sink.
const maxPersistRetries = 10

// Sink is the relational persistence collaborator the reconciler writes
// to. The core never implements its own driver; this is the boundary a
// deployment's storage layer satisfies.
type Sink interface {
	RegisterContract(ctx context.Context, record types.ContractRecord) error
	MarkInconsistent(ctx context.Context, contract types.AccountID, timestamp, height uint64) error
	InsertCoinEvents(ctx context.Context, rows []types.CoinEventRow) error
	InsertNftEvents(ctx context.Context, rows []types.NftEventRow) error
}

// Publisher is the optional downstream fan-out collaborator. A Reconciler
// with no publisher set only writes to the sink; *sink/kafkasink.Publisher
// satisfies this, and a nil *kafkasink.Publisher is safe to call.
type Publisher interface {
	PublishCoinEvents(rows []types.CoinEventRow) error
	PublishNftEvents(rows []types.NftEventRow) error
}

// Config controls chunking at the sink boundary.
type Config struct {
	InsertChunkSize int
}

// DefaultConfig returns the documented default chunk size.
func DefaultConfig() Config {
	return Config{InsertChunkSize: 100}
}

// Reconciler is the per-process, long-lived owner of the block reconciler
// stage. It is not safe for concurrent use across blocks: blocks must be
// processed serially.
type Reconciler struct {
	sink         Sink
	oracle       *oracle.Client
	inconsistent *cache.InconsistentSet
	cfg          Config
	publisher    Publisher

	registered map[types.AccountID]struct{}
}

func New(sink Sink, o *oracle.Client, inconsistent *cache.InconsistentSet, cfg Config) *Reconciler {
	return &Reconciler{
		sink:         sink,
		oracle:       o,
		inconsistent: inconsistent,
		cfg:          cfg,
		registered:   make(map[types.AccountID]struct{}),
	}
}

// SetPublisher wires an optional downstream fan-out publisher. Unset by
// default, so existing callers are unaffected.
func (r *Reconciler) SetPublisher(p Publisher) {
	r.publisher = p
}

// Result is what one block's per-shard collection phase hands the
// reconciler: every surviving CoinEventRow and NftEventRow, concatenated in
// shard-id order.
type Result struct {
	CoinEvents []types.CoinEventRow
	NftEvents  []types.NftEventRow
}

// Reconcile runs the post-collection stages of consistency checking,
// inconsistency marking, index assignment, and persistence against one
// block's collected rows. The zero-delta filter is applied earlier, during
// per-shard collection, so no oracle call is ever wasted building a row
// that would only be discarded here -- see DESIGN.md.
func (r *Reconciler) Reconcile(ctx context.Context, block types.BlockContext, result Result) error {
	if err := r.registerNewContracts(ctx, result.CoinEvents, result.NftEvents); err != nil {
		return err
	}

	newlyInconsistent, err := r.checkConsistency(ctx, block, result.CoinEvents)
	if err != nil {
		return err
	}

	if err := r.markInconsistent(ctx, block, newlyInconsistent); err != nil {
		return err
	}

	survivors := filterInconsistent(result.CoinEvents, newlyInconsistent)

	assigner := index.NewAssigner()
	for i := range survivors {
		survivors[i].EventIndex = assigner.Next(block.TimestampMillis(), uint64(survivors[i].ShardID), int(survivors[i].TypeTag))
	}
	for i := range result.NftEvents {
		result.NftEvents[i].EventIndex = assigner.Next(block.TimestampMillis(), uint64(result.NftEvents[i].ShardID), int(result.NftEvents[i].TypeTag))
	}

	if err := r.insertChunked(ctx, survivors, result.NftEvents); err != nil {
		return err
	}

	if len(newlyInconsistent) > 0 {
		logger.Warn("block reconciled with newly inconsistent contracts", "height", block.Height, "count", len(newlyInconsistent))
	}
	return nil
}

func (r *Reconciler) registerNewContracts(ctx context.Context, coin []types.CoinEventRow, nft []types.NftEventRow) error {
	for _, row := range coin {
		if err := r.registerOnce(ctx, row.ContractAccountID, row.Standard, row.BlockTimestamp, row.BlockHeight); err != nil {
			return err
		}
	}
	for _, row := range nft {
		if err := r.registerOnce(ctx, row.ContractAccountID, types.StandardNFTNep171, row.BlockTimestamp, 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) registerOnce(ctx context.Context, contract types.AccountID, standard string, timestamp, height uint64) error {
	if _, ok := r.registered[contract]; ok {
		return nil
	}
	record := types.ContractRecord{
		ContractAccountID:       contract,
		Standard:                standard,
		FirstEventAtTimestamp:   timestamp,
		FirstEventAtBlockHeight: height,
	}
	if err := r.sink.RegisterContract(ctx, record); err != nil {
		return errors.Wrap(err, "reconcile: failed to register contract")
	}
	r.registered[contract] = struct{}{}
	return nil
}

// checkConsistency walks coin in reverse chronological order: the latest
// event touching each (contract, account) pair is cross-checked against
// the oracle's end-of-block balance.
func (r *Reconciler) checkConsistency(ctx context.Context, block types.BlockContext, coin []types.CoinEventRow) (map[types.AccountID]struct{}, error) {
	newlyInconsistent := make(map[types.AccountID]struct{})
	seenAccounts := make(map[types.AccountContractKey]struct{})

	for i := len(coin) - 1; i >= 0; i-- {
		row := coin[i]

		if r.inconsistent.Contains(row.ContractAccountID) {
			newlyInconsistent[row.ContractAccountID] = struct{}{}
			continue
		}
		if _, ok := newlyInconsistent[row.ContractAccountID]; ok {
			continue
		}

		key := types.AccountContractKey{Account: row.AffectedAccountID, Contract: row.ContractAccountID}
		if _, seen := seenAccounts[key]; !seen {
			end, err := r.oracle.BalanceAtEnd(ctx, row.ContractAccountID, row.AffectedAccountID, block.Hash)
			switch {
			case errors.Is(err, oracle.ErrContractAbsent):
				newlyInconsistent[row.ContractAccountID] = struct{}{}
			case err != nil:
				return nil, errors.Wrap(err, "reconcile: consistency check failed")
			case end.Cmp(row.AbsoluteAmount) != 0:
				logger.Error("balance mismatch at end of block", "contract", row.ContractAccountID, "account", row.AffectedAccountID, "expected", row.AbsoluteAmount, "oracle", end)
				newlyInconsistent[row.ContractAccountID] = struct{}{}
			}
		}
		seenAccounts[key] = struct{}{}
	}
	return newlyInconsistent, nil
}

func (r *Reconciler) markInconsistent(ctx context.Context, block types.BlockContext, newlyInconsistent map[types.AccountID]struct{}) error {
	for contract := range newlyInconsistent {
		r.inconsistent.Add(contract)

		bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxPersistRetries)
		err := backoff.Retry(func() error {
			return r.sink.MarkInconsistent(ctx, contract, block.TimestampMillis(), block.Height)
		}, bo)
		if err != nil {
			return errors.Wrapf(err, "reconcile: failed to persist inconsistency for %s after retries", contract)
		}
	}
	return nil
}

func filterInconsistent(rows []types.CoinEventRow, newlyInconsistent map[types.AccountID]struct{}) []types.CoinEventRow {
	survivors := make([]types.CoinEventRow, 0, len(rows))
	for _, row := range rows {
		if _, dropped := newlyInconsistent[row.ContractAccountID]; dropped {
			continue
		}
		survivors = append(survivors, row)
	}
	return survivors
}

func (r *Reconciler) insertChunked(ctx context.Context, coin []types.CoinEventRow, nft []types.NftEventRow) error {
	size := r.cfg.InsertChunkSize
	if size <= 0 {
		size = DefaultConfig().InsertChunkSize
	}

	for start := 0; start < len(coin); start += size {
		end := start + size
		if end > len(coin) {
			end = len(coin)
		}
		chunk := coin[start:end]
		if err := r.sink.InsertCoinEvents(ctx, chunk); err != nil {
			return errors.Wrap(err, "reconcile: fatal insert-chunk failure for coin events")
		}
		if r.publisher != nil {
			if err := r.publisher.PublishCoinEvents(chunk); err != nil {
				logger.Error("downstream publish failed for coin events", "err", err)
			}
		}
	}
	for start := 0; start < len(nft); start += size {
		end := start + size
		if end > len(nft) {
			end = len(nft)
		}
		chunk := nft[start:end]
		if err := r.sink.InsertNftEvents(ctx, chunk); err != nil {
			return errors.Wrap(err, "reconcile: fatal insert-chunk failure for nft events")
		}
		if r.publisher != nil {
			if err := r.publisher.PublishNftEvents(chunk); err != nil {
				logger.Error("downstream publish failed for nft events", "err", err)
			}
		}
	}
	return nil
}
