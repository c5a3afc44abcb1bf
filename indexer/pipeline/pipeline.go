// Package pipeline wires the leaf components (decoder, legacy adapters,
// event builder) and the reconciler into the per-block driver: shards
// collected concurrently via a structured "try-join-all" combinator, joined
// by a serial reconciler run.
package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	"golang.org/x/sync/errgroup"

	"github.com/near/near-indexer-events/indexer/builder"
	"github.com/near/near-indexer-events/indexer/cache"
	"github.com/near/near-indexer-events/indexer/decode"
	"github.com/near/near-indexer-events/indexer/legacy"
	"github.com/near/near-indexer-events/indexer/oracle"
	"github.com/near/near-indexer-events/indexer/reconcile"
	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/log"
)

var logger = log.NewModuleLogger("pipeline")

var (
	metricBlocksProcessed = metrics.NewRegisteredCounter("indexer/blocks_processed", metrics.DefaultRegistry)
	metricEventsBuilt     = metrics.NewRegisteredCounter("indexer/events_built", metrics.DefaultRegistry)
	metricShardDuration   = metrics.NewRegisteredTimer("indexer/shard_duration", metrics.DefaultRegistry)
)

// Pipeline is the top-level per-block driver, holding every shared
// collaborator for the lifetime of the process.
type Pipeline struct {
	builder      *builder.Builder
	legacy       *legacy.Registry
	oracle       *oracle.Client
	balances     *cache.BalanceCache
	inconsistent *cache.InconsistentSet
	reconciler   *reconcile.Reconciler
}

func New(b *builder.Builder, l *legacy.Registry, o *oracle.Client, balances *cache.BalanceCache, inconsistent *cache.InconsistentSet, r *reconcile.Reconciler) *Pipeline {
	return &Pipeline{
		builder:      b,
		legacy:       l,
		oracle:       o,
		balances:     balances,
		inconsistent: inconsistent,
		reconciler:   r,
	}
}

// ProcessBlock runs one block end to end. Blocks are processed strictly one
// at a time by the caller; within a block, shards run concurrently and a
// single shard failure cancels its siblings.
func (p *Pipeline) ProcessBlock(ctx context.Context, block types.BlockContext) error {
	results := make([]reconcile.Result, len(block.Shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range block.Shards {
		i, shard := i, shard
		g.Go(func() error {
			started := time.Now()
			res, err := p.collectShard(gctx, block, shard)
			metricShardDuration.UpdateSince(started)
			if err != nil {
				return errors.Wrapf(err, "pipeline: shard %d failed", shard.ShardID)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	merged := mergeResults(results)
	if err := p.reconciler.Reconcile(ctx, block, merged); err != nil {
		return err
	}

	metricBlocksProcessed.Inc(1)
	metricEventsBuilt.Inc(int64(len(merged.CoinEvents) + len(merged.NftEvents)))
	logger.Debug("block processed", "height", block.Height, "coin_events", len(merged.CoinEvents), "nft_events", len(merged.NftEvents))
	return nil
}

// collectShard runs the decoder and legacy adapters over one shard's
// receipts in order, handing every resulting token event to the builder
// immediately: decoder/adapters feed the builder before the reconciler ever
// sees a row.
func (p *Pipeline) collectShard(ctx context.Context, block types.BlockContext, shard types.Shard) (reconcile.Result, error) {
	var result reconcile.Result
	deps := legacy.Deps{Oracle: p.oracle, Balances: p.balances}

	for _, receipt := range shard.Receipts {
		contract := receipt.ExecutorAccount

		// Inconsistency is sticky: once a contract is known bad, skip it
		// before spending an oracle call or building a row.
		if p.inconsistent.Contains(contract) {
			continue
		}

		hasStandard := decode.HasStandardEventLogs(receipt.Logs)
		events := decode.ExtractStandardEvents(receipt, shard.ShardID)

		legacyEvents, err := p.legacy.Collect(ctx, deps, block, shard.ShardID, receipt, hasStandard)
		if err != nil {
			return reconcile.Result{}, errors.Wrapf(err, "pipeline: legacy adapter failed for receipt %s", receipt.ReceiptID)
		}
		events = append(events, legacyEvents...)

		for _, ev := range events {
			if ev.TypeTag == types.EventTypeNep171 {
				result.NftEvents = append(result.NftEvents, builder.BuildNftEvent(ev, contract, block.TimestampMillis()))
				continue
			}

			// Zero-delta events are filtered here rather than in the
			// reconciler, so no oracle call is ever spent building a row
			// that would only be discarded later (see DESIGN.md).
			if ev.Delta == nil || ev.Delta.Sign() == 0 {
				continue
			}

			row, err := p.builder.BuildCoinEvent(ctx, ev, contract, block.Height, block.TimestampMillis(), block.PrevHash)
			if err != nil {
				return reconcile.Result{}, errors.Wrapf(err, "pipeline: event builder failed for receipt %s", receipt.ReceiptID)
			}
			result.CoinEvents = append(result.CoinEvents, row)
		}
	}

	return result, nil
}

// mergeResults concatenates per-shard results in shard-id order, matching
// the order ProcessBlock launched them in.
func mergeResults(results []reconcile.Result) reconcile.Result {
	var merged reconcile.Result
	for _, r := range results {
		merged.CoinEvents = append(merged.CoinEvents, r.CoinEvents...)
		merged.NftEvents = append(merged.NftEvents, r.NftEvents...)
	}
	return merged
}
