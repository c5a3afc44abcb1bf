// Package builder implements the event builder: a leaf component that,
// given a raw TokenEvent and the prior balance from the
// oracle, computes the post-event absolute balance, updates the cache, and
// produces a fully populated event row (minus its final index).
//
// It depends on the oracle and the cache but on nothing above them: the
// pipeline hands it the events produced by the decoder and the legacy
// adapters, and the builder imports neither of those packages.
package builder

import (
	"context"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/near/near-indexer-events/indexer/cache"
	"github.com/near/near-indexer-events/indexer/oracle"
	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/log"
)

var logger = log.NewModuleLogger("builder")

// maxU128 is the exclusive upper bound a persisted balance must stay under:
// absolute_amount is a NEP-141 token balance, which is a u128 on the
// contract side, not the u256 uint256.Int happens to hold it in.
var maxU128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

// Builder is the event builder. It holds no per-block state: every method
// call is self-contained given the event and the current block's hashes.
type Builder struct {
	oracle       *oracle.Client
	balances     *cache.BalanceCache
	inconsistent *cache.InconsistentSet
}

func NewBuilder(o *oracle.Client, balances *cache.BalanceCache, inconsistent *cache.InconsistentSet) *Builder {
	return &Builder{oracle: o, balances: balances, inconsistent: inconsistent}
}

// BuildCoinEvent resolves ev (affecting contract) into a fully populated
// CoinEventRow. The row's EventIndex is left nil; the reconciler assigns it
// after the consistency gate.
func (b *Builder) BuildCoinEvent(ctx context.Context, ev types.TokenEvent, contract types.AccountID, blockHeight uint64, blockTimestamp uint64, prevBlockHash string) (types.CoinEventRow, error) {
	key := types.AccountContractKey{Account: ev.Affected, Contract: contract}

	prior, err := b.oracle.PriorBalance(ctx, ev.Affected, contract, prevBlockHash)
	if err != nil {
		if err == oracle.ErrContractAbsent {
			prior = big.NewInt(0)
		} else {
			return types.CoinEventRow{}, err
		}
	}

	absolute := new(big.Int).Set(prior)
	if ev.Status.Succeeded() {
		absolute.Add(absolute, ev.Delta)
	}

	row := types.CoinEventRow{
		Standard:          ev.Standard,
		ReceiptID:         ev.ReceiptID,
		BlockHeight:       blockHeight,
		BlockTimestamp:    blockTimestamp,
		ContractAccountID: contract,
		AffectedAccountID: ev.Affected,
		InvolvedAccountID: ev.Involved,
		DeltaAmount:       new(big.Int).Set(ev.Delta),
		Cause:             ev.Cause,
		StatusStr:         ev.Status.Status(),
		EventMemo:         ev.Memo,
		ShardID:           int(ev.ShardID),
		TypeTag:           ev.TypeTag,
	}

	asUint256, overflow := uint256.FromBig(absolute)
	if absolute.Sign() < 0 || overflow || asUint256.Cmp(maxU128) >= 0 {
		logger.Error("balance out of u128 range, marking contract inconsistent",
			"contract", contract, "account", ev.Affected, "absolute", absolute.String())
		b.inconsistent.Add(contract)
		row.AbsoluteAmount = big.NewInt(0)
		return row, nil
	}

	b.balances.Set(key, absolute)
	row.AbsoluteAmount = absolute
	return row, nil
}

// BuildNftEvent expands an NFT TokenEvent into a persisted row. NFTs carry
// no balance, so there is no oracle interaction at all.
func BuildNftEvent(ev types.TokenEvent, contract types.AccountID, blockTimestamp uint64) types.NftEventRow {
	return types.NftEventRow{
		ReceiptID:         ev.ReceiptID,
		BlockTimestamp:    blockTimestamp,
		ContractAccountID: contract,
		TokenID:           ev.TokenID,
		Cause:             ev.Cause,
		StatusStr:         ev.Status.Status(),
		OldOwner:          ev.OldOwner,
		NewOwner:          ev.NewOwner,
		Authorized:        ev.Authorized,
		Memo:              ev.Memo,
		ShardID:           int(ev.ShardID),
		TypeTag:           ev.TypeTag,
	}
}
