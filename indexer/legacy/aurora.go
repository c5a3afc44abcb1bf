package legacy

import (
	"context"
	"math/big"
	"regexp"

	"github.com/pkg/errors"

	"github.com/near/near-indexer-events/indexer/decode"
	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/log"
)

var auroraLogger = log.NewModuleLogger("legacy.aurora")

const auroraAccount = types.AccountID("aurora")

// auroraIgnoredMethods never move nETH balances directly (they touch the
// EVM-internal ledger, move through ft_on_transfer's own NEP-141 log, or
// are bookkeeping calls), so they are dropped without comment.
var auroraIgnoredMethods = map[string]struct{}{
	"new":                             {},
	"call":                            {},
	"new_eth_connector":               {},
	"set_eth_connector_contract_data": {},
	"deposit":                         {},
	"submit":                          {},
	"deploy_erc20_token":              {},
	"get_nep141_from_erc20":           {},
	"ft_on_transfer":                  {},
}

var (
	auroraMintLogRE   = regexp.MustCompile(`^Mint (0|[1-9][0-9]*) nETH tokens for: ([a-z0-9.\-]+)$`)
	auroraRefundLogRE = regexp.MustCompile(`^Refund amount (0|[1-9][0-9]*) from ([a-z0-9.\-]+) to ([a-z0-9.\-]+)$`)
)

// auroraAdapter covers Aurora's EVM bridge: deposits into the bridge mint
// nETH via a log line rather than a return value, transfers follow the
// NEP-141 shape without the log, and withdraw is resolved from its binary
// arguments when they decode, otherwise from an end-of-block balance diff.
func auroraAdapter() Adapter {
	return Adapter{ExecutorAccount: auroraAccount, Collect: collectAurora}
}

func collectAurora(ctx context.Context, deps Deps, block types.BlockContext, shardID uint64, receipt types.ReceiptOutcome) ([]types.TokenEvent, error) {
	var events []types.TokenEvent
	for _, action := range receipt.Actions {
		if action.Kind != types.ActionFunctionCall {
			continue
		}
		if _, ignored := auroraIgnoredMethods[action.MethodName]; ignored {
			continue
		}

		ev, err := auroraAction(ctx, deps, block, shardID, receipt, action)
		if err != nil {
			return nil, err
		}
		events = append(events, ev...)
	}
	return events, nil
}

func auroraAction(ctx context.Context, deps Deps, block types.BlockContext, shardID uint64, receipt types.ReceiptOutcome, action types.Action) ([]types.TokenEvent, error) {
	switch action.MethodName {

	// MINT may produce several events from a single receipt, one per log
	// line, each with no involved account.
	case "finish_deposit":
		var events []types.TokenEvent
		for _, l := range receipt.Logs {
			m := auroraMintLogRE.FindStringSubmatch(l)
			if m == nil {
				continue
			}
			amount, ok := parseAmount(m[1])
			if !ok || amount.Sign() == 0 {
				continue
			}
			events = append(events, legacyEvent(receipt, shardID, types.EventTypeLegacyAurora, types.AccountID(m[2]), nil, amount, types.CauseMint, nil))
		}
		return events, nil

	case "ft_transfer", "ft_transfer_call":
		var args ftTransferArgs
		ok, err := decodeArgs(action.ArgsBase64, receipt.Status, &args)
		if err != nil || !ok {
			return nil, err
		}
		amount, valid := parseAmount(args.Amount)
		if !valid {
			return nil, nil
		}
		return transferEvents(receipt, shardID, types.EventTypeLegacyAurora, receipt.PredecessorAccount, types.AccountID(args.ReceiverID), amount, args.Memo), nil

	// A failed transfer may be revoked; every matching log line produces
	// its own reversed TRANSFER pair.
	case "ft_resolve_transfer":
		var events []types.TokenEvent
		for _, l := range receipt.Logs {
			m := auroraRefundLogRE.FindStringSubmatch(l)
			if m == nil {
				continue
			}
			amount, ok := parseAmount(m[1])
			if !ok || amount.Sign() == 0 {
				continue
			}
			from := types.AccountID(m[2])
			to := types.AccountID(m[3])
			events = append(events, transferEvents(receipt, shardID, types.EventTypeLegacyAurora, from, to, amount, nil)...)
		}
		return events, nil

	case "withdraw":
		return auroraWithdraw(ctx, deps, block, shardID, receipt, action)
	}

	auroraLogger.Warn("unhandled aurora method", "method", action.MethodName, "receipt", receipt.ReceiptID)
	return nil, nil
}

// auroraWithdraw resolves withdraw's BURN. Historical receipts carry a
// binary recipient+amount payload; when that decodes cleanly it is
// authoritative. Otherwise withdraw ships with no usable argument payload
// at all, so the amount is reconstructed from the predecessor's
// end-of-block balance diff.
func auroraWithdraw(ctx context.Context, deps Deps, block types.BlockContext, shardID uint64, receipt types.ReceiptOutcome, action types.Action) ([]types.TokenEvent, error) {
	if raw, err := decode.DecodeFunctionCallArgs(action.ArgsBase64); err == nil {
		if _, amount, ok := decode.DecodeAuroraWithdrawArgs(raw); ok && amount.Sign() > 0 {
			return []types.TokenEvent{
				legacyEvent(receipt, shardID, types.EventTypeLegacyAurora, receipt.PredecessorAccount, nil, new(big.Int).Neg(amount), types.CauseBurn, nil),
			}, nil
		}
	}

	prior, err := deps.Oracle.PriorBalance(ctx, receipt.PredecessorAccount, auroraAccount, block.PrevHash)
	if err != nil {
		return nil, errors.Wrap(err, "legacy: aurora withdraw failed to resolve prior balance")
	}
	end, err := deps.Oracle.BalanceAtEnd(ctx, auroraAccount, receipt.PredecessorAccount, block.Hash)
	if err != nil {
		return nil, errors.Wrap(err, "legacy: aurora withdraw failed to resolve end-of-block balance")
	}

	if end.Cmp(prior) > 0 {
		return nil, errors.Errorf("legacy: aurora balance increased during withdraw for %s: was %s, now %s", receipt.PredecessorAccount, prior, end)
	}
	if end.Cmp(prior) == 0 {
		return nil, nil
	}

	delta := new(big.Int).Sub(prior, end)
	return []types.TokenEvent{
		legacyEvent(receipt, shardID, types.EventTypeLegacyAurora, receipt.PredecessorAccount, nil, new(big.Int).Neg(delta), types.CauseBurn, nil),
	}, nil
}
