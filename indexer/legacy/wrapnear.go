package legacy

import (
	"context"
	"math/big"

	"github.com/near/near-indexer-events/indexer/decode"
	"github.com/near/near-indexer-events/indexer/types"
)

const wrapNearAccount = types.AccountID("wrap.near")

// wrapNearAdapter covers wrap.near's near_deposit/near_withdraw pair plus
// its NEP-141-shaped ft_transfer/ft_transfer_call/ft_resolve_transfer,
// predating wrap.near's own adoption of EVENT_JSON logs.
func wrapNearAdapter() Adapter {
	return Adapter{ExecutorAccount: wrapNearAccount, Collect: collectWrapNear}
}

func collectWrapNear(ctx context.Context, deps Deps, block types.BlockContext, shardID uint64, receipt types.ReceiptOutcome) ([]types.TokenEvent, error) {
	var events []types.TokenEvent
	for _, action := range receipt.Actions {
		if action.Kind != types.ActionFunctionCall {
			continue
		}
		ev, err := wrapNearAction(receipt, shardID, action)
		if err != nil {
			return nil, err
		}
		events = append(events, ev...)
	}
	return events, nil
}

func wrapNearAction(receipt types.ReceiptOutcome, shardID uint64, action types.Action) ([]types.TokenEvent, error) {
	switch action.MethodName {
	case "storage_deposit":
		return nil, nil

	// MINT produces one event with no involved account.
	case "near_deposit":
		return []types.TokenEvent{
			legacyEvent(receipt, shardID, types.EventTypeLegacyWrapNear, receipt.PredecessorAccount, nil, new(big.Int).Set(action.Deposit), types.CauseMint, nil),
		}, nil

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
		return transferEvents(receipt, shardID, types.EventTypeLegacyWrapNear, receipt.PredecessorAccount, types.AccountID(args.ReceiverID), amount, args.Memo), nil

	// A failed ft_transfer_call may be partially or fully reverted here.
	case "ft_resolve_transfer":
		var args ftRefundArgs
		ok, err := decodeArgs(action.ArgsBase64, receipt.Status, &args)
		if err != nil || !ok {
			return nil, err
		}
		amount, valid := parseAmount(args.Amount)
		if !valid {
			return nil, nil
		}
		return resolveTransferRefund(receipt, shardID, types.EventTypeLegacyWrapNear, args, amount), nil

	// BURN produces one event with no involved account.
	case "near_withdraw":
		var args struct {
			Amount string `json:"amount"`
		}
		ok, err := decodeArgs(action.ArgsBase64, receipt.Status, &args)
		if err != nil || !ok {
			return nil, err
		}
		amount, valid := parseAmount(args.Amount)
		if !valid {
			return nil, nil
		}
		return []types.TokenEvent{
			legacyEvent(receipt, shardID, types.EventTypeLegacyWrapNear, receipt.PredecessorAccount, nil, new(big.Int).Neg(amount), types.CauseBurn, nil),
		}, nil
	}

	return nil, nil
}

// decodeArgs base64-decodes and JSON-unmarshals a function-call argument
// payload, collapsing the "unparseable on a failed receipt" case to
// ok=false rather than an error. Shared by every legacy adapter that reads
// JSON args.
func decodeArgs(argsBase64 string, status types.ExecutionStatusKind, v interface{}) (bool, error) {
	raw, err := decode.DecodeFunctionCallArgs(argsBase64)
	if err != nil {
		if !status.Succeeded() {
			return false, nil
		}
		return false, err
	}
	return decode.UnmarshalArgs(raw, status, v)
}
