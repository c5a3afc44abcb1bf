package legacy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/near/near-indexer-events/indexer/types"
)

const skywardAccount = types.AccountID("token.skyward.near")

// skywardAdapter covers Skyward's `new`, which both deploys the token and
// mints its total supply in one call -- the only MINT path this contract
// has ever exercised -- plus its NEP-141-shaped transfer/resolve_transfer.
func skywardAdapter() Adapter {
	return Adapter{ExecutorAccount: skywardAccount, Collect: collectSkyward}
}

func collectSkyward(ctx context.Context, deps Deps, block types.BlockContext, shardID uint64, receipt types.ReceiptOutcome) ([]types.TokenEvent, error) {
	var events []types.TokenEvent
	for _, action := range receipt.Actions {
		if action.Kind != types.ActionFunctionCall {
			continue
		}
		ev, err := skywardAction(deps, shardID, receipt, action)
		if err != nil {
			return nil, err
		}
		events = append(events, ev...)
	}
	return events, nil
}

func skywardAction(deps Deps, shardID uint64, receipt types.ReceiptOutcome, action types.Action) ([]types.TokenEvent, error) {
	switch action.MethodName {
	case "storage_deposit":
		return nil, nil

	// The contract's constructor mints its entire total supply to its
	// owner. The prior block may not have the contract deployed at all, so
	// the cache is seeded with a zero balance before the event is built --
	// otherwise the oracle would have nothing to answer a prior-balance
	// query against.
	case "new":
		var args struct {
			OwnerID     string `json:"owner_id"`
			TotalSupply string `json:"total_supply"`
		}
		ok, err := decodeArgs(action.ArgsBase64, receipt.Status, &args)
		if err != nil || !ok {
			return nil, err
		}
		owner := types.AccountID(args.OwnerID)
		deps.Balances.Set(types.AccountContractKey{Account: owner, Contract: skywardAccount}, big.NewInt(0))

		delta, valid := parseAmount(args.TotalSupply)
		if !valid {
			return nil, nil
		}
		return []types.TokenEvent{
			legacyEvent(receipt, shardID, types.EventTypeLegacySkyward, owner, nil, delta, types.CauseMint, nil),
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
		return transferEvents(receipt, shardID, types.EventTypeLegacySkyward, receipt.PredecessorAccount, types.AccountID(args.ReceiverID), amount, args.Memo), nil

	// A failed ft_transfer_call may refund part or all of the transfer.
	// Skyward's own return value may report that some of the amount was
	// already transferred back, in which case only the remainder reverts.
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
		if receipt.Status == types.ExecutionSuccessValue && receipt.SuccessValueBase64 != "" {
			already, err := decodeReturnedString(receipt.SuccessValueBase64)
			if err != nil {
				return nil, err
			}
			if already != nil {
				amount = new(big.Int).Sub(amount, already)
			}
		}
		return resolveTransferRefund(receipt, shardID, types.EventTypeLegacySkyward, args, amount), nil
	}

	return nil, nil
}

// decodeReturnedString decodes a receipt's base64 success value as a
// JSON-quoted decimal string, the shape ft_resolve_transfer returns to
// report how much of a refund it already settled on its own.
func decodeReturnedString(successValueBase64 string) (*big.Int, error) {
	raw, err := base64.StdEncoding.DecodeString(successValueBase64)
	if err != nil {
		return nil, errors.Wrap(err, "legacy: malformed skyward success value")
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return nil, errors.Wrap(err, "legacy: skyward success value is not a JSON string")
	}
	v, ok := new(big.Int).SetString(asString, 10)
	if !ok {
		return nil, errors.Errorf("legacy: skyward success value is not a base-10 integer: %q", asString)
	}
	return v, nil
}
