package legacy

import (
	"math/big"
	"strings"

	"github.com/near/near-indexer-events/indexer/types"
)

type ftTransferArgs struct {
	ReceiverID string  `json:"receiver_id"`
	Amount     string  `json:"amount"`
	Memo       *string `json:"memo"`
}

type ftRefundArgs struct {
	ReceiverID string  `json:"receiver_id"`
	SenderID   string  `json:"sender_id"`
	Amount     string  `json:"amount"`
	Memo       *string `json:"memo"`
}

func parseAmount(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}

func legacyEvent(receipt types.ReceiptOutcome, shardID uint64, typeTag types.EventTypeTag, affected types.AccountID, involved *types.AccountID, delta *big.Int, cause types.Cause, memo *string) types.TokenEvent {
	return types.TokenEvent{
		ReceiptID: receipt.ReceiptID,
		ShardID:   shardID,
		TypeTag:   typeTag,
		Standard:  types.StandardFTLegacy,
		Affected:  affected,
		Involved:  involved,
		Delta:     delta,
		Cause:     cause,
		Memo:      memo,
		Status:    receipt.Status,
	}
}

// transferEvents builds the two-sided TRANSFER pair shared by every legacy
// ft_transfer/ft_transfer_call handler: the sender loses delta, the
// receiver gains it.
func transferEvents(receipt types.ReceiptOutcome, shardID uint64, typeTag types.EventTypeTag, sender, receiver types.AccountID, delta *big.Int, memo *string) []types.TokenEvent {
	neg := new(big.Int).Neg(delta)
	return []types.TokenEvent{
		legacyEvent(receipt, shardID, typeTag, sender, &receiver, neg, types.CauseTransfer, memo),
		legacyEvent(receipt, shardID, typeTag, receiver, &sender, delta, types.CauseTransfer, memo),
	}
}

// resolveTransferRefund implements the `ft_resolve_transfer` refund logic
// shared by the wrap-near and Skyward adapters: an empty log set means the
// transfer completed and there is nothing to revert; the
// "account of the sender was deleted" log burns the refunded amount from
// the receiver since there is no sender left to credit; any log starting
// with "Refund " reverses the transfer back from receiver to sender. amount
// is the refund amount already decided by the caller -- wrap-near's args
// carry it directly, Skyward's must first be reduced by whatever the
// contract already transferred back on its own.
func resolveTransferRefund(receipt types.ReceiptOutcome, shardID uint64, typeTag types.EventTypeTag, args ftRefundArgs, amount *big.Int) []types.TokenEvent {
	if len(receipt.Logs) == 0 {
		return nil
	}
	if amount.Sign() == 0 {
		return nil
	}
	receiverID := types.AccountID(args.ReceiverID)
	senderID := types.AccountID(args.SenderID)
	neg := new(big.Int).Neg(amount)

	for _, l := range receipt.Logs {
		if l == "The account of the sender was deleted" {
			return []types.TokenEvent{
				legacyEvent(receipt, shardID, typeTag, receiverID, nil, neg, types.CauseBurn, args.Memo),
			}
		}
		if strings.HasPrefix(l, "Refund ") {
			return []types.TokenEvent{
				legacyEvent(receipt, shardID, typeTag, receiverID, &senderID, neg, types.CauseTransfer, args.Memo),
				legacyEvent(receipt, shardID, typeTag, senderID, &receiverID, amount, types.CauseTransfer, args.Memo),
			}
		}
	}
	return nil
}
