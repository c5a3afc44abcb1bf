// Package decode implements the log and argument decoders: parsing
// standard EVENT_JSON: log lines into typed mint/transfer/burn
// records, and decoding base64/binary function-call arguments for the
// legacy adapters.
package decode

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/log"
)

var logger = log.NewModuleLogger("decode")

const eventSentinel = "EVENT_JSON:"

const (
	standardNep141 = "nep141"
	standardNep171 = "nep171"
)

type logEnvelope struct {
	Standard string          `json:"standard"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
}

type ftLogItem struct {
	OwnerID    string  `json:"owner_id"`
	OldOwnerID string  `json:"old_owner_id"`
	NewOwnerID string  `json:"new_owner_id"`
	Amount     Amount  `json:"amount"`
	Memo       *string `json:"memo"`
}

type nftLogItem struct {
	OwnerID       string   `json:"owner_id"`
	OldOwnerID    string   `json:"old_owner_id"`
	NewOwnerID    string   `json:"new_owner_id"`
	AuthorizedID  *string  `json:"authorized_id"`
	TokenIDs      []string `json:"token_ids"`
	Memo          *string  `json:"memo"`
}

// HasStandardEventLogs reports whether any log line in logs is a standard
// EVENT_JSON: line, used to decide whether legacy adapters should run for a
// receipt: adapters run only when there are no standard event logs, to
// avoid double-counting.
func HasStandardEventLogs(logs []string) bool {
	for _, l := range logs {
		if strings.HasPrefix(strings.TrimSpace(l), eventSentinel) {
			return true
		}
	}
	return false
}

// ExtractStandardEvents scans a receipt's logs for EVENT_JSON: lines and
// returns the TokenEvents they describe. Unparseable or unrecognized lines
// are dropped with a warning, never fatal.
func ExtractStandardEvents(receipt types.ReceiptOutcome, shardID uint64) []types.TokenEvent {
	var events []types.TokenEvent
	for _, line := range receipt.Logs {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, eventSentinel) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(trimmed, eventSentinel))

		var env logEnvelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			logger.Warn("dropping unparseable EVENT_JSON line", "receipt", receipt.ReceiptID, "err", err)
			continue
		}

		switch env.Standard {
		case standardNep141:
			events = append(events, decodeFtEvent(receipt, shardID, env)...)
		case standardNep171:
			events = append(events, decodeNftEvent(receipt, shardID, env)...)
		default:
			logger.Warn("dropping EVENT_JSON line with unknown standard", "receipt", receipt.ReceiptID, "standard", env.Standard)
		}
	}
	return events
}

func decodeFtEvent(receipt types.ReceiptOutcome, shardID uint64, env logEnvelope) []types.TokenEvent {
	var items []ftLogItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		logger.Warn("dropping unparseable nep141 event data", "receipt", receipt.ReceiptID, "event", env.Event, "err", err)
		return nil
	}

	var cause types.Cause
	switch env.Event {
	case "ft_mint":
		cause = types.CauseMint
	case "ft_transfer":
		cause = types.CauseTransfer
	case "ft_burn":
		cause = types.CauseBurn
	default:
		logger.Warn("dropping nep141 event with unknown event name", "receipt", receipt.ReceiptID, "event", env.Event)
		return nil
	}

	var events []types.TokenEvent
	for _, item := range items {
		if item.Amount.IsZero() {
			continue
		}
		switch cause {
		case types.CauseMint:
			events = append(events, ftTokenEvent(receipt, shardID, types.AccountID(item.OwnerID), nil, item.Amount.Int, types.CauseMint, item.Memo))
		case types.CauseBurn:
			neg := new(big.Int).Neg(item.Amount.Int)
			events = append(events, ftTokenEvent(receipt, shardID, types.AccountID(item.OwnerID), nil, neg, types.CauseBurn, item.Memo))
		case types.CauseTransfer:
			old := types.AccountID(item.OldOwnerID)
			nw := types.AccountID(item.NewOwnerID)
			neg := new(big.Int).Neg(item.Amount.Int)
			events = append(events, ftTokenEvent(receipt, shardID, old, &nw, neg, types.CauseTransfer, item.Memo))
			events = append(events, ftTokenEvent(receipt, shardID, nw, &old, item.Amount.Int, types.CauseTransfer, item.Memo))
		}
	}
	return events
}

func decodeNftEvent(receipt types.ReceiptOutcome, shardID uint64, env logEnvelope) []types.TokenEvent {
	var items []nftLogItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		logger.Warn("dropping unparseable nep171 event data", "receipt", receipt.ReceiptID, "event", env.Event, "err", err)
		return nil
	}

	var cause types.Cause
	switch env.Event {
	case "nft_mint":
		cause = types.CauseMint
	case "nft_transfer":
		cause = types.CauseTransfer
	case "nft_burn":
		cause = types.CauseBurn
	default:
		logger.Warn("dropping nep171 event with unknown event name", "receipt", receipt.ReceiptID, "event", env.Event)
		return nil
	}

	var events []types.TokenEvent
	for _, item := range items {
		var authorized *types.AccountID
		if item.AuthorizedID != nil {
			a := types.AccountID(*item.AuthorizedID)
			authorized = &a
		}
		for _, tokenID := range item.TokenIDs {
			ev := types.TokenEvent{
				ReceiptID: receipt.ReceiptID,
				ShardID:   shardID,
				TypeTag:   types.EventTypeNep171,
				Standard:  types.StandardNFTNep171,
				Cause:     cause,
				Memo:      item.Memo,
				Status:    receipt.Status,
				TokenID:   tokenID,
				Authorized: authorized,
			}
			switch cause {
			case types.CauseMint:
				owner := types.AccountID(item.OwnerID)
				ev.NewOwner = &owner
			case types.CauseBurn:
				owner := types.AccountID(item.OwnerID)
				ev.OldOwner = &owner
			case types.CauseTransfer:
				old := types.AccountID(item.OldOwnerID)
				nw := types.AccountID(item.NewOwnerID)
				ev.OldOwner = &old
				ev.NewOwner = &nw
			}
			events = append(events, ev)
		}
	}
	return events
}

func ftTokenEvent(receipt types.ReceiptOutcome, shardID uint64, affected types.AccountID, involved *types.AccountID, delta *big.Int, cause types.Cause, memo *string) types.TokenEvent {
	return types.TokenEvent{
		ReceiptID: receipt.ReceiptID,
		ShardID:   shardID,
		TypeTag:   types.EventTypeNep141,
		Standard:  types.StandardFTNep141,
		Affected:  affected,
		Involved:  involved,
		Delta:     delta,
		Cause:     cause,
		Memo:      memo,
		Status:    receipt.Status,
	}
}
