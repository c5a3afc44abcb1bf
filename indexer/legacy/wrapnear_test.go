package legacy

import (
	"context"
	"encoding/base64"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/near-indexer-events/indexer/types"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func functionCall(method, argsJSON string, deposit int64) types.Action {
	return types.Action{
		Kind:       types.ActionFunctionCall,
		MethodName: method,
		ArgsBase64: b64(argsJSON),
		Deposit:    big.NewInt(deposit),
	}
}

func TestCollectWrapNear_StorageDepositIgnored(t *testing.T) {
	receipt := types.ReceiptOutcome{
		ReceiptID: "r1",
		Status:    types.ExecutionSuccessValue,
		Actions:   []types.Action{functionCall("storage_deposit", `{}`, 1250000000000000000)},
	}
	events, err := collectWrapNear(context.Background(), Deps{}, types.BlockContext{}, 0, receipt)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCollectWrapNear_NearDepositMints(t *testing.T) {
	receipt := types.ReceiptOutcome{
		ReceiptID:          "r1",
		PredecessorAccount: "alice.near",
		Status:             types.ExecutionSuccessValue,
		Actions:            []types.Action{functionCall("near_deposit", `{}`, 500)},
	}
	events, err := collectWrapNear(context.Background(), Deps{}, types.BlockContext{}, 0, receipt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.CauseMint, events[0].Cause)
	assert.Equal(t, types.AccountID("alice.near"), events[0].Affected)
	assert.Equal(t, int64(500), events[0].Delta.Int64())
}

func TestCollectWrapNear_FtTransferProducesPair(t *testing.T) {
	receipt := types.ReceiptOutcome{
		ReceiptID:          "r1",
		PredecessorAccount: "alice.near",
		Status:             types.ExecutionSuccessValue,
		Actions:            []types.Action{functionCall("ft_transfer", `{"receiver_id":"bob.near","amount":"300"}`, 1)},
	}
	events, err := collectWrapNear(context.Background(), Deps{}, types.BlockContext{}, 0, receipt)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.AccountID("alice.near"), events[0].Affected)
	assert.Equal(t, int64(-300), events[0].Delta.Int64())
	assert.Equal(t, types.AccountID("bob.near"), events[1].Affected)
	assert.Equal(t, int64(300), events[1].Delta.Int64())
}

func TestCollectWrapNear_FtResolveTransferRefund(t *testing.T) {
	receipt := types.ReceiptOutcome{
		ReceiptID: "r1",
		Status:    types.ExecutionSuccessValue,
		Logs:      []string{"Refund 200 from bob.near to alice.near"},
		Actions: []types.Action{
			functionCall("ft_resolve_transfer", `{"receiver_id":"bob.near","sender_id":"alice.near","amount":"200"}`, 0),
		},
	}
	events, err := collectWrapNear(context.Background(), Deps{}, types.BlockContext{}, 0, receipt)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestCollectWrapNear_NearWithdrawBurns(t *testing.T) {
	receipt := types.ReceiptOutcome{
		ReceiptID:          "r1",
		PredecessorAccount: "alice.near",
		Status:             types.ExecutionSuccessValue,
		Actions:            []types.Action{functionCall("near_withdraw", `{"amount":"150"}`, 1)},
	}
	events, err := collectWrapNear(context.Background(), Deps{}, types.BlockContext{}, 0, receipt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.CauseBurn, events[0].Cause)
	assert.Equal(t, int64(-150), events[0].Delta.Int64())
}
