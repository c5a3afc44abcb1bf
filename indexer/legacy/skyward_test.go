package legacy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/near-indexer-events/indexer/types"
)

func TestCollectSkyward_NewSeedsCacheAndMints(t *testing.T) {
	deps := newTestDeps(t, nil)
	receipt := types.ReceiptOutcome{
		ReceiptID: "r1",
		Status:    types.ExecutionSuccessValue,
		Actions:   []types.Action{functionCall("new", `{"owner_id":"owner.near","total_supply":"1000000"}`, 0)},
	}
	events, err := collectSkyward(context.Background(), deps, types.BlockContext{}, 0, receipt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.CauseMint, events[0].Cause)
	assert.Equal(t, types.AccountID("owner.near"), events[0].Affected)
	assert.Equal(t, int64(1000000), events[0].Delta.Int64())

	v, ok := deps.Balances.Get(types.AccountContractKey{Account: "owner.near", Contract: skywardAccount})
	require.True(t, ok)
	assert.Equal(t, int64(0), v.Int64())
}

func TestCollectSkyward_FtResolveTransferAdjustsForAlreadySettled(t *testing.T) {
	alreadyReturned, err := json.Marshal("50")
	require.NoError(t, err)
	successValue := base64.StdEncoding.EncodeToString(alreadyReturned)

	receipt := types.ReceiptOutcome{
		ReceiptID:          "r1",
		Status:             types.ExecutionSuccessValue,
		SuccessValueBase64: successValue,
		Logs:               []string{"Refund 150 from bob.near to alice.near"},
		Actions: []types.Action{
			functionCall("ft_resolve_transfer", `{"receiver_id":"bob.near","sender_id":"alice.near","amount":"200"}`, 0),
		},
	}
	events, err := collectSkyward(context.Background(), Deps{}, types.BlockContext{}, 0, receipt)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Remaining refund amount is 200 - 50 = 150.
	assert.Equal(t, int64(-150), events[0].Delta.Int64())
	assert.Equal(t, int64(150), events[1].Delta.Int64())
}

func TestDecodeReturnedString(t *testing.T) {
	raw, err := json.Marshal("4242")
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)

	v, err := decodeReturnedString(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(4242), v.Int64())

	_, err = decodeReturnedString("not-base64!!!")
	assert.Error(t, err)
}
