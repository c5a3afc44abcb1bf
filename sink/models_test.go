package sink

import (
	"database/sql"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/near-indexer-events/indexer/types"
)

func TestToCoinEventModel_CopiesAllFields(t *testing.T) {
	involved := types.AccountID("bob.near")
	memo := "hello"
	row := types.CoinEventRow{
		EventIndex:        big.NewInt(12345),
		Standard:          types.StandardFTNep141,
		ReceiptID:         "r1",
		BlockHeight:       10,
		BlockTimestamp:    1000,
		ContractAccountID: "usdc.near",
		AffectedAccountID: "alice.near",
		InvolvedAccountID: &involved,
		DeltaAmount:       big.NewInt(-500),
		AbsoluteAmount:    big.NewInt(1500),
		Cause:             types.CauseTransfer,
		StatusStr:         types.StatusSuccess,
		EventMemo:         &memo,
	}

	m := toCoinEventModel(row)
	assert.Equal(t, "12345", m.EventIndex)
	assert.Equal(t, "usdc.near", m.ContractAccountID)
	assert.Equal(t, "alice.near", m.AffectedAccountID)
	assert.True(t, m.InvolvedAccountID.Valid)
	assert.Equal(t, "bob.near", m.InvolvedAccountID.String)
	assert.Equal(t, "-500", m.DeltaAmount)
	assert.Equal(t, "1500", m.AbsoluteAmount)
	assert.True(t, m.EventMemo.Valid)
}

func TestToCoinEventModel_NilOptionalFields(t *testing.T) {
	row := types.CoinEventRow{
		EventIndex:     big.NewInt(1),
		DeltaAmount:    big.NewInt(0),
		AbsoluteAmount: big.NewInt(0),
	}
	m := toCoinEventModel(row)
	assert.False(t, m.InvolvedAccountID.Valid)
	assert.False(t, m.EventMemo.Valid)
}

func TestToNftEventModel(t *testing.T) {
	oldOwner := types.AccountID("alice.near")
	newOwner := types.AccountID("bob.near")
	row := types.NftEventRow{
		EventIndex:        big.NewInt(99),
		ReceiptID:         "r2",
		ContractAccountID: "nft.near",
		TokenID:           "7",
		Cause:             types.CauseTransfer,
		StatusStr:         types.StatusSuccess,
		OldOwner:          &oldOwner,
		NewOwner:          &newOwner,
	}
	m := toNftEventModel(row)
	assert.Equal(t, "99", m.EventIndex)
	assert.Equal(t, "7", m.TokenID)
	assert.True(t, m.OldOwnerAccountID.Valid)
	assert.Equal(t, "alice.near", m.OldOwnerAccountID.String)
	assert.True(t, m.NewOwnerAccountID.Valid)
	assert.False(t, m.AuthorizedAccountID.Valid)
}

func TestContractModel_ToRecord(t *testing.T) {
	m := contractModel{
		ContractAccountID:       "usdc.near",
		Standard:                types.StandardFTNep141,
		FirstEventAtTimestamp:   1000,
		FirstEventAtBlockHeight: 5,
	}
	rec := m.toRecord()
	assert.Equal(t, types.AccountID("usdc.near"), rec.ContractAccountID)
	assert.False(t, rec.IsInconsistent())
}

func TestContractModel_ToRecord_Inconsistent(t *testing.T) {
	m := contractModel{
		ContractAccountID:               "bad.near",
		InconsistencyFoundAtBlockHeight: sql.NullInt64{Int64: 42, Valid: true},
		InconsistencyFoundAtTimestamp:   sql.NullInt64{Int64: 5000, Valid: true},
	}
	rec := m.toRecord()
	require.True(t, rec.IsInconsistent())
	require.Equal(t, uint64(42), *rec.InconsistencyFoundAtBlockHeight)
	require.Equal(t, uint64(5000), *rec.InconsistencyFoundAtTimestamp)
}
