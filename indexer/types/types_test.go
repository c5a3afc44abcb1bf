package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionStatusKind_Succeeded(t *testing.T) {
	cases := []struct {
		name string
		kind ExecutionStatusKind
		want bool
	}{
		{"success value", ExecutionSuccessValue, true},
		{"success receipt id", ExecutionSuccessReceiptID, true},
		{"failure", ExecutionFailure, false},
		{"unknown", ExecutionUnknown, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.kind.Succeeded())
		})
	}
}

func TestExecutionStatusKind_Status(t *testing.T) {
	cases := []struct {
		name string
		kind ExecutionStatusKind
		want Status
	}{
		{"success value", ExecutionSuccessValue, StatusSuccess},
		{"success receipt id", ExecutionSuccessReceiptID, StatusSuccess},
		{"failure", ExecutionFailure, StatusFailure},
		{"unknown", ExecutionUnknown, StatusUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.kind.Status())
		})
	}
}

func TestBlockContext_TimestampMillis(t *testing.T) {
	b := BlockContext{TimestampNanos: 1_500_000_000}
	assert.Equal(t, uint64(1500), b.TimestampMillis())
}

func TestContractRecord_IsInconsistent(t *testing.T) {
	rec := ContractRecord{ContractAccountID: "token.near"}
	assert.False(t, rec.IsInconsistent())

	height := uint64(100)
	rec.InconsistencyFoundAtBlockHeight = &height
	assert.True(t, rec.IsInconsistent())
}
