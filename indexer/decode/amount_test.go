package decode

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    *big.Int
		wantErr bool
	}{
		{"quoted decimal", `"12345"`, big.NewInt(12345), false},
		{"bare integer", `67890`, big.NewInt(67890), false},
		{"quoted zero", `"0"`, big.NewInt(0), false},
		{"null", `null`, big.NewInt(0), false},
		{"quoted non-numeric", `"abc"`, nil, true},
		{"quoted huge number", `"340282366920938463463374607431768211455"`, func() *big.Int {
			v, _ := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
			return v
		}(), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(c.raw), &a)
			if c.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, c.want.Cmp(a.Int))
		})
	}
}

func TestAmount_IsZero(t *testing.T) {
	assert.True(t, Amount{big.NewInt(0)}.IsZero())
	assert.True(t, Amount{}.IsZero())
	assert.False(t, Amount{big.NewInt(1)}.IsZero())
}
