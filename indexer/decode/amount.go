package decode

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"
)

// Amount unmarshals a NEAR token amount, which arrives either as a
// JSON-quoted decimal string or a bare integer. Internally it is always an
// arbitrary-precision integer.
type Amount struct {
	*big.Int
}

// UnmarshalJSON accepts both `"123"` and `123`.
func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		a.Int = big.NewInt(0)
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return errors.Wrap(err, "amount: invalid quoted decimal")
		}
		return a.fromString(s)
	}
	return a.fromString(string(trimmed))
}

func (a *Amount) fromString(s string) error {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errors.Errorf("amount: not a base-10 integer: %q", s)
	}
	a.Int = v
	return nil
}

// IsZero reports whether the amount equals zero, used by the rule that
// skips zero-delta events entirely.
func (a Amount) IsZero() bool {
	return a.Int == nil || a.Int.Sign() == 0
}
