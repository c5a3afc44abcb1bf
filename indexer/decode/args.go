package decode

import (
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/near/near-indexer-events/indexer/types"
)

// DecodeFunctionCallArgs base64-decodes a function-call argument payload.
func DecodeFunctionCallArgs(argsBase64 string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(argsBase64)
	if err != nil {
		return nil, errors.Wrap(err, "decode: invalid base64 function-call args")
	}
	return raw, nil
}

// UnmarshalArgs JSON-decodes a legacy adapter's argument struct. A parse
// failure on a failed receipt is swallowed (returns ok=false, err=nil); a
// parse failure on a successful receipt is fatal (returns err).
func UnmarshalArgs(raw []byte, status types.ExecutionStatusKind, v interface{}) (ok bool, err error) {
	if err := json.Unmarshal(raw, v); err != nil {
		if !status.Succeeded() {
			return false, nil
		}
		return false, errors.Wrap(err, "decode: fatal argument parse failure on successful receipt")
	}
	return true, nil
}

// AuroraWithdrawArgsLen is the fixed length of Aurora's binary `withdraw`
// argument: a 20-byte recipient address followed by a little-endian u128
// amount.
const AuroraWithdrawArgsLen = 20 + 16

// DecodeAuroraWithdrawArgs decodes the binary form of Aurora's `withdraw`
// call arguments. It returns ok=false (no error) when the payload isn't the
// expected length, since Aurora's withdraw historically also ships with no
// usable argument payload at all -- callers fall back to the end-of-block
// balance diff in that case.
func DecodeAuroraWithdrawArgs(raw []byte) (recipient [20]byte, amount *big.Int, ok bool) {
	if len(raw) != AuroraWithdrawArgsLen {
		return recipient, nil, false
	}
	copy(recipient[:], raw[:20])
	amount = new(big.Int).SetBytes(reverseBytes(raw[20:]))
	return recipient, amount, true
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
