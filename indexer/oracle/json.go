package oracle

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"
)

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// parseU128Response accepts either a JSON-quoted decimal string (the usual
// ft_balance_of response) or a bare JSON integer.
func parseU128Response(body []byte) (*big.Int, error) {
	var asString string
	if err := json.Unmarshal(body, &asString); err == nil {
		v, ok := new(big.Int).SetString(asString, 10)
		if !ok {
			return nil, errors.Errorf("oracle: response string is not a base-10 integer: %q", asString)
		}
		return v, nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(body, &asNumber); err != nil {
		return nil, errors.Wrap(err, "oracle: response is neither a quoted decimal nor an integer")
	}
	v, ok := new(big.Int).SetString(asNumber.String(), 10)
	if !ok {
		return nil, errors.Errorf("oracle: response number is not a base-10 integer: %q", asNumber.String())
	}
	return v, nil
}
