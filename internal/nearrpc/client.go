// Package nearrpc is the thin JSON-RPC transport adapter that satisfies
// oracle.ViewCaller for a real deployment. The core itself never implements
// RPC transport; this package exists only so
// cmd/nearindexerevents has something concrete to construct. It is
// deliberately minimal: one method, no connection pooling policy beyond
// what net/http already provides, and no retry logic of its own -- retries
// belong to indexer/oracle, not this client.
package nearrpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Client calls a NEAR JSON-RPC endpoint's "query" method with
// request_type "call_function".
type Client struct {
	endpoint string
	http     *http.Client
}

func New(endpoint string) *Client {
	return &Client{endpoint: endpoint, http: &http.Client{}}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type queryParams struct {
	RequestType string `json:"request_type"`
	BlockID     string `json:"block_id"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Name    string          `json:"name"`
	Cause   json.RawMessage `json:"cause"`
	Message string          `json:"message"`
}

type callFunctionResult struct {
	Result []byte `json:"result"`
}

// CallView implements oracle.ViewCaller.
func (c *Client) CallView(ctx context.Context, contract, method string, argsJSON []byte, blockHash string) ([]byte, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "near-indexer-events",
		Method:  "query",
		Params: queryParams{
			RequestType: "call_function",
			BlockID:     blockHash,
			AccountID:   contract,
			MethodName:  method,
			ArgsBase64:  base64.StdEncoding.EncodeToString(argsJSON),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "nearrpc: failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "nearrpc: failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "nearrpc: request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "nearrpc: failed to read response")
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, errors.Wrap(err, "nearrpc: malformed response envelope")
	}
	if rpcResp.Error != nil {
		return nil, errors.Errorf("nearrpc: %s: %s", rpcResp.Error.Name, rpcResp.Error.Message)
	}

	var callResult callFunctionResult
	if err := json.Unmarshal(rpcResp.Result, &callResult); err != nil {
		return nil, errors.Wrap(err, "nearrpc: malformed call_function result")
	}
	return callResult.Result, nil
}
