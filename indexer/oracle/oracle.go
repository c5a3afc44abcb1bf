// Package oracle implements the balance oracle client: a cache-in-front,
// retry-with-backoff wrapper over a contract view-call.
package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"math/big"

	"github.com/near/near-indexer-events/indexer/cache"
	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/log"
)

var logger = log.NewModuleLogger("oracle")

// ViewCaller is the external RPC collaborator this client wraps. It is
// supplied by the caller; the core never implements its own RPC transport.
type ViewCaller interface {
	CallView(ctx context.Context, contract, method string, argsJSON []byte, blockHash string) ([]byte, error)
}

// ErrContractAbsent is returned when the view call fails because the
// contract does not exist or does not implement ft_balance_of at all.
// This is permanent at this block height.
var ErrContractAbsent = errors.New("oracle: contract absent")

// ErrOracleUnavailable is returned once retries are exhausted for a
// transient failure.
var ErrOracleUnavailable = errors.New("oracle: unavailable after retries")

// Config controls the retry/backoff policy.
type Config struct {
	Capacity      int
	RetryAttempts uint64
	RetryInitial  time.Duration
	RetryMax      time.Duration
}

// DefaultConfig returns the documented default retry/backoff policy.
func DefaultConfig() Config {
	return Config{
		Capacity:      cache.DefaultCapacity,
		RetryAttempts: 10,
		RetryInitial:  100 * time.Millisecond,
		RetryMax:      120 * time.Second,
	}
}

// Client is the balance oracle: cache.BalanceCache in front of a ViewCaller,
// with classification and retry on miss.
type Client struct {
	rpc   ViewCaller
	cache *cache.BalanceCache
	cfg   Config
}

// NewClient builds an oracle Client. balances may be shared with the rest
// of the pipeline: the balance cache is shared across the whole run.
func NewClient(rpc ViewCaller, balances *cache.BalanceCache, cfg Config) *Client {
	return &Client{rpc: rpc, cache: balances, cfg: cfg}
}

type balanceOfRequest struct {
	AccountID string `json:"account_id"`
}

// Balance resolves (account, contract)'s balance at blockHash: a cache hit
// returns immediately, a miss issues a view call to ft_balance_of and
// writes the result through to the cache.
func (c *Client) Balance(ctx context.Context, account, contract types.AccountID, blockHash string) (*big.Int, error) {
	key := types.AccountContractKey{Account: account, Contract: contract}
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	balance, err := c.fetchWithRetry(ctx, account, contract, blockHash)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, balance)
	return balance, nil
}

// PriorBalance is semantically "the balance just before this block" -- same
// signature as Balance, callers pass the block's prev-hash.
func (c *Client) PriorBalance(ctx context.Context, account, contract types.AccountID, prevBlockHash string) (*big.Int, error) {
	return c.Balance(ctx, account, contract, prevBlockHash)
}

// BalanceAtEnd queries the end-of-block balance directly from the oracle,
// bypassing the cache, for the reconciler's consistency check. It
// deliberately does not consult or populate the cache:
// the cache holds intra-block reconstructed state, while this is the
// authoritative post-block RPC value used only to validate it.
func (c *Client) BalanceAtEnd(ctx context.Context, contract, account types.AccountID, blockHash string) (*big.Int, error) {
	return c.fetchWithRetry(ctx, account, contract, blockHash)
}

func (c *Client) fetchWithRetry(ctx context.Context, account, contract types.AccountID, blockHash string) (*big.Int, error) {
	argsJSON, err := marshalBalanceOfArgs(account)
	if err != nil {
		return nil, errors.Wrap(err, "oracle: failed to marshal ft_balance_of args")
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryInitial
	bo.MaxInterval = c.cfg.RetryMax
	bo.MaxElapsedTime = 0 // bounded by attempt count, not elapsed time
	bo.Multiplier = 2

	var attempts uint64
	var result *big.Int
	operation := func() error {
		attempts++
		resp, callErr := c.rpc.CallView(ctx, string(contract), "ft_balance_of", argsJSON, blockHash)
		if callErr == nil {
			parsed, parseErr := parseBalanceResponse(resp)
			if parseErr != nil {
				return backoff.Permanent(errors.Wrap(parseErr, "oracle: malformed ft_balance_of response"))
			}
			result = parsed
			return nil
		}

		if isContractAbsent(callErr) {
			return backoff.Permanent(ErrContractAbsent)
		}

		logger.Warn("retrying ft_balance_of", "account", account, "contract", contract, "attempt", attempts, "err", callErr)
		if attempts >= c.cfg.RetryAttempts {
			return backoff.Permanent(ErrOracleUnavailable)
		}
		return callErr
	}

	if err := backoff.Retry(operation, bo); err != nil {
		if errors.Is(err, ErrContractAbsent) {
			return nil, ErrContractAbsent
		}
		if errors.Is(err, ErrOracleUnavailable) {
			logger.Error("oracle unavailable after exhausting retries", "account", account, "contract", contract, "attempts", attempts)
			return nil, ErrOracleUnavailable
		}
		return nil, err
	}
	return result, nil
}

func marshalBalanceOfArgs(account types.AccountID) ([]byte, error) {
	return jsonMarshal(balanceOfRequest{AccountID: string(account)})
}

// isContractAbsent classifies a view-call error as permanent: the error
// text contains CodeDoesNotExist or MethodNotFound.
func isContractAbsent(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "CodeDoesNotExist") || strings.Contains(msg, "MethodNotFound")
}

// parseBalanceResponse accepts either a JSON-encoded string or a bare
// integer.
func parseBalanceResponse(body []byte) (*big.Int, error) {
	return parseU128Response(body)
}
