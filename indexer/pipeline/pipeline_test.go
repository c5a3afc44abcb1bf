package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/near-indexer-events/indexer/builder"
	"github.com/near/near-indexer-events/indexer/cache"
	"github.com/near/near-indexer-events/indexer/legacy"
	"github.com/near/near-indexer-events/indexer/oracle"
	"github.com/near/near-indexer-events/indexer/reconcile"
	"github.com/near/near-indexer-events/indexer/types"
)

// fakeViewCaller is keyed per account so that concurrent shards querying
// different accounts never race over a single shared call-order counter;
// only calls for the same account need to be ordered relative to each other.
type fakeViewCaller struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
}

type fakeResponse struct {
	body []byte
	err  error
}

func (f *fakeViewCaller) CallView(ctx context.Context, contract, method string, argsJSON []byte, blockHash string) ([]byte, error) {
	var args struct {
		AccountID string `json:"account_id"`
	}
	_ = json.Unmarshal(argsJSON, &args)

	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.responses[args.AccountID]
	if len(queue) == 0 {
		return []byte(`"0"`), nil
	}
	r := queue[0]
	f.responses[args.AccountID] = queue[1:]
	return r.body, r.err
}

type fakeSink struct {
	registered  []types.ContractRecord
	coinBatches [][]types.CoinEventRow
	nftBatches  [][]types.NftEventRow
}

func (s *fakeSink) RegisterContract(ctx context.Context, record types.ContractRecord) error {
	s.registered = append(s.registered, record)
	return nil
}

func (s *fakeSink) MarkInconsistent(ctx context.Context, contract types.AccountID, timestamp, height uint64) error {
	return nil
}

func (s *fakeSink) InsertCoinEvents(ctx context.Context, rows []types.CoinEventRow) error {
	s.coinBatches = append(s.coinBatches, rows)
	return nil
}

func (s *fakeSink) InsertNftEvents(ctx context.Context, rows []types.NftEventRow) error {
	s.nftBatches = append(s.nftBatches, rows)
	return nil
}

func newTestPipeline(t *testing.T, responses map[string][]fakeResponse) (*Pipeline, *fakeSink, *cache.InconsistentSet) {
	balances, err := cache.NewBalanceCache(64)
	require.NoError(t, err)
	inconsistent := cache.NewInconsistentSet(nil)
	if responses == nil {
		responses = map[string][]fakeResponse{}
	}
	rpc := &fakeViewCaller{responses: responses}
	o := oracle.NewClient(rpc, balances, oracle.Config{
		Capacity:      64,
		RetryAttempts: 2,
		RetryInitial:  time.Millisecond,
		RetryMax:      5 * time.Millisecond,
	})
	b := builder.NewBuilder(o, balances, inconsistent)
	l := legacy.NewRegistry()
	sink := &fakeSink{}
	r := reconcile.New(sink, o, inconsistent, reconcile.DefaultConfig())
	return New(b, l, o, balances, inconsistent, r), sink, inconsistent
}

func standardMintReceipt(id string) types.ReceiptOutcome {
	return types.ReceiptOutcome{
		ReceiptID:       id,
		ExecutorAccount: "usdc.near",
		Status:          types.ExecutionSuccessValue,
		Logs: []string{
			`EVENT_JSON:{"standard":"nep141","event":"ft_mint","data":[{"owner_id":"alice.near","amount":"1000"}]}`,
		},
	}
}

func TestProcessBlock_StandardMintEndToEnd(t *testing.T) {
	p, sink, _ := newTestPipeline(t, map[string][]fakeResponse{
		"alice.near": {
			{body: []byte(`"0"`)},    // prior balance for the mint
			{body: []byte(`"1000"`)}, // end-of-block consistency check
		},
	})

	block := types.BlockContext{
		Height:         5,
		Hash:           "h5",
		PrevHash:       "h4",
		TimestampNanos: 1_000_000_000,
		Shards: []types.Shard{
			{ShardID: 0, Receipts: []types.ReceiptOutcome{standardMintReceipt("r1")}},
		},
	}

	err := p.ProcessBlock(context.Background(), block)
	require.NoError(t, err)
	require.Len(t, sink.coinBatches, 1)
	require.Len(t, sink.coinBatches[0], 1)
	assert.Equal(t, int64(1000), sink.coinBatches[0][0].AbsoluteAmount.Int64())
}

func TestProcessBlock_StickyInconsistencySkipsContract(t *testing.T) {
	p, sink, inconsistent := newTestPipeline(t, nil)
	inconsistent.Add("usdc.near")

	block := types.BlockContext{
		Height: 5,
		Hash:   "h5",
		Shards: []types.Shard{
			{ShardID: 0, Receipts: []types.ReceiptOutcome{standardMintReceipt("r1")}},
		},
	}

	err := p.ProcessBlock(context.Background(), block)
	require.NoError(t, err)
	assert.Empty(t, sink.registered, "a sticky-inconsistent contract's receipts must never reach the builder or the sink")
}

func TestProcessBlock_ZeroDeltaEventsAreFiltered(t *testing.T) {
	p, sink, _ := newTestPipeline(t, nil)

	receipt := types.ReceiptOutcome{
		ReceiptID:       "r1",
		ExecutorAccount: "usdc.near",
		Status:          types.ExecutionSuccessValue,
		Logs: []string{
			`EVENT_JSON:{"standard":"nep141","event":"ft_mint","data":[{"owner_id":"alice.near","amount":"0"}]}`,
		},
	}
	block := types.BlockContext{
		Height: 5,
		Hash:   "h5",
		Shards: []types.Shard{
			{ShardID: 0, Receipts: []types.ReceiptOutcome{receipt}},
		},
	}

	err := p.ProcessBlock(context.Background(), block)
	require.NoError(t, err)
	assert.Empty(t, sink.coinBatches, "a zero-delta event must never reach the sink")
}

func TestProcessBlock_NftEventsRouteToNftBatch(t *testing.T) {
	p, sink, _ := newTestPipeline(t, nil)

	receipt := types.ReceiptOutcome{
		ReceiptID:       "r1",
		ExecutorAccount: "nft.near",
		Status:          types.ExecutionSuccessValue,
		Logs: []string{
			`EVENT_JSON:{"standard":"nep171","event":"nft_mint","data":[{"owner_id":"alice.near","token_ids":["1"]}]}`,
		},
	}
	block := types.BlockContext{
		Height: 5,
		Hash:   "h5",
		Shards: []types.Shard{
			{ShardID: 0, Receipts: []types.ReceiptOutcome{receipt}},
		},
	}

	err := p.ProcessBlock(context.Background(), block)
	require.NoError(t, err)
	require.Len(t, sink.nftBatches, 1)
	require.Len(t, sink.nftBatches[0], 1)
	assert.Equal(t, "1", sink.nftBatches[0][0].TokenID)
	assert.Empty(t, sink.coinBatches, "an NFT-only receipt must never produce a coin batch")
}

func TestProcessBlock_MergesShardsInOrder(t *testing.T) {
	p, sink, _ := newTestPipeline(t, map[string][]fakeResponse{
		"alice.near": {
			{body: []byte(`"0"`)},
			{body: []byte(`"1000"`)},
		},
		"bob.near": {
			{body: []byte(`"0"`)},
			{body: []byte(`"2000"`)},
		},
	})

	block := types.BlockContext{
		Height: 5,
		Hash:   "h5",
		Shards: []types.Shard{
			{ShardID: 0, Receipts: []types.ReceiptOutcome{{
				ReceiptID:       "r-shard0",
				ExecutorAccount: "usdc.near",
				Status:          types.ExecutionSuccessValue,
				Logs:            []string{`EVENT_JSON:{"standard":"nep141","event":"ft_mint","data":[{"owner_id":"alice.near","amount":"1000"}]}`},
			}}},
			{ShardID: 1, Receipts: []types.ReceiptOutcome{{
				ReceiptID:       "r-shard1",
				ExecutorAccount: "usdc.near",
				Status:          types.ExecutionSuccessValue,
				Logs:            []string{`EVENT_JSON:{"standard":"nep141","event":"ft_mint","data":[{"owner_id":"bob.near","amount":"2000"}]}`},
			}}},
		},
	}

	err := p.ProcessBlock(context.Background(), block)
	require.NoError(t, err)
	require.Len(t, sink.coinBatches, 1)
	require.Len(t, sink.coinBatches[0], 2)
	assert.Equal(t, "r-shard0", sink.coinBatches[0][0].ReceiptID)
	assert.Equal(t, "r-shard1", sink.coinBatches[0][1].ReceiptID)
}
