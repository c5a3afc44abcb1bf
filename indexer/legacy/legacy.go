// Package legacy implements the legacy (non-standard) contract adapters: a
// handful of pre-NEP-141 contracts whose balance-changing methods never
// emit EVENT_JSON logs, and which must be special-cased by executor
// account and method name instead of decoded generically.
//
// Adapters are modeled as values of one type held in a table keyed by
// executor account, rather than as an interface hierarchy: adding a new
// legacy contract is adding one more table entry, never touching the
// dispatch code. Adapters depend on the oracle and cache; nothing outside
// this package depends back on it.
package legacy

import (
	"context"

	"github.com/near/near-indexer-events/indexer/cache"
	"github.com/near/near-indexer-events/indexer/oracle"
	"github.com/near/near-indexer-events/indexer/types"
)

// Deps bundles the collaborators an adapter needs when it must reach past
// the normal decode-then-build flow: Skyward's `new` seeds the balance
// cache directly before any event is built, and Aurora's `withdraw` falls
// back to an end-of-block balance diff when its binary arguments are
// absent.
type Deps struct {
	Oracle   *oracle.Client
	Balances *cache.BalanceCache
}

// Adapter resolves one legacy contract's non-standard methods into
// TokenEvents for a single receipt.
type Adapter struct {
	ExecutorAccount types.AccountID
	Collect         func(ctx context.Context, deps Deps, block types.BlockContext, shardID uint64, receipt types.ReceiptOutcome) ([]types.TokenEvent, error)
}

// Registry dispatches a receipt to the adapter matching its executor
// account, if any is registered.
type Registry struct {
	byExecutor map[types.AccountID]Adapter
}

// NewRegistry builds the registry of known legacy contracts: the
// wrap-near pattern, Aurora, and Skyward.
func NewRegistry() *Registry {
	r := &Registry{byExecutor: make(map[types.AccountID]Adapter)}
	for _, a := range []Adapter{wrapNearAdapter(), auroraAdapter(), skywardAdapter()} {
		r.byExecutor[a.ExecutorAccount] = a
	}
	return r
}

// Collect runs the adapter registered for receipt's executor account, if
// any, skipping receipts that already carried standard EVENT_JSON logs of
// their own: legacy adapters run only where the standard decoder found
// nothing, so a contract that emits both is never double-counted.
func (r *Registry) Collect(ctx context.Context, deps Deps, block types.BlockContext, shardID uint64, receipt types.ReceiptOutcome, hasStandardEvents bool) ([]types.TokenEvent, error) {
	if hasStandardEvents {
		return nil, nil
	}
	a, ok := r.byExecutor[receipt.ExecutorAccount]
	if !ok {
		return nil, nil
	}
	return a.Collect(ctx, deps, block, shardID, receipt)
}
