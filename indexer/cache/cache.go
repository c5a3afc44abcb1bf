// Package cache implements the process-wide, mutex-protected balance cache
// and inconsistent-contract set shared by every block's reconciler. It
// wraps hashicorp/golang-lru, specialized to the one key/value shape the
// pipeline needs.
package cache

import (
	"math/big"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/log"
)

var logger = log.NewModuleLogger("cache")

// DefaultCapacity is the default balance cache size.
const DefaultCapacity = 100_000

// BalanceCache is the bounded-size associative mapping
// AccountContractKey -> absolute balance, mutex-protected so it can be
// shared across the per-shard collectors of a single block and across
// successive blocks for the lifetime of the process.
type BalanceCache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

// NewBalanceCache builds a balance cache with the given capacity. A
// capacity <= 0 falls back to DefaultCapacity.
func NewBalanceCache(capacity int) (*BalanceCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := lru.New(capacity)
	if err != nil {
		return nil, errors.Wrap(err, "cache: failed to build LRU")
	}
	return &BalanceCache{lru: l}, nil
}

// Get returns the cached absolute balance for key, if present. The mutex is
// held only for the map lookup itself, never across a network call.
func (c *BalanceCache) Get(key types.AccountContractKey) (*big.Int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*big.Int), true
}

// Set stores the absolute balance for key, evicting the least recently used
// entry if the cache is at capacity. Cache coherence requires
// callers to invoke this immediately after a successful event build.
func (c *BalanceCache) Set(key types.AccountContractKey, balance *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, new(big.Int).Set(balance))
}

// Len reports the number of entries currently cached, mostly useful for
// tests and instrumentation.
func (c *BalanceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// InconsistentSet is the process-wide, monotonically-growing set of
// contracts known to be inconsistent. Inconsistency is sticky: once a
// contract is added it is never removed for the lifetime of the process.
type InconsistentSet struct {
	mu   sync.RWMutex
	seen map[types.AccountID]struct{}
}

// NewInconsistentSet builds an InconsistentSet pre-populated with the
// contracts loaded from the sink at start-up.
func NewInconsistentSet(initial []types.AccountID) *InconsistentSet {
	s := &InconsistentSet{seen: make(map[types.AccountID]struct{}, len(initial))}
	for _, c := range initial {
		s.seen[c] = struct{}{}
	}
	logger.Info("loaded inconsistent contracts", "count", len(initial))
	return s
}

// Contains reports whether contract is already known inconsistent.
func (s *InconsistentSet) Contains(contract types.AccountID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[contract]
	return ok
}

// Add marks contract inconsistent. Once added, a contract is never removed
// for the lifetime of the process.
func (s *InconsistentSet) Add(contract types.AccountID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[contract]; !ok {
		logger.Warn("marking contract inconsistent", "contract", contract)
	}
	s.seen[contract] = struct{}{}
}
