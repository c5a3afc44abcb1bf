// Package index computes the composite event index: a 128-bit-wide integer
// with disjoint decimal windows for block time, shard, event type, and
// local position, so indices are strictly ordered by block time first
// regardless of which shard produced them.
package index

import "math/big"

var (
	timestampMultiplier = mustPow10(22)
	shardMultiplier      = mustPow10(7)
	typeMultiplier        = mustPow10(4)
)

func mustPow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// Compute builds one composite event index.
func Compute(blockTimestampMs uint64, shardID uint64, typeTag int, position uint64) *big.Int {
	idx := new(big.Int).Mul(big.NewInt(0).SetUint64(blockTimestampMs), timestampMultiplier)

	shardTerm := new(big.Int).Mul(big.NewInt(0).SetUint64(shardID), shardMultiplier)
	idx.Add(idx, shardTerm)

	typeTerm := new(big.Int).Mul(big.NewInt(int64(typeTag)), typeMultiplier)
	idx.Add(idx, typeTerm)

	idx.Add(idx, new(big.Int).SetUint64(position))
	return idx
}

// Assigner hands out monotonically increasing local positions per
// (shard, event type) pair over the course of one block, a 0-based counter
// per pair. It is not safe for concurrent use; the reconciler drives it
// serially after all shards have finished collecting events.
type Assigner struct {
	counters map[assignerKey]uint64
}

type assignerKey struct {
	shardID uint64
	typeTag int
}

func NewAssigner() *Assigner {
	return &Assigner{counters: make(map[assignerKey]uint64)}
}

// Next returns the composite index for the next event at (shardID, typeTag)
// and advances that pair's counter.
func (a *Assigner) Next(blockTimestampMs uint64, shardID uint64, typeTag int) *big.Int {
	key := assignerKey{shardID: shardID, typeTag: typeTag}
	pos := a.counters[key]
	a.counters[key] = pos + 1
	return Compute(blockTimestampMs, shardID, typeTag, pos)
}
