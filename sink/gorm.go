// Package sink implements the relational persistence boundary: a
// MySQL-backed Sink exposing chunked inserts, retried inconsistency
// updates (via reconcile.Reconciler's own retry loop) and
// load-inconsistent-contracts-as-of, built on jinzhu/gorm and
// go-sql-driver/mysql.
package sink

import (
	"context"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	"github.com/pkg/errors"

	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/log"
)

var logger = log.NewModuleLogger("sink")

// Sink is the gorm-backed implementation of reconcile.Sink.
type Sink struct {
	db *gorm.DB
}

// Open connects to a MySQL instance via dsn and ensures the schema exists.
// gorm v1 has no context-aware connection API; ctx is accepted for symmetry
// with the rest of the core's collaborators but not threaded further.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sink: failed to open mysql connection")
	}
	db.DB().SetMaxOpenConns(25)
	db.DB().SetMaxIdleConns(5)

	if err := db.AutoMigrate(&coinEventModel{}, &nftEventModel{}, &contractModel{}).Error; err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sink: schema migration failed")
	}
	return &Sink{db: db}, nil
}

func (s *Sink) Close() error {
	return s.db.Close()
}

// InsertCoinEvents inserts one chunk of already-indexed coin event rows.
// The reconciler calls this once per chunk; a failure here is fatal for
// the block.
func (s *Sink) InsertCoinEvents(ctx context.Context, rows []types.CoinEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx := s.db.Begin()
	for _, row := range rows {
		if err := tx.Create(toCoinEventModel(row)).Error; err != nil {
			tx.Rollback()
			return errors.Wrap(err, "sink: failed to insert coin event")
		}
	}
	return tx.Commit().Error
}

func (s *Sink) InsertNftEvents(ctx context.Context, rows []types.NftEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx := s.db.Begin()
	for _, row := range rows {
		if err := tx.Create(toNftEventModel(row)).Error; err != nil {
			tx.Rollback()
			return errors.Wrap(err, "sink: failed to insert nft event")
		}
	}
	return tx.Commit().Error
}

// RegisterContract is an idempotent insert: a repeated registration for
// the same contract is coalesced into a no-op by
// the Where/FirstOrCreate pair below.
func (s *Sink) RegisterContract(ctx context.Context, record types.ContractRecord) error {
	lookup := contractModel{ContractAccountID: string(record.ContractAccountID)}
	create := contractModel{
		ContractAccountID:       string(record.ContractAccountID),
		Standard:                record.Standard,
		FirstEventAtTimestamp:   record.FirstEventAtTimestamp,
		FirstEventAtBlockHeight: record.FirstEventAtBlockHeight,
	}
	if err := s.db.Where(lookup).FirstOrCreate(&create).Error; err != nil {
		return errors.Wrap(err, "sink: failed to register contract")
	}
	return nil
}

// MarkInconsistent persists a contract's inconsistency markers
// (update-on-conflict). The reconciler wraps every call in its own retry
// loop; this method itself does not retry.
func (s *Sink) MarkInconsistent(ctx context.Context, contract types.AccountID, timestamp, height uint64) error {
	err := s.db.Model(&contractModel{}).
		Where("contract_account_id = ?", string(contract)).
		Updates(map[string]interface{}{
			"inconsistency_found_at_timestamp":    timestamp,
			"inconsistency_found_at_block_height": height,
		}).Error
	if err != nil {
		return errors.Wrap(err, "sink: failed to mark contract inconsistent")
	}
	return nil
}

// LoadInconsistentContractsAsOf returns every contract already known
// inconsistent at or before blockHeight, used to seed the in-memory
// InconsistentSet at start-up.
func (s *Sink) LoadInconsistentContractsAsOf(ctx context.Context, blockHeight uint64) ([]types.AccountID, error) {
	var models []contractModel
	err := s.db.
		Where("inconsistency_found_at_block_height IS NOT NULL AND inconsistency_found_at_block_height <= ?", blockHeight).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "sink: failed to load inconsistent contracts")
	}

	ids := make([]types.AccountID, len(models))
	for i, m := range models {
		ids[i] = types.AccountID(m.ContractAccountID)
	}
	logger.Info("loaded persisted inconsistent contracts", "count", len(ids), "as_of_height", blockHeight)
	return ids, nil
}
