package sink

import (
	"database/sql"

	"github.com/near/near-indexer-events/indexer/types"
)

// Every amount field is persisted as a decimal string: gorm's MySQL dialect
// has no native arbitrary-precision integer column, and the core requires
// big-integer fidelity for delta/absolute amounts and the event index.

type coinEventModel struct {
	EventIndex         string         `gorm:"column:event_index;primary_key;size:40"`
	Standard           string         `gorm:"column:standard;index;size:32"`
	ReceiptID          string         `gorm:"column:receipt_id;index;size:64"`
	BlockHeight        uint64         `gorm:"column:block_height;index"`
	BlockTimestamp     uint64         `gorm:"column:block_timestamp"`
	ContractAccountID  string         `gorm:"column:contract_account_id;index;size:128"`
	AffectedAccountID  string         `gorm:"column:affected_account_id;index;size:128"`
	InvolvedAccountID  sql.NullString `gorm:"column:involved_account_id;size:128"`
	DeltaAmount        string         `gorm:"column:delta_amount;size:40"`
	AbsoluteAmount     string         `gorm:"column:absolute_amount;size:40"`
	Cause              string         `gorm:"column:cause;size:16"`
	Status             string         `gorm:"column:status;size:16"`
	EventMemo          sql.NullString `gorm:"column:event_memo;size:1024"`
}

func (coinEventModel) TableName() string { return "coin_events" }

func toCoinEventModel(row types.CoinEventRow) *coinEventModel {
	m := &coinEventModel{
		EventIndex:        row.EventIndex.String(),
		Standard:          row.Standard,
		ReceiptID:         row.ReceiptID,
		BlockHeight:       row.BlockHeight,
		BlockTimestamp:    row.BlockTimestamp,
		ContractAccountID: string(row.ContractAccountID),
		AffectedAccountID: string(row.AffectedAccountID),
		DeltaAmount:       row.DeltaAmount.String(),
		AbsoluteAmount:    row.AbsoluteAmount.String(),
		Cause:             string(row.Cause),
		Status:            string(row.StatusStr),
	}
	if row.InvolvedAccountID != nil {
		m.InvolvedAccountID = sql.NullString{String: string(*row.InvolvedAccountID), Valid: true}
	}
	if row.EventMemo != nil {
		m.EventMemo = sql.NullString{String: *row.EventMemo, Valid: true}
	}
	return m
}

type nftEventModel struct {
	EventIndex         string         `gorm:"column:event_index;primary_key;size:40"`
	ReceiptID          string         `gorm:"column:receipt_id;index;size:64"`
	BlockTimestamp     uint64         `gorm:"column:block_timestamp"`
	ContractAccountID  string         `gorm:"column:contract_account_id;index;size:128"`
	TokenID            string         `gorm:"column:token_id;index;size:256"`
	Cause              string         `gorm:"column:cause;size:16"`
	Status             string         `gorm:"column:status;size:16"`
	OldOwnerAccountID  sql.NullString `gorm:"column:old_owner_account_id;size:128"`
	NewOwnerAccountID  sql.NullString `gorm:"column:new_owner_account_id;size:128"`
	AuthorizedAccountID sql.NullString `gorm:"column:authorized_account_id;size:128"`
	Memo               sql.NullString `gorm:"column:memo;size:1024"`
}

func (nftEventModel) TableName() string { return "nft_events" }

func toNftEventModel(row types.NftEventRow) *nftEventModel {
	m := &nftEventModel{
		EventIndex:        row.EventIndex.String(),
		ReceiptID:         row.ReceiptID,
		BlockTimestamp:    row.BlockTimestamp,
		ContractAccountID: string(row.ContractAccountID),
		TokenID:           row.TokenID,
		Cause:             string(row.Cause),
		Status:            string(row.StatusStr),
	}
	if row.OldOwner != nil {
		m.OldOwnerAccountID = sql.NullString{String: string(*row.OldOwner), Valid: true}
	}
	if row.NewOwner != nil {
		m.NewOwnerAccountID = sql.NullString{String: string(*row.NewOwner), Valid: true}
	}
	if row.Authorized != nil {
		m.AuthorizedAccountID = sql.NullString{String: string(*row.Authorized), Valid: true}
	}
	if row.Memo != nil {
		m.Memo = sql.NullString{String: *row.Memo, Valid: true}
	}
	return m
}

type contractModel struct {
	ContractAccountID              string         `gorm:"column:contract_account_id;primary_key;size:128"`
	Standard                        string         `gorm:"column:standard;size:32"`
	FirstEventAtTimestamp           uint64         `gorm:"column:first_event_at_timestamp"`
	FirstEventAtBlockHeight         uint64         `gorm:"column:first_event_at_block_height"`
	InconsistencyFoundAtTimestamp   sql.NullInt64  `gorm:"column:inconsistency_found_at_timestamp"`
	InconsistencyFoundAtBlockHeight sql.NullInt64  `gorm:"column:inconsistency_found_at_block_height;index"`
}

func (contractModel) TableName() string { return "contracts" }

func (m contractModel) toRecord() types.ContractRecord {
	rec := types.ContractRecord{
		ContractAccountID:      types.AccountID(m.ContractAccountID),
		Standard:                m.Standard,
		FirstEventAtTimestamp:   m.FirstEventAtTimestamp,
		FirstEventAtBlockHeight: m.FirstEventAtBlockHeight,
	}
	if m.InconsistencyFoundAtTimestamp.Valid {
		ts := uint64(m.InconsistencyFoundAtTimestamp.Int64)
		rec.InconsistencyFoundAtTimestamp = &ts
	}
	if m.InconsistencyFoundAtBlockHeight.Valid {
		h := uint64(m.InconsistencyFoundAtBlockHeight.Int64)
		rec.InconsistencyFoundAtBlockHeight = &h
	}
	return rec
}
