package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	_ "github.com/mattn/go-sqlite3"
)

// ArchivedTx is one pending transaction recorded for offline replay,
// adapted from the teacher's MempoolTx (internal/backtest/types.go) to
// this engine's two-venue decoding instead of its price-divergence
// detector.
type ArchivedTx struct {
	Hash          common.Hash
	RawTx         []byte
	SeenAt        uint64
	IncludedBlock uint64
	GasPrice      string
	To            *common.Address
}

const mempoolArchiveSchema = `
CREATE TABLE IF NOT EXISTS mempool_txs (
	tx_hash        TEXT PRIMARY KEY,
	seen_at        INTEGER NOT NULL,
	included_block INTEGER,
	raw_tx         BLOB NOT NULL,
	gas_price      TEXT NOT NULL,
	tx_to          TEXT
);
CREATE INDEX IF NOT EXISTS idx_mempool_txs_seen_at ON mempool_txs(seen_at);
CREATE INDEX IF NOT EXISTS idx_mempool_txs_included_block ON mempool_txs(included_block);
`

// MempoolArchive is a WAL-mode sqlite store of pending transactions,
// retargeted from the teacher's backtest mempool DB
// (internal/backtest/mempool.go's MempoolDB) to cmd/ingest-mempool's
// parquet ingestion and cmd/replay-mempool's offline conflict replay.
type MempoolArchive struct {
	db *sql.DB
}

// NewMempoolArchive opens (creating if necessary) a mempool archive at
// dbPath.
func NewMempoolArchive(dbPath string) (*MempoolArchive, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create archive dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open mempool archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec(mempoolArchiveSchema); err != nil {
		return nil, fmt.Errorf("store: init mempool archive schema: %w", err)
	}

	return &MempoolArchive{db: db}, nil
}

func (m *MempoolArchive) Close() error { return m.db.Close() }

// Insert stores one transaction, ignoring duplicates by hash.
func (m *MempoolArchive) Insert(tx ArchivedTx) error {
	_, err := m.db.Exec(
		`INSERT OR IGNORE INTO mempool_txs (tx_hash, seen_at, included_block, raw_tx, gas_price, tx_to)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.Hash.Hex(), tx.SeenAt, tx.IncludedBlock, tx.RawTx, tx.GasPrice, addressToString(tx.To),
	)
	return err
}

// BatchInsert stores many transactions in one sqlite transaction, per
// the teacher's own BatchInsert discipline.
func (m *MempoolArchive) BatchInsert(txs []ArchivedTx) error {
	if len(txs) == 0 {
		return nil
	}

	sqlTx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.Prepare(
		`INSERT OR IGNORE INTO mempool_txs (tx_hash, seen_at, included_block, raw_tx, gas_price, tx_to)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, tx := range txs {
		if _, err := stmt.Exec(tx.Hash.Hex(), tx.SeenAt, tx.IncludedBlock, tx.RawTx, tx.GasPrice, addressToString(tx.To)); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// ForBlock returns every archived transaction seen strictly before the
// earliest seen_at among the archived transactions included in
// blockNumber (an error if none is archived), for cmd/replay-mempool's offline
// reconstruction of "the pending-tx window a live engine would have
// observed while block N was being built."
func (m *MempoolArchive) ForBlock(blockNumber uint64) ([]*types.Transaction, error) {
	var seenAtCutoff uint64
	err := m.db.QueryRow(
		`SELECT seen_at FROM mempool_txs WHERE included_block = ? ORDER BY seen_at ASC LIMIT 1`,
		blockNumber,
	).Scan(&seenAtCutoff)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: block %d not present in mempool archive", blockNumber)
	}
	if err != nil {
		return nil, err
	}

	rows, err := m.db.Query(`SELECT raw_tx FROM mempool_txs WHERE seen_at < ? ORDER BY seen_at ASC`, seenAtCutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Transaction
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			continue
		}
		var tx types.Transaction
		if err := rlp.DecodeBytes(raw, &tx); err != nil {
			continue
		}
		out = append(out, &tx)
	}
	return out, rows.Err()
}

// Stats reports basic archive counts, for cmd/ingest-mempool's
// end-of-run summary.
func (m *MempoolArchive) Stats() (map[string]int64, error) {
	stats := make(map[string]int64)

	var total int64
	if err := m.db.QueryRow("SELECT COUNT(*) FROM mempool_txs").Scan(&total); err != nil {
		return nil, err
	}
	stats["total_txs"] = total

	var blocks int64
	if err := m.db.QueryRow("SELECT COUNT(DISTINCT included_block) FROM mempool_txs WHERE included_block IS NOT NULL").Scan(&blocks); err != nil {
		return nil, err
	}
	stats["blocks_covered"] = blocks

	return stats, nil
}

func addressToString(addr *common.Address) string {
	if addr == nil {
		return ""
	}
	return addr.Hex()
}
