package store

import (
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
)

const accountStateSchema = `
CREATE TABLE IF NOT EXISTS account_state (
	block_number INTEGER NOT NULL,
	address      TEXT NOT NULL,
	balance      TEXT,
	nonce        INTEGER,
	PRIMARY KEY (block_number, address)
);
`

// AccountCache persists the executor account's balance and nonce per
// block, adapted from the teacher's EVM-simulator state cache
// (internal/storage/cache.go's CacheDB) to archiving the one account
// this engine cares about: the executor, as offline input for
// classify()'s block.balance/block.nonce. No command in this tree
// reads or writes it.
type AccountCache struct {
	db *sql.DB
}

// NewAccountCache opens (creating if necessary) an account-state cache
// at dbPath.
func NewAccountCache(dbPath string) (*AccountCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open account cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec(accountStateSchema); err != nil {
		return nil, fmt.Errorf("store: init account cache schema: %w", err)
	}

	return &AccountCache{db: db}, nil
}

func (c *AccountCache) Close() error { return c.db.Close() }

// SetAccount upserts the balance and nonce observed for addr at
// blockNumber.
func (c *AccountCache) SetAccount(blockNumber uint64, addr common.Address, balance *big.Int, nonce uint64) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO account_state (block_number, address, balance, nonce) VALUES (?, ?, ?, ?)",
		blockNumber, addr.Hex(), balance.String(), nonce,
	)
	return err
}

// GetAccount returns a previously archived balance and nonce.
func (c *AccountCache) GetAccount(blockNumber uint64, addr common.Address) (balance *big.Int, nonce uint64, ok bool) {
	var balanceStr string
	err := c.db.QueryRow(
		"SELECT balance, nonce FROM account_state WHERE block_number = ? AND address = ?",
		blockNumber, addr.Hex(),
	).Scan(&balanceStr, &nonce)
	if err != nil {
		return nil, 0, false
	}

	balance = new(big.Int)
	if _, ok := balance.SetString(balanceStr, 10); !ok {
		return nil, 0, false
	}
	return balance, nonce, true
}
