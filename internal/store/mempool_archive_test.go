package store

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func sampleTx(t *testing.T, nonce uint64) (*types.Transaction, []byte) {
	t.Helper()
	to := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	tx := types.NewTransaction(nonce, to, big.NewInt(0), 21000, big.NewInt(1_000_000_000), nil)
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return tx, raw
}

func TestMempoolArchiveInsertAndStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.db")
	archive, err := NewMempoolArchive(path)
	if err != nil {
		t.Fatalf("NewMempoolArchive: %v", err)
	}
	defer archive.Close()

	tx, raw := sampleTx(t, 1)
	to := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

	entry := ArchivedTx{
		Hash:          tx.Hash(),
		RawTx:         raw,
		SeenAt:        100,
		IncludedBlock: 200,
		GasPrice:      tx.GasPrice().String(),
		To:            &to,
	}
	if err := archive.Insert(entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// duplicate insert must be ignored, not error
	if err := archive.Insert(entry); err != nil {
		t.Fatalf("duplicate Insert: %v", err)
	}

	stats, err := archive.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["total_txs"] != 1 {
		t.Errorf("total_txs = %d, want 1 (duplicate should be ignored)", stats["total_txs"])
	}
	if stats["blocks_covered"] != 1 {
		t.Errorf("blocks_covered = %d, want 1", stats["blocks_covered"])
	}
}

func TestMempoolArchiveForBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.db")
	archive, err := NewMempoolArchive(path)
	if err != nil {
		t.Fatalf("NewMempoolArchive: %v", err)
	}
	defer archive.Close()

	earlyTx, earlyRaw := sampleTx(t, 1)
	lateTx, lateRaw := sampleTx(t, 2)
	markerTx, markerRaw := sampleTx(t, 3)

	batch := []ArchivedTx{
		{Hash: earlyTx.Hash(), RawTx: earlyRaw, SeenAt: 50, GasPrice: "1"},
		{Hash: lateTx.Hash(), RawTx: lateRaw, SeenAt: 150, GasPrice: "1"},
		{Hash: markerTx.Hash(), RawTx: markerRaw, SeenAt: 100, IncludedBlock: 10, GasPrice: "1"},
	}
	if err := archive.BatchInsert(batch); err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	txs, err := archive.ForBlock(10)
	if err != nil {
		t.Fatalf("ForBlock: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d txs seen before block 10, want 1 (only the SeenAt=50 tx)", len(txs))
	}
	if txs[0].Nonce() != earlyTx.Nonce() {
		t.Errorf("returned tx nonce = %d, want %d", txs[0].Nonce(), earlyTx.Nonce())
	}
}

func TestMempoolArchiveForBlockUnknownBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.db")
	archive, err := NewMempoolArchive(path)
	if err != nil {
		t.Fatalf("NewMempoolArchive: %v", err)
	}
	defer archive.Close()

	if _, err := archive.ForBlock(999); err == nil {
		t.Error("expected an error for a block not present in the archive")
	}
}
