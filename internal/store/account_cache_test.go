package store

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestAccountCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	cache, err := NewAccountCache(path)
	if err != nil {
		t.Fatalf("NewAccountCache: %v", err)
	}
	defer cache.Close()

	addr := common.HexToAddress("0xEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEE")
	balance := big.NewInt(123_456_789)

	if err := cache.SetAccount(100, addr, balance, 7); err != nil {
		t.Fatalf("SetAccount: %v", err)
	}

	gotBalance, gotNonce, ok := cache.GetAccount(100, addr)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if gotBalance.Cmp(balance) != 0 {
		t.Errorf("balance = %s, want %s", gotBalance, balance)
	}
	if gotNonce != 7 {
		t.Errorf("nonce = %d, want 7", gotNonce)
	}
}

func TestAccountCacheMissOnUnknownBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	cache, err := NewAccountCache(path)
	if err != nil {
		t.Fatalf("NewAccountCache: %v", err)
	}
	defer cache.Close()

	addr := common.HexToAddress("0xEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEE")
	if _, _, ok := cache.GetAccount(1, addr); ok {
		t.Error("expected a miss for an unarchived (block, address) pair")
	}
}
