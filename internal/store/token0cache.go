package store

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethereum/go-ethereum/common"
)

// Token0Cache remembers a Uniswap-style pair's token0() result across
// blocks. Unlike reserves, token0 is fixed at pair deployment, so it is
// the one piece of UniswapPairSnapshot that's safe to reuse
// cross-block rather than refetched every evaluation — the hot path the
// teacher's own unwired `hashicorp/golang-lru/v2` dependency (declared
// in go.mod, never imported by its code) was meant for.
type Token0Cache struct {
	cache *lru.Cache[common.Address, common.Address]
}

// NewToken0Cache builds a cache holding at most size entries; size must
// be positive.
func NewToken0Cache(size int) (*Token0Cache, error) {
	c, err := lru.New[common.Address, common.Address](size)
	if err != nil {
		return nil, err
	}
	return &Token0Cache{cache: c}, nil
}

// Get returns the cached token0 address for a pair, if known.
func (t *Token0Cache) Get(pair common.Address) (common.Address, bool) {
	return t.cache.Get(pair)
}

// Put records a pair's token0 address for future blocks.
func (t *Token0Cache) Put(pair, token0 common.Address) {
	t.cache.Add(pair, token0)
}
