// Package registry holds the process-wide, immutable-after-load token and
// pair set the engine arbitrages over. It is read from a TOML file written
// by an external ingester (cmd/fetch-pairs, or a hand-maintained file) and
// never mutated at runtime.
package registry

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
)

// Token mirrors pairs.toml's [[tokens]] entries.
type Token struct {
	Address          common.Address  `toml:"address"`
	Symbol           string          `toml:"symbol"`
	Decimals         uint            `toml:"decimals"`
	WethUniswapPair  *common.Address `toml:"weth_uniswap_pair,omitempty"`
}

// Pair mirrors pairs.toml's [[pairs]] entries: a (Uniswap pair, Balancer
// pool) tuple that shares two tokens, token0 < token1 by address.
type Pair struct {
	Token0       common.Address `toml:"token0"`
	Token1       common.Address `toml:"token1"`
	UniswapPair  common.Address `toml:"uniswap"`
	BalancerPool common.Address `toml:"balancer"`
}

// file is the on-disk shape of registry.toml.
type file struct {
	Tokens []Token `toml:"tokens"`
	Pairs  []Pair  `toml:"pairs"`
}

// Registry is the loaded, validated token/pair set. Built once at startup
// and never mutated afterward, so it needs no locking.
type Registry struct {
	tokens map[common.Address]Token
	pairs  []Pair
}

// Load reads and validates a registry.toml at path. Any inconsistency
// (unknown token reference, duplicate pair key) is fatal — the caller is
// expected to treat a non-nil error as a startup failure, per spec §7.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}

	var f file
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}

	return build(f)
}

func build(f file) (*Registry, error) {
	tokens := make(map[common.Address]Token, len(f.Tokens))
	for _, t := range f.Tokens {
		if _, exists := tokens[t.Address]; exists {
			return nil, fmt.Errorf("registry: duplicate token %s", t.Address)
		}
		if err := validateToken(t); err != nil {
			return nil, err
		}
		tokens[t.Address] = t
	}

	seen := make(map[[2]common.Address]struct{}, len(f.Pairs))
	pairs := make([]Pair, 0, len(f.Pairs))
	for _, p := range f.Pairs {
		key := [2]common.Address{p.UniswapPair, p.BalancerPool}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("registry: duplicate pair key (uniswap=%s, balancer=%s)", p.UniswapPair, p.BalancerPool)
		}
		seen[key] = struct{}{}

		if _, ok := tokens[p.Token0]; !ok {
			return nil, fmt.Errorf("registry: pair %s references unknown token0 %s", p.UniswapPair, p.Token0)
		}
		if _, ok := tokens[p.Token1]; !ok {
			return nil, fmt.Errorf("registry: pair %s references unknown token1 %s", p.UniswapPair, p.Token1)
		}
		if p.Token0.Cmp(p.Token1) >= 0 {
			return nil, fmt.Errorf("registry: pair %s tokens are not strictly ordered (token0=%s token1=%s)", p.UniswapPair, p.Token0, p.Token1)
		}

		pairs = append(pairs, p)
	}

	return &Registry{tokens: tokens, pairs: pairs}, nil
}

func validateToken(t Token) error {
	if t.Decimals > 36 {
		return fmt.Errorf("registry: token %s decimals %d out of range [0,36]", t.Address, t.Decimals)
	}
	return nil
}

// Token looks up a token by address.
func (r *Registry) Token(addr common.Address) (Token, bool) {
	t, ok := r.tokens[addr]
	return t, ok
}

// Pairs returns every loaded pair.
func (r *Registry) Pairs() []Pair {
	return r.pairs
}

// IsWeth reports whether addr is the configured reference asset. It
// checks nothing else; ValidateWeth enforces the spec §3 invariant on
// weth_uniswap_pair.
func (r *Registry) IsWeth(addr, weth common.Address) bool {
	return addr == weth
}

// ValidateWeth checks the §3 invariant that ties a token's WETH-ness to
// its weth_uniswap_pair field: the reference asset itself carries no
// conversion pair, and every other token must carry one (C5 step 5 needs
// it to price non-WETH profit). Called once the WETH address is known
// from config, separately from Load, since the registry file itself has
// no notion of which token is the reference asset.
func (r *Registry) ValidateWeth(weth common.Address) error {
	for addr, t := range r.tokens {
		switch {
		case addr == weth && t.WethUniswapPair != nil:
			return fmt.Errorf("registry: WETH token %s must not set weth_uniswap_pair", addr)
		case addr != weth && t.WethUniswapPair == nil:
			return fmt.Errorf("registry: non-WETH token %s missing weth_uniswap_pair", addr)
		}
	}
	return nil
}

// BalancerPools returns the set of distinct Balancer pool addresses
// referenced by the registry, used by the mempool interpreter to decide
// whether a pending transaction's target is a known pool.
func (r *Registry) BalancerPools() map[common.Address]struct{} {
	pools := make(map[common.Address]struct{})
	for _, p := range r.pairs {
		pools[p.BalancerPool] = struct{}{}
	}
	return pools
}
