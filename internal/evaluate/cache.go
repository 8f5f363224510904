package evaluate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/pulkyeet/arbrito/internal/contracts"
	"github.com/pulkyeet/arbrito/internal/eth"
	"github.com/pulkyeet/arbrito/internal/registry"
	"github.com/pulkyeet/arbrito/internal/store"
)

// blockCache holds every UniswapPairSnapshot and BalancerPoolSnapshot
// needed for one block's evaluation, deduplicated across Pairs so each
// distinct pool contract is read once, per spec §4.5's closing
// paragraph. It is built once per block and discarded afterward.
type blockCache struct {
	uniswap  map[common.Address]UniswapPairSnapshot
	balancer map[common.Address]BalancerPoolSnapshot
}

func (bc *blockCache) uniswapSnapshot(addr common.Address) (UniswapPairSnapshot, bool) {
	s, ok := bc.uniswap[addr]
	return s, ok
}

func (bc *blockCache) balancerSnapshot(addr common.Address) (BalancerPoolSnapshot, bool) {
	s, ok := bc.balancer[addr]
	return s, ok
}

// buildBlockCache fetches every distinct Uniswap pair (arbitrage pairs
// plus WETH-conversion pairs) and Balancer pool referenced by reg,
// concurrently, at blockNum.
func buildBlockCache(ctx context.Context, c *eth.Client, reg *registry.Registry, cfg Config, blockNum *big.Int) (*blockCache, error) {
	weth := cfg.WethAddress
	uniswapAddrs := make(map[common.Address]struct{})
	balancerTokens := make(map[common.Address]map[common.Address]struct{})

	for _, p := range reg.Pairs() {
		uniswapAddrs[p.UniswapPair] = struct{}{}

		if _, ok := balancerTokens[p.BalancerPool]; !ok {
			balancerTokens[p.BalancerPool] = make(map[common.Address]struct{})
		}
		balancerTokens[p.BalancerPool][p.Token0] = struct{}{}
		balancerTokens[p.BalancerPool][p.Token1] = struct{}{}

		for _, tokenAddr := range []common.Address{p.Token0, p.Token1} {
			tok, ok := reg.Token(tokenAddr)
			if !ok || tokenAddr == weth || tok.WethUniswapPair == nil {
				continue
			}
			uniswapAddrs[*tok.WethUniswapPair] = struct{}{}
		}
	}

	type uniEntry struct {
		addr common.Address
		snap UniswapPairSnapshot
	}
	type balEntry struct {
		addr common.Address
		snap BalancerPoolSnapshot
	}

	uniAddrList := make([]common.Address, 0, len(uniswapAddrs))
	for a := range uniswapAddrs {
		uniAddrList = append(uniAddrList, a)
	}
	poolAddrList := make([]common.Address, 0, len(balancerTokens))
	for a := range balancerTokens {
		poolAddrList = append(poolAddrList, a)
	}

	uniResults := make([]uniEntry, len(uniAddrList))
	balResults := make([]balEntry, len(poolAddrList))

	g, gctx := errgroup.WithContext(ctx)

	for i, addr := range uniAddrList {
		i, addr := i, addr
		g.Go(func() error {
			snap, err := fetchUniswapSnapshot(gctx, c, cfg.Token0Cache, addr, blockNum)
			if err != nil {
				return err
			}
			uniResults[i] = uniEntry{addr, snap}
			return nil
		})
	}

	for i, poolAddr := range poolAddrList {
		i, poolAddr := i, poolAddr
		tokens := balancerTokens[poolAddr]
		g.Go(func() error {
			snap, err := fetchBalancerSnapshot(gctx, c, poolAddr, tokens, blockNum)
			if err != nil {
				return err
			}
			balResults[i] = balEntry{poolAddr, snap}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	uniswap := make(map[common.Address]UniswapPairSnapshot, len(uniResults))
	for _, e := range uniResults {
		uniswap[e.addr] = e.snap
	}
	balancer := make(map[common.Address]BalancerPoolSnapshot, len(balResults))
	for _, e := range balResults {
		balancer[e.addr] = e.snap
	}

	return &blockCache{uniswap: uniswap, balancer: balancer}, nil
}

// fetchUniswapSnapshot returns the snapshot for one pair and writes to
// no shared map, so concurrent callers never race; buildBlockCache
// assembles the per-pair results into its map after errgroup.Wait.
func fetchUniswapSnapshot(ctx context.Context, c *eth.Client, token0Cache *store.Token0Cache, addr common.Address, blockNum *big.Int) (UniswapPairSnapshot, error) {
	reserves, err := contracts.GetReserves(ctx, c, addr, blockNum)
	if err != nil {
		return UniswapPairSnapshot{}, fmt.Errorf("evaluate: fetch reserves for %s: %w", addr, err)
	}

	token0, err := fetchToken0(ctx, c, token0Cache, addr, blockNum)
	if err != nil {
		return UniswapPairSnapshot{}, fmt.Errorf("evaluate: fetch token0 for %s: %w", addr, err)
	}
	return UniswapPairSnapshot{Reserve0: reserves.Reserve0, Reserve1: reserves.Reserve1, Token0: token0}, nil
}

// fetchToken0 serves a cached token0 address when available; a pair's
// token0 is fixed at deployment, so it never needs invalidating once
// observed.
func fetchToken0(ctx context.Context, c *eth.Client, cache *store.Token0Cache, addr common.Address, blockNum *big.Int) (common.Address, error) {
	if cache != nil {
		if token0, ok := cache.Get(addr); ok {
			return token0, nil
		}
	}

	token0, err := contracts.GetToken0(ctx, c, addr, blockNum)
	if err != nil {
		return common.Address{}, err
	}
	if cache != nil {
		cache.Put(addr, token0)
	}
	return token0, nil
}

func fetchBalancerSnapshot(ctx context.Context, c *eth.Client, poolAddr common.Address, tokens map[common.Address]struct{}, blockNum *big.Int) (BalancerPoolSnapshot, error) {
	type balEntry struct {
		token common.Address
		bal   *uint256.Int
	}
	entries := make([]balEntry, len(tokens))
	tokenList := make([]common.Address, 0, len(tokens))
	for t := range tokens {
		tokenList = append(tokenList, t)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, tokenAddr := range tokenList {
		i, tokenAddr := i, tokenAddr
		g.Go(func() error {
			bal, err := contracts.GetBalance(gctx, c, poolAddr, tokenAddr, blockNum)
			if err != nil {
				return fmt.Errorf("evaluate: fetch balance %s/%s: %w", poolAddr, tokenAddr, err)
			}
			balU, overflow := uint256.FromBig(bal)
			if overflow {
				return fmt.Errorf("evaluate: balance %s/%s overflows uint256", poolAddr, tokenAddr)
			}
			entries[i] = balEntry{tokenAddr, balU}
			return nil
		})
	}

	var fee *big.Int
	g.Go(func() error {
		f, err := contracts.GetSwapFee(gctx, c, poolAddr, blockNum)
		if err != nil {
			return fmt.Errorf("evaluate: fetch swap fee %s: %w", poolAddr, err)
		}
		fee = f
		return nil
	})

	if err := g.Wait(); err != nil {
		return BalancerPoolSnapshot{}, err
	}

	balances := make(map[common.Address]*uint256.Int, len(entries))
	for _, e := range entries {
		balances[e.token] = e.bal
	}

	feeU, overflow := uint256.FromBig(fee)
	if overflow {
		return BalancerPoolSnapshot{}, fmt.Errorf("evaluate: swap fee %s overflows uint256", poolAddr)
	}

	return BalancerPoolSnapshot{Balances: balances, SwapFee: feeU}, nil
}
