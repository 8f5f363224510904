// Package evaluate implements the per-block evaluator (C5): for every
// registered Pair it runs the max-profit solver in both borrow
// directions, prices the profit into WETH, and classifies the outcome
// against the current block's gas price.
package evaluate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pulkyeet/arbrito/internal/chainfeed"
	"github.com/pulkyeet/arbrito/internal/eth"
	"github.com/pulkyeet/arbrito/internal/fixedpoint"
	"github.com/pulkyeet/arbrito/internal/registry"
	"github.com/pulkyeet/arbrito/internal/solver"
)

// Attempt is one (pair, direction) arbitrage candidate, per spec §3's
// ArbitrageAttempt.
type Attempt struct {
	Pair        registry.Pair
	BorrowToken common.Address
	ProfitToken common.Address
	Result      Result
	Block       chainfeed.Block
	Config      Config

	// Reserve0/Reserve1 and Balance0/Balance1 are the Uniswap reserves and
	// Balancer balances observed for Pair.Token0/Pair.Token1, in that
	// order — the exact consistency-check values Executor.perform expects.
	Reserve0, Reserve1 *uint256.Int
	Balance0, Balance1 *uint256.Int
}

// Block runs both directions of every registered pair against b and
// returns every attempt, in no particular order. Callers rank the
// result with Result.Compare to find the best candidate.
func Block(ctx context.Context, c *eth.Client, reg *registry.Registry, cfg Config, b chainfeed.Block) ([]Attempt, error) {
	blockNum := new(big.Int).SetUint64(b.Number)

	cache, err := buildBlockCache(ctx, c, reg, cfg, blockNum)
	if err != nil {
		return nil, fmt.Errorf("evaluate: build snapshot cache: %w", err)
	}

	pairs := reg.Pairs()
	results := make([][2]Attempt, len(pairs))

	g := new(errgroup.Group)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			a0, err := attempt(reg, cache, cfg, b, p, 0)
			if err != nil {
				return fmt.Errorf("evaluate: pair %s dir 0: %w", p.UniswapPair, err)
			}
			a1, err := attempt(reg, cache, cfg, b, p, 1)
			if err != nil {
				return fmt.Errorf("evaluate: pair %s dir 1: %w", p.UniswapPair, err)
			}
			results[i] = [2]Attempt{a0, a1}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	attempts := make([]Attempt, 0, 2*len(pairs))
	for _, pair := range results {
		attempts = append(attempts, pair[0], pair[1])
	}
	return attempts, nil
}

// attempt runs steps 1-6 of spec §4.5 for one pair and direction. dir 0
// borrows token0 and takes profit in token1; dir 1 is the reverse.
func attempt(reg *registry.Registry, cache *blockCache, cfg Config, b chainfeed.Block, p registry.Pair, dir int) (Attempt, error) {
	borrowToken, profitToken := p.Token0, p.Token1
	if dir == 1 {
		borrowToken, profitToken = p.Token1, p.Token0
	}

	uniSnap, ok := cache.uniswapSnapshot(p.UniswapPair)
	if !ok {
		return Attempt{}, fmt.Errorf("uniswap snapshot missing for %s", p.UniswapPair)
	}
	balSnap, ok := cache.balancerSnapshot(p.BalancerPool)
	if !ok {
		return Attempt{}, fmt.Errorf("balancer snapshot missing for %s", p.BalancerPool)
	}

	bal0, ok := balSnap.Balances[p.Token0]
	if !ok {
		return Attempt{}, fmt.Errorf("balancer pool %s has no balance for %s", p.BalancerPool, p.Token0)
	}
	bal1, ok := balSnap.Balances[p.Token1]
	if !ok {
		return Attempt{}, fmt.Errorf("balancer pool %s has no balance for %s", p.BalancerPool, p.Token1)
	}

	reserve0, reserve1 := uniSnap.Reserve0, uniSnap.Reserve1
	if uniSnap.Token0 != p.Token0 {
		reserve0, reserve1 = uniSnap.Reserve1, uniSnap.Reserve0
	}

	base := Attempt{
		Pair: p, BorrowToken: borrowToken, ProfitToken: profitToken, Block: b, Config: cfg,
		Reserve0: reserve0, Reserve1: reserve1, Balance0: bal0, Balance1: bal1,
	}

	ri, ro := orient(uniSnap, profitToken)

	bi, bo := bal0, bal1
	if borrowToken != p.Token0 {
		bi, bo = bal1, bal0
	}

	solved := solver.MaxProfit(ri, ro, bi, bo, balSnap.SwapFee)
	if !solved.Profitable {
		base.Result = Result{Kind: NotProfit}
		return base, nil
	}

	wethProfit, err := convertToWeth(reg, cache, cfg, p, profitToken, solved, ri, ro)
	if err != nil {
		return Attempt{}, fmt.Errorf("weth conversion: %w", err)
	}
	if wethProfit == nil {
		base.Result = Result{Kind: NotProfit}
		return base, nil
	}

	base.Result = classify(cfg, b, wethProfit, solved.Borrow)
	return base, nil
}

// orient picks (ri, ro) so that ri is the Uniswap reserve of
// profitToken (the token paid back) and ro is the reserve of the
// borrowed token, per spec §4.5 step 2.
func orient(snap UniswapPairSnapshot, profitToken common.Address) (ri, ro *uint256.Int) {
	if snap.Token0 == profitToken {
		return snap.Reserve0, snap.Reserve1
	}
	return snap.Reserve1, snap.Reserve0
}

// convertToWeth implements spec §4.5 step 5. Returns nil (not an error)
// when the registry has no conversion path, which the caller treats as
// NotProfit — a registry the ingester populated correctly should never
// hit this, but a corrupt or partial registry must not crash the
// evaluator for it.
func convertToWeth(reg *registry.Registry, cache *blockCache, cfg Config, p registry.Pair, profitToken common.Address, solved solver.Result, ri, ro *uint256.Int) (*uint256.Int, error) {
	if profitToken == cfg.WethAddress {
		return solved.Profit, nil
	}

	tok, ok := reg.Token(profitToken)
	if !ok || tok.WethUniswapPair == nil {
		return nil, nil
	}
	convPair := *tok.WethUniswapPair

	var riPrime, roPrime *uint256.Int
	if convPair == p.UniswapPair {
		riPrime = new(uint256.Int).Add(ri, solved.Payback)
		if ro.Cmp(solved.Borrow) < 0 {
			return nil, fmt.Errorf("post-swap reserve underflow: ro=%s borrow=%s", ro, solved.Borrow)
		}
		roPrime = new(uint256.Int).Sub(ro, solved.Borrow)
	} else {
		snap, ok := cache.uniswapSnapshot(convPair)
		if !ok {
			return nil, fmt.Errorf("conversion pair snapshot missing for %s", convPair)
		}
		riPrime, roPrime = orient(snap, profitToken)
	}

	out, err := fixedpoint.UniswapOutGivenIn(riPrime, roPrime, solved.Profit)
	if err != nil {
		log.Error().Err(err).Str("pair", convPair.Hex()).Msg("evaluate: weth conversion overflow")
		return nil, nil
	}
	return out, nil
}

// classify implements spec §4.5 step 6's gas-price selection.
func classify(cfg Config, b chainfeed.Block, wethProfit, borrow *uint256.Int) Result {
	gasPriceU, overflow := uint256.FromBig(b.GasPrice)
	if overflow {
		return Result{Kind: NotProfit}
	}
	balanceU, overflow := uint256.FromBig(b.Balance)
	if overflow {
		return Result{Kind: NotProfit}
	}

	minGasPrice := new(uint256.Int).Mul(gasPriceU, uint256.NewInt(cfg.MinGasScale))
	maxFromScale := new(uint256.Int).Mul(gasPriceU, uint256.NewInt(cfg.MaxGasScale))
	maxFromBalance := new(uint256.Int).Div(balanceU, uint256.NewInt(cfg.MaxGasUsage))

	maxGasPrice := maxFromScale
	if maxFromBalance.Cmp(maxFromScale) < 0 {
		maxGasPrice = maxFromBalance
	}

	if wethProfit.Cmp(cfg.TargetWethProfit) <= 0 {
		return Result{Kind: GrossProfit, Amount: borrow, WethProfit: wethProfit}
	}

	targetGasPrice := new(uint256.Int).Sub(wethProfit, cfg.TargetWethProfit)
	targetGasPrice.Div(targetGasPrice, uint256.NewInt(cfg.ExpectedGasUsage))

	if maxGasPrice.Cmp(minGasPrice) < 0 || targetGasPrice.Cmp(minGasPrice) < 0 {
		return Result{Kind: GrossProfit, Amount: borrow, WethProfit: wethProfit}
	}

	gasPrice := targetGasPrice
	if maxGasPrice.Cmp(targetGasPrice) < 0 {
		gasPrice = maxGasPrice
	}

	return Result{Kind: NetProfit, Amount: borrow, WethProfit: wethProfit, GasPrice: gasPrice}
}
