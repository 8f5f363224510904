// Package engine wires C3-C7 together into the top-level loop (C8):
// pull the latest head from chainfeed, evaluate every registered pair in
// both directions, rank the results, and offer the best NetProfit
// candidate to the execution gate, while a second loop decodes pending
// transactions for post-hoc conflict logging. Grounded on the original
// implementation's subscribe-evaluate-sort-log main loop
// (bin/watch_pairs.rs) and the teacher's deleted backtest orchestration
// (internal/backtest/runner.go's RunBacktest/ProcessBlock), merged into a
// live, non-backtest loop.
package engine

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/pulkyeet/arbrito/internal/chainfeed"
	"github.com/pulkyeet/arbrito/internal/eth"
	"github.com/pulkyeet/arbrito/internal/evaluate"
	"github.com/pulkyeet/arbrito/internal/gate"
	"github.com/pulkyeet/arbrito/internal/logging"
	"github.com/pulkyeet/arbrito/internal/mempool"
	"github.com/pulkyeet/arbrito/internal/registry"
)

// Engine owns the wiring between a head source, an evaluator, and an
// execution gate. One Engine runs one live arbitrage loop.
type Engine struct {
	client *eth.Client
	reg    *registry.Registry
	cfg    evaluate.Config
	gate   *gate.Gate
	source *chainfeed.Source

	router common.Address
}

// New builds an Engine from its already-constructed dependencies. router
// is the Uniswap-style router address pending-tx decoding matches
// against.
func New(client *eth.Client, reg *registry.Registry, cfg evaluate.Config, g *gate.Gate, source *chainfeed.Source, router common.Address) *Engine {
	return &Engine{client: client, reg: reg, cfg: cfg, gate: g, source: source, router: router}
}

// Run drives the block loop and the pending-tx consumer loop
// concurrently until ctx is cancelled or either stream terminates. A
// stream termination is fatal per spec §7: "propagate as fatal; the
// process is restarted by the supervisor."
func (e *Engine) Run(ctx context.Context) error {
	errc := make(chan error, 2)

	go func() { errc <- e.runBlocks(ctx) }()
	go func() { errc <- e.runPendingTx(ctx) }()

	return <-errc
}

// runBlocks implements C8's top-level loop.
func (e *Engine) runBlocks(ctx context.Context) error {
	for {
		b, err := e.source.Latest(ctx)
		if err != nil {
			return err
		}

		if e.gate.Held() {
			log.Warn().Uint64("block", b.Number).Msg("engine: gate held, skipping block")
			continue
		}

		e.processBlock(ctx, b)
	}
}

// rank implements C8's "counts by variant → log" and "best := max by
// Result total order" steps as a pure function over the fan-out
// results. Returns best == -1 if attempts is empty.
func rank(attempts []evaluate.Attempt) (best, notCount, grossCount, netCount int) {
	best = -1
	for i, a := range attempts {
		switch a.Result.Kind {
		case evaluate.NotProfit:
			notCount++
		case evaluate.GrossProfit:
			grossCount++
		case evaluate.NetProfit:
			netCount++
		}
		if best == -1 || a.Result.Compare(attempts[best].Result) > 0 {
			best = i
		}
	}
	return best, notCount, grossCount, netCount
}

func (e *Engine) processBlock(ctx context.Context, b chainfeed.Block) {
	start := time.Now()

	attempts, err := evaluate.Block(ctx, e.client, e.reg, e.cfg, b)
	if err != nil {
		log.Error().Err(err).Uint64("block", b.Number).Msg("engine: abandoning block")
		return
	}

	best, notCount, grossCount, netCount := rank(attempts)

	elapsed := time.Since(start)

	log.Info().Uint64("block", b.Number).
		Int("pairs", len(e.reg.Pairs())).
		Int("not_profit", notCount).
		Int("gross_profit", grossCount).
		Int("net_profit", netCount).
		Dur("elapsed", elapsed).
		Msg("engine: block evaluated")

	if best < 0 || attempts[best].Result.Kind != evaluate.NetProfit {
		return
	}

	candidate := attempts[best]
	logging.NetProfitEvent().
		Uint64("block", b.Number).
		Str("uniswap_pair", candidate.Pair.UniswapPair.Hex()).
		Str("balancer_pool", candidate.Pair.BalancerPool.Hex()).
		Str("weth_profit", candidate.Result.WethProfit.String()).
		Str("gas_price", candidate.Result.GasPrice.String()).
		Msg("engine: NET PROFIT candidate found")

	if !e.gate.Offer(ctx, candidate) {
		log.Warn().Uint64("block", b.Number).Msg("engine: NetProfit candidate rejected by gate")
	}
}

// runPendingTx implements spec §4.7's "while the gate is held, the
// pending-tx stream is consulted" rule. It runs continuously regardless
// of gate state and fetches every announced tx, but decoding and the
// conflict check happen only while a candidate is held (see
// classifyPendingTx); it never blocks block evaluation — decode failures
// and unknown selectors are dropped silently per spec §7's "decoder
// mismatch" rule.
func (e *Engine) runPendingTx(ctx context.Context) error {
	hashes, sub, err := e.client.SubscribePendingTransactionHashes(ctx)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	pools := e.reg.BalancerPools()
	isKnownToken := func(addr common.Address) bool {
		_, ok := e.reg.Token(addr)
		return ok
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case h := <-hashes:
			e.handlePendingTx(ctx, h, pools, isKnownToken)
		}
	}
}

func (e *Engine) handlePendingTx(ctx context.Context, h common.Hash, pools map[common.Address]struct{}, isKnownToken func(common.Address) bool) {
	tx, _, err := e.client.TransactionByHash(ctx, h)
	if err != nil || tx == nil || tx.To() == nil {
		return
	}

	att, held := e.gate.InFlight()
	conflict := classifyPendingTx(*tx.To(), tx.Data(), h, tx.GasPrice(), e.router, pools, isKnownToken, att, held)
	if conflict == nil {
		return
	}

	log.Info().Str("tx", h.Hex()).Str("match", conflict.kind.String()).
		Str("method", conflict.method).
		Msg("engine: pending swap conflicts with in-flight candidate")
}

// pendingConflict is the result of classifying one decoded pending
// transaction against the gate's currently in-flight candidate, if any.
type pendingConflict struct {
	kind   mempool.MatchKind
	method string
}

// classifyPendingTx implements spec §4.7's consultation rule: only while a
// candidate is in flight, decode tx against whichever venue its `to`
// address matches and test it for conflict. Returns nil, without
// decoding, when there's no in-flight candidate, and nil when the tx
// doesn't decode or isn't a venue match.
func classifyPendingTx(to common.Address, data []byte, h common.Hash, gasPrice *big.Int, router common.Address, pools map[common.Address]struct{}, isKnownToken func(common.Address) bool, att evaluate.Attempt, held bool) *pendingConflict {
	if !held {
		return nil
	}

	switch {
	case to == router:
		swap, ok := mempool.DecodeUniswapSwap(data, h, gasPrice, isKnownToken)
		if !ok {
			return nil
		}
		kind := swap.Conflicts(att.BorrowToken, att.ProfitToken)
		if kind == mempool.NoConflict {
			return nil
		}
		return &pendingConflict{kind: kind, method: swap.Method.String()}
	case isKnownPool(to, pools):
		swap, ok := mempool.DecodeBalancerSwap(data, to, h, gasPrice, isKnownToken)
		if !ok {
			return nil
		}
		kind := swap.Conflicts(att.BorrowToken, att.ProfitToken, att.Pair.BalancerPool)
		if kind == mempool.NoConflict {
			return nil
		}
		return &pendingConflict{kind: kind, method: swap.Method.String()}
	default:
		return nil
	}
}

func isKnownPool(addr common.Address, pools map[common.Address]struct{}) bool {
	_, ok := pools[addr]
	return ok
}
