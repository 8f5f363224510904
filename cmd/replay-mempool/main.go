// Command replay-mempool replays an archived pending-transaction window
// against a real evaluation of a historical block, reproducing offline
// the same conflict classification internal/engine's runPendingTx does
// live. The C6 analogue of the teacher's cmd/backtest, retargeted from
// replaying its price-divergence detector to replaying this engine's
// mempool-conflict consultation (spec §4.7).
package main

import (
	"context"
	"flag"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/pulkyeet/arbrito/internal/chainfeed"
	"github.com/pulkyeet/arbrito/internal/config"
	"github.com/pulkyeet/arbrito/internal/eth"
	"github.com/pulkyeet/arbrito/internal/evaluate"
	"github.com/pulkyeet/arbrito/internal/logging"
	"github.com/pulkyeet/arbrito/internal/mempool"
	"github.com/pulkyeet/arbrito/internal/registry"
	"github.com/pulkyeet/arbrito/internal/store"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config.toml (optional)")
	mempoolDBPath := flag.String("mempool-db", "data/mempool.db", "path to a MempoolArchive built by ingest-mempool")
	startBlock := flag.Uint64("start", 0, "first block to replay (required)")
	endBlock := flag.Uint64("end", 0, "last block to replay, inclusive (required)")
	gasPriceGwei := flag.Int64("gas-price-gwei", 30, "gas price to evaluate candidates against, in gwei")
	flag.Parse()

	logging.Init(logging.ModeFromEnv(), os.Getenv("ARBRITO_LOG_LEVEL"))

	if *startBlock == 0 || *endBlock == 0 || *startBlock > *endBlock {
		log.Fatal().Msg("replay-mempool: -start and -end are required, with start <= end")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("replay-mempool: config")
	}

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		log.Fatal().Err(err).Msg("replay-mempool: registry")
	}

	ctx := context.Background()
	client, err := eth.Dial(ctx, cfg.WebEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("replay-mempool: dial")
	}

	archive, err := store.NewMempoolArchive(*mempoolDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("replay-mempool: open mempool archive")
	}
	defer archive.Close()

	token0Cache, err := store.NewToken0Cache(256)
	if err != nil {
		log.Fatal().Err(err).Msg("replay-mempool: token0 cache")
	}
	cfg.Evaluate.Token0Cache = token0Cache

	pools := reg.BalancerPools()
	isKnownToken := func(addr common.Address) bool {
		_, ok := reg.Token(addr)
		return ok
	}
	gasPrice := new(big.Int).Mul(big.NewInt(*gasPriceGwei), big.NewInt(1e9))

	var totalConflicts, blocksReplayed int

	for n := *startBlock; n <= *endBlock; n++ {
		candidate, ok, err := bestProfitableAttempt(ctx, client, reg, cfg.Evaluate, cfg.ExecutorAccount, n, gasPrice)
		if err != nil {
			log.Warn().Err(err).Uint64("block", n).Msg("replay-mempool: evaluate failed, skipping")
			continue
		}
		if !ok {
			continue
		}

		txs, err := archive.ForBlock(n)
		if err != nil {
			log.Warn().Err(err).Uint64("block", n).Msg("replay-mempool: no archived mempool window, skipping")
			continue
		}

		blocksReplayed++
		for _, tx := range txs {
			if tx.To() == nil {
				continue
			}
			conflict := classify(*tx.To(), tx.Data(), cfg.Router, pools, isKnownToken, candidate)
			if conflict == mempool.NoConflict {
				continue
			}
			totalConflicts++
			log.Info().Uint64("block", n).Str("tx", tx.Hash().Hex()).Str("match", conflict.String()).
				Msg("replay-mempool: pending swap would have conflicted with candidate")
		}
	}

	log.Info().Int("blocks_replayed", blocksReplayed).Int("conflicts", totalConflicts).Msg("replay-mempool: done")
}

// bestProfitableAttempt evaluates block n, with the executor's balance at
// that block, and returns its best attempt if it reaches at least
// GrossProfit. The live gate only accepts NetProfit candidates; this
// replay also checks gross-profit candidates for pending-tx interference.
func bestProfitableAttempt(ctx context.Context, c *eth.Client, reg *registry.Registry, cfg evaluate.Config, executor common.Address, blockNumber uint64, gasPrice *big.Int) (evaluate.Attempt, bool, error) {
	balance, err := c.BalanceAt(ctx, executor, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return evaluate.Attempt{}, false, err
	}
	b := chainfeed.Block{Number: blockNumber, GasPrice: gasPrice, Balance: balance}

	attempts, err := evaluate.Block(ctx, c, reg, cfg, b)
	if err != nil {
		return evaluate.Attempt{}, false, err
	}

	best := -1
	for i, a := range attempts {
		if a.Result.Kind == evaluate.NotProfit {
			continue
		}
		if best == -1 || a.Result.Compare(attempts[best].Result) > 0 {
			best = i
		}
	}
	if best == -1 {
		return evaluate.Attempt{}, false, nil
	}
	return attempts[best], true, nil
}

// classify mirrors internal/engine's classifyPendingTx: decode a pending
// tx against whichever venue its `to` address matches and test it for
// conflict against the replayed candidate.
func classify(to common.Address, data []byte, router common.Address, pools map[common.Address]struct{}, isKnownToken func(common.Address) bool, candidate evaluate.Attempt) mempool.MatchKind {
	switch {
	case to == router:
		swap, ok := mempool.DecodeUniswapSwap(data, common.Hash{}, big.NewInt(0), isKnownToken)
		if !ok {
			return mempool.NoConflict
		}
		return swap.Conflicts(candidate.BorrowToken, candidate.ProfitToken)
	default:
		if _, known := pools[to]; !known {
			return mempool.NoConflict
		}
		swap, ok := mempool.DecodeBalancerSwap(data, to, common.Hash{}, big.NewInt(0), isKnownToken)
		if !ok {
			return mempool.NoConflict
		}
		return swap.Conflicts(candidate.BorrowToken, candidate.ProfitToken, candidate.Pair.BalancerPool)
	}
}
