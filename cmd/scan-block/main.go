// Command scan-block evaluates a single historical block against the
// registered pairs and prints every attempt's outcome, without
// submitting anything. A dry-run replacement for the teacher's
// cmd/scan/main.go, which printed one hardcoded WETH/USDC or WETH/USDT
// pair's reserves and a naive price-diff check instead of running the
// real max-profit solver over a registry of pairs.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/pulkyeet/arbrito/internal/chainfeed"
	"github.com/pulkyeet/arbrito/internal/config"
	"github.com/pulkyeet/arbrito/internal/eth"
	"github.com/pulkyeet/arbrito/internal/evaluate"
	"github.com/pulkyeet/arbrito/internal/registry"
	"github.com/pulkyeet/arbrito/internal/store"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config.toml (optional)")
	blockNum := flag.Uint64("block", 0, "block number to scan (required)")
	gasPriceGwei := flag.Int64("gas-price-gwei", 30, "gas price to evaluate against, in gwei")
	flag.Parse()

	if *blockNum == 0 {
		fmt.Fprintln(os.Stderr, "scan-block: -block is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan-block: config: %v\n", err)
		os.Exit(1)
	}

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan-block: registry: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := eth.Dial(ctx, cfg.WebEndpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan-block: dial: %v\n", err)
		os.Exit(1)
	}

	token0Cache, err := store.NewToken0Cache(256)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan-block: token0 cache: %v\n", err)
		os.Exit(1)
	}
	cfg.Evaluate.Token0Cache = token0Cache

	balance, err := client.BalanceAt(ctx, cfg.ExecutorAccount, new(big.Int).SetUint64(*blockNum))
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan-block: balance: %v\n", err)
		os.Exit(1)
	}
	nonce, err := client.NonceAt(ctx, cfg.ExecutorAccount, new(big.Int).SetUint64(*blockNum))
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan-block: nonce: %v\n", err)
		os.Exit(1)
	}

	b := chainfeed.Block{
		Number:   *blockNum,
		GasPrice: new(big.Int).Mul(big.NewInt(*gasPriceGwei), big.NewInt(1e9)),
		Balance:  balance,
		Nonce:    nonce,
	}

	attempts, err := evaluate.Block(ctx, client, reg, cfg.Evaluate, b)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan-block: evaluate: %v\n", err)
		os.Exit(1)
	}

	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].Result.Compare(attempts[j].Result) > 0
	})

	fmt.Printf("block %d: %d attempts\n\n", *blockNum, len(attempts))
	fmt.Printf("%-42s %-6s %-12s %-24s %s\n", "uniswap pair", "dir", "result", "weth profit", "gas price")
	for _, a := range attempts {
		profit := "-"
		if a.Result.WethProfit != nil {
			profit = a.Result.WethProfit.String()
		}
		gasPrice := "-"
		if a.Result.GasPrice != nil {
			gasPrice = a.Result.GasPrice.String()
		}
		fmt.Printf("%-42s %-6s %-12s %-24s %s\n",
			a.Pair.UniswapPair.Hex(), direction(a), a.Result.Kind.String(), profit, gasPrice)
	}
}

func direction(a evaluate.Attempt) string {
	if a.Pair.Token0 == a.BorrowToken {
		return "0->1"
	}
	return "1->0"
}
