// Command arbrito is the live daemon: it loads configuration and the
// pair registry, dials the node, and runs the engine loop until the
// process is killed or a stream terminates, at which point it exits
// non-zero for the process supervisor to restart, per spec §7.
// Grounded on the teacher's cmd/backtest/main.go's flag-parse ->
// connect -> construct -> run shape, adapted from a bounded historical
// backtest run to an unbounded live loop.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/pulkyeet/arbrito/internal/chainfeed"
	"github.com/pulkyeet/arbrito/internal/config"
	"github.com/pulkyeet/arbrito/internal/engine"
	"github.com/pulkyeet/arbrito/internal/eth"
	"github.com/pulkyeet/arbrito/internal/gate"
	"github.com/pulkyeet/arbrito/internal/logging"
	"github.com/pulkyeet/arbrito/internal/registry"
	"github.com/pulkyeet/arbrito/internal/store"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config.toml (optional)")
	token0CacheSize := flag.Int("token0-cache-size", 1024, "max pairs held in the token0 LRU")
	flag.Parse()

	logging.Init(logging.ModeFromEnv(), os.Getenv("ARBRITO_LOG_LEVEL"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("arbrito: config")
	}

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		log.Fatal().Err(err).Msg("arbrito: registry")
	}
	if err := reg.ValidateWeth(cfg.Evaluate.WethAddress); err != nil {
		log.Fatal().Err(err).Msg("arbrito: registry does not agree with configured WETH address")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := eth.Dial(ctx, cfg.WebEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("arbrito: dial")
	}

	token0Cache, err := store.NewToken0Cache(*token0CacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("arbrito: token0 cache")
	}
	cfg.Evaluate.Token0Cache = token0Cache

	g := gate.New(client, cfg.ExecutorAccount, cfg.ExecPassword, cfg.ArbContract)

	source, err := chainfeed.NewSource(ctx, client, cfg.ExecutorAccount)
	if err != nil {
		log.Fatal().Err(err).Msg("arbrito: chainfeed")
	}
	defer source.Stop()

	log.Info().
		Int("pairs", len(reg.Pairs())).
		Str("executor", cfg.ExecutorAccount.Hex()).
		Str("arb_contract", cfg.ArbContract.Hex()).
		Msg("arbrito: starting")

	e := engine.New(client, reg, cfg.Evaluate, g, source, cfg.Router)
	if err := e.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("arbrito: engine loop terminated")
	}
}
