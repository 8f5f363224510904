// Package config layers environment variables, an optional TOML file,
// and the spec's default constants into one Config, generalizing the
// teacher's bare `godotenv.Load()` + `os.Getenv("ALCHEMY_URL")` dial
// pattern (internal/eth/client.go's DialEnv) to also cover the
// addresses and tunables spec §6 lists as "compile-time or config-file
// constants."
package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/pulkyeet/arbrito/internal/eth"
	"github.com/pulkyeet/arbrito/internal/evaluate"
)

// Config is everything the daemon needs beyond the registry file.
type Config struct {
	WebEndpoint  string
	ExecPassword string

	ExecutorAccount common.Address
	ArbContract     common.Address
	Router          common.Address

	RegistryPath string
	LogLevel     string

	Evaluate evaluate.Config
}

// file is the on-disk shape of config.toml. Every field is optional;
// unset fields keep their spec §4.5 default (via evaluate.DefaultConfig)
// or the mainnet fallback from internal/eth.
type file struct {
	ExecutorAccount *common.Address `toml:"executor_account"`
	ArbContract     *common.Address `toml:"arb_contract"`
	Router          *common.Address `toml:"router"`
	Weth            *common.Address `toml:"weth"`
	RegistryPath    string          `toml:"registry_path"`
	LogLevel        string          `toml:"log_level"`

	Evaluate *evaluateFile `toml:"evaluate"`
}

type evaluateFile struct {
	MinGasScale      *uint64 `toml:"min_gas_scale"`
	MaxGasScale      *uint64 `toml:"max_gas_scale"`
	ExpectedGasUsage *uint64 `toml:"expected_gas_usage"`
	MaxGasUsage      *uint64 `toml:"max_gas_usage"`
	TargetWethProfit *string `toml:"target_weth_profit"`
}

// Load reads an optional TOML file at path (a missing file is not an
// error — every field just keeps its default) and required environment
// variables, per spec §6. A missing WEB3_ENDPOINT or
// ARBRITO_EXEC_PASSWORD is a fatal startup error.
func Load(path string) (Config, error) {
	godotenv.Load()

	cfg := Config{
		ArbContract:  common.Address{},
		Router:       eth.RouterAddress,
		RegistryPath: "registry.toml",
		LogLevel:     "info",
		Evaluate:     evaluate.DefaultConfig(),
	}
	cfg.Evaluate.WethAddress = eth.WETHAddress

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			var f file
			if err := toml.Unmarshal(raw, &f); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
			applyFile(&cfg, f)
		case os.IsNotExist(err):
			// no config.toml, defaults stand
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg.WebEndpoint = os.Getenv("WEB3_ENDPOINT")
	if cfg.WebEndpoint == "" {
		return Config{}, fmt.Errorf("config: WEB3_ENDPOINT not set")
	}

	cfg.ExecPassword = os.Getenv("ARBRITO_EXEC_PASSWORD")
	if cfg.ExecPassword == "" {
		return Config{}, fmt.Errorf("config: ARBRITO_EXEC_PASSWORD not set")
	}

	return cfg, nil
}

func applyFile(cfg *Config, f file) {
	if f.ExecutorAccount != nil {
		cfg.ExecutorAccount = *f.ExecutorAccount
	}
	if f.ArbContract != nil {
		cfg.ArbContract = *f.ArbContract
	}
	if f.Router != nil {
		cfg.Router = *f.Router
	}
	if f.Weth != nil {
		cfg.Evaluate.WethAddress = *f.Weth
	}
	if f.RegistryPath != "" {
		cfg.RegistryPath = f.RegistryPath
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.Evaluate == nil {
		return
	}
	e := f.Evaluate
	if e.MinGasScale != nil {
		cfg.Evaluate.MinGasScale = *e.MinGasScale
	}
	if e.MaxGasScale != nil {
		cfg.Evaluate.MaxGasScale = *e.MaxGasScale
	}
	if e.ExpectedGasUsage != nil {
		cfg.Evaluate.ExpectedGasUsage = *e.ExpectedGasUsage
	}
	if e.MaxGasUsage != nil {
		cfg.Evaluate.MaxGasUsage = *e.MaxGasUsage
	}
	if e.TargetWethProfit != nil {
		if v, err := uint256.FromDecimal(*e.TargetWethProfit); err == nil {
			cfg.Evaluate.TargetWethProfit = v
		}
	}
}
