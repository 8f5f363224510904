package evaluate

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/pulkyeet/arbrito/internal/store"
)

// Config holds the tunable constants from spec §4.5; defaults match the
// spec's listed values. internal/config constructs one of these from
// env/TOML/flags and passes it down to every attempt.
type Config struct {
	WethAddress common.Address

	MinGasScale      uint64
	MaxGasScale      uint64
	ExpectedGasUsage uint64
	MaxGasUsage      uint64
	TargetWethProfit *uint256.Int

	// Token0Cache is consulted before issuing a token0() eth_call for a
	// Uniswap-style pair; nil disables the cache and every block refetches.
	Token0Cache *store.Token0Cache
}

func DefaultConfig() Config {
	return Config{
		MinGasScale:      2,
		MaxGasScale:      5,
		ExpectedGasUsage: 350_000,
		MaxGasUsage:      400_000,
		TargetWethProfit: uint256.NewInt(10_000_000_000_000_000), // 1e16 wei
	}
}
