package eth

import "github.com/ethereum/go-ethereum/common"

// Default mainnet addresses, used by internal/config as fallbacks when a
// config.toml doesn't override them.
var (
	WETHAddress  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDCAddress  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	RouterAddress = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
)
