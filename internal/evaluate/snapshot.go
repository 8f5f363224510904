package evaluate

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// UniswapPairSnapshot is a Uniswap-style pair's reserves at one block,
// per spec §3.
type UniswapPairSnapshot struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
	Token0   common.Address
}

// BalancerPoolSnapshot is a Balancer-style pool's per-token balances and
// swap fee at one block, per spec §3.
type BalancerPoolSnapshot struct {
	Balances map[common.Address]*uint256.Int
	SwapFee  *uint256.Int
}
