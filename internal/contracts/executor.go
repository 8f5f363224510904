package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BorrowFlag selects which side of the Uniswap pair is lent, per spec
// §4.3: 0 = token0, 1 = token1.
type BorrowFlag uint8

const (
	BorrowToken0 BorrowFlag = 0
	BorrowToken1 BorrowFlag = 1
)

// PerformArgs is the full argument list of the executor's perform call,
// per spec §6's exact ABI signature.
type PerformArgs struct {
	Borrow       BorrowFlag
	Amount       *big.Int
	UniswapPair  common.Address
	BalancerPool common.Address
	Token0       common.Address
	Token1       common.Address
	Reserve0     *big.Int
	Reserve1     *big.Int
	Balance0     *big.Int
	Balance1     *big.Int
}

// PackPerform ABI-encodes a call to Executor.perform, matching the wire
// format spec §6 requires exactly:
//
//	perform(uint8 borrow, uint256 amount,
//	        address uniswap_pair, address balancer_pool,
//	        address token0, address token1,
//	        uint256 reserve0, uint256 reserve1,
//	        uint256 balance0, uint256 balance1)
func PackPerform(args PerformArgs) ([]byte, error) {
	data, err := executor.Pack(
		"perform",
		uint8(args.Borrow),
		args.Amount,
		args.UniswapPair,
		args.BalancerPool,
		args.Token0,
		args.Token1,
		args.Reserve0,
		args.Reserve1,
		args.Balance0,
		args.Balance1,
	)
	if err != nil {
		return nil, fmt.Errorf("contracts: pack perform: %w", err)
	}
	return data, nil
}
