package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// caller is the subset of internal/eth.Client a contracts call needs;
// declared locally so this package doesn't import internal/eth, keeping
// the ABI-wrapping concern decoupled from the RPC transport.
type caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// UniswapReserves is the (reserve0, reserve1) pair read from getReserves,
// with the blockTimestampLast field dropped — the engine only ever reads
// the latest reserves at a fixed block, never the timestamp.
type UniswapReserves struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// GetReserves calls UniswapPair.getReserves() at blockNum.
func GetReserves(ctx context.Context, c caller, pair common.Address, blockNum *big.Int) (UniswapReserves, error) {
	data, err := uniswapPair.Pack("getReserves")
	if err != nil {
		return UniswapReserves{}, fmt.Errorf("contracts: pack getReserves: %w", err)
	}

	result, err := c.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: data}, blockNum)
	if err != nil {
		return UniswapReserves{}, fmt.Errorf("contracts: call getReserves(%s): %w", pair, err)
	}

	unpacked, err := uniswapPair.Unpack("getReserves", result)
	if err != nil {
		return UniswapReserves{}, fmt.Errorf("contracts: unpack getReserves(%s): %w", pair, err)
	}
	if len(unpacked) < 2 {
		return UniswapReserves{}, fmt.Errorf("contracts: getReserves(%s) returned %d values", pair, len(unpacked))
	}

	r0, ok := unpacked[0].(*big.Int)
	if !ok {
		return UniswapReserves{}, fmt.Errorf("contracts: getReserves(%s) reserve0 type assertion failed", pair)
	}
	r1, ok := unpacked[1].(*big.Int)
	if !ok {
		return UniswapReserves{}, fmt.Errorf("contracts: getReserves(%s) reserve1 type assertion failed", pair)
	}

	return UniswapReserves{Reserve0: r0, Reserve1: r1}, nil
}

// GetToken0 calls UniswapPair.token0() at blockNum — used by C5 to
// orient a profit-conversion pair's reserves.
func GetToken0(ctx context.Context, c caller, pair common.Address, blockNum *big.Int) (common.Address, error) {
	data, err := uniswapPair.Pack("token0")
	if err != nil {
		return common.Address{}, fmt.Errorf("contracts: pack token0: %w", err)
	}

	result, err := c.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: data}, blockNum)
	if err != nil {
		return common.Address{}, fmt.Errorf("contracts: call token0(%s): %w", pair, err)
	}

	unpacked, err := uniswapPair.Unpack("token0", result)
	if err != nil {
		return common.Address{}, fmt.Errorf("contracts: unpack token0(%s): %w", pair, err)
	}
	if len(unpacked) < 1 {
		return common.Address{}, fmt.Errorf("contracts: token0(%s) returned no value", pair)
	}

	addr, ok := unpacked[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("contracts: token0(%s) type assertion failed", pair)
	}
	return addr, nil
}
