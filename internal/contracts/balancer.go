package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// GetBalance calls BalancerPool.getBalance(token) at blockNum.
func GetBalance(ctx context.Context, c caller, pool, token common.Address, blockNum *big.Int) (*big.Int, error) {
	data, err := balancerPool.Pack("getBalance", token)
	if err != nil {
		return nil, fmt.Errorf("contracts: pack getBalance: %w", err)
	}

	result, err := c.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, blockNum)
	if err != nil {
		return nil, fmt.Errorf("contracts: call getBalance(%s, %s): %w", pool, token, err)
	}

	unpacked, err := balancerPool.Unpack("getBalance", result)
	if err != nil {
		return nil, fmt.Errorf("contracts: unpack getBalance(%s, %s): %w", pool, token, err)
	}
	if len(unpacked) < 1 {
		return nil, fmt.Errorf("contracts: getBalance(%s, %s) returned no value", pool, token)
	}

	bal, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("contracts: getBalance(%s, %s) type assertion failed", pool, token)
	}
	return bal, nil
}

// GetSwapFee calls BalancerPool.getSwapFee() at blockNum; the result is
// in BONE (1e18) fixed-point, per spec §3.
func GetSwapFee(ctx context.Context, c caller, pool common.Address, blockNum *big.Int) (*big.Int, error) {
	data, err := balancerPool.Pack("getSwapFee")
	if err != nil {
		return nil, fmt.Errorf("contracts: pack getSwapFee: %w", err)
	}

	result, err := c.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, blockNum)
	if err != nil {
		return nil, fmt.Errorf("contracts: call getSwapFee(%s): %w", pool, err)
	}

	unpacked, err := balancerPool.Unpack("getSwapFee", result)
	if err != nil {
		return nil, fmt.Errorf("contracts: unpack getSwapFee(%s): %w", pool, err)
	}
	if len(unpacked) < 1 {
		return nil, fmt.Errorf("contracts: getSwapFee(%s) returned no value", pool)
	}

	fee, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("contracts: getSwapFee(%s) type assertion failed", pool)
	}
	return fee, nil
}
