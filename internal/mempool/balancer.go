package mempool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BalancerMethod enumerates the two pool methods this engine decodes.
type BalancerMethod int

const (
	ExactAmountIn BalancerMethod = iota
	ExactAmountOut
)

func (m BalancerMethod) String() string {
	if m == ExactAmountOut {
		return "ExactAmountOut"
	}
	return "ExactAmountIn"
}

var balancerSelectors = map[[4]byte]BalancerMethod{
	{0x82, 0x01, 0xaa, 0x3f}: ExactAmountIn,
	{0x7c, 0x5e, 0x9e, 0xa4}: ExactAmountOut,
}

// BalancerSwap is a decoded swap against a known Balancer-style pool.
// TokenIn/TokenOut are nil when the address didn't resolve to a
// registered token.
type BalancerSwap struct {
	Method   BalancerMethod
	TokenIn  *common.Address
	TokenOut *common.Address
	Pool     common.Address
	TxHash   common.Hash
	GasPrice *big.Int
}

// DecodeBalancerSwap implements spec §4.6's BalancerSwap decoding rule:
// token-in at bytes 16..36, token-out at bytes 48..68, each the low 20
// bytes of its own 32-byte argument slot.
func DecodeBalancerSwap(data []byte, pool common.Address, txHash common.Hash, gasPrice *big.Int, isKnown func(common.Address) bool) (*BalancerSwap, bool) {
	if len(data) < 4 {
		return nil, false
	}
	payload := data[4:]
	if len(payload)%32 != 0 {
		return nil, false
	}
	if len(data) < 68 {
		return nil, false
	}

	var selector [4]byte
	copy(selector[:], data[:4])
	method, ok := balancerSelectors[selector]
	if !ok {
		return nil, false
	}

	var tokenIn, tokenOut *common.Address
	if !anyNonZero(data[4:16]) {
		addr := common.BytesToAddress(data[16:36])
		if isKnown(addr) {
			tokenIn = &addr
		}
	}
	if !anyNonZero(data[36:48]) {
		addr := common.BytesToAddress(data[48:68])
		if isKnown(addr) {
			tokenOut = &addr
		}
	}

	if tokenIn == nil && tokenOut == nil {
		return nil, false
	}

	return &BalancerSwap{Method: method, TokenIn: tokenIn, TokenOut: tokenOut, Pool: pool, TxHash: txHash, GasPrice: gasPrice}, true
}

// Conflicts implements spec §4.6's BalancerSwap conflict test: only a
// swap against the same pool can conflict; within that, it's
// SameDirection when (in, out) matches (borrowToken, profitToken) and
// OppositeDirection otherwise.
func (s *BalancerSwap) Conflicts(borrowToken, profitToken, balancerPool common.Address) MatchKind {
	if s.Pool != balancerPool {
		return NoConflict
	}
	if s.TokenIn != nil && *s.TokenIn == borrowToken && s.TokenOut != nil && *s.TokenOut == profitToken {
		return SameDirection
	}
	return OppositeDirection
}
