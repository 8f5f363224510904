// Package mempool decodes raw pending transactions targeting the two
// AMM families into typed swap descriptors, and tests them for conflict
// against a candidate arbitrage, per the original implementation's
// txs.rs/pending_tx.rs selector tables and token-path decoding.
package mempool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MatchKind is the outcome of a conflict test against a candidate
// arbitrage (borrow_token, profit_token[, pool]).
type MatchKind int

const (
	NoConflict MatchKind = iota
	SameDirection
	OppositeDirection
)

func (k MatchKind) String() string {
	switch k {
	case SameDirection:
		return "SameDirection"
	case OppositeDirection:
		return "OppositeDirection"
	default:
		return "NoConflict"
	}
}

// UniswapMethod enumerates the six router methods this engine decodes.
type UniswapMethod int

const (
	ExactTokensForTokens UniswapMethod = iota
	ExactETHForTokens
	ExactTokensForETH
	TokensForExactTokens
	TokensForExactETH
	ETHForExactTokens
)

func (m UniswapMethod) String() string {
	switch m {
	case ExactTokensForTokens:
		return "ExactTokensForTokens"
	case ExactETHForTokens:
		return "ExactETHForTokens"
	case ExactTokensForETH:
		return "ExactTokensForETH"
	case TokensForExactTokens:
		return "TokensForExactTokens"
	case TokensForExactETH:
		return "TokensForExactETH"
	case ETHForExactTokens:
		return "ETHForExactTokens"
	default:
		return "Unknown"
	}
}

type uniswapMethodInfo struct {
	method       UniswapMethod
	tokensOffset int // 32-byte slot offset (1-indexed) of the first path entry
}

// uniswapSelectors is the fixed six-member method table from spec §4.6,
// keyed by the first 4 bytes of calldata.
var uniswapSelectors = map[[4]byte]uniswapMethodInfo{
	{0x88, 0x03, 0xdb, 0xee}: {TokensForExactTokens, 7},
	{0x38, 0xed, 0x17, 0x39}: {ExactTokensForTokens, 7},
	{0x4a, 0x25, 0xd9, 0x4a}: {TokensForExactETH, 7},
	{0x18, 0xcb, 0xaf, 0xe5}: {ExactTokensForETH, 7},
	{0xfb, 0x3b, 0xdb, 0x41}: {ETHForExactTokens, 6},
	{0x7f, 0xf3, 0x6a, 0xb5}: {ExactETHForTokens, 6},
}

// UniswapSwap is a decoded swap against a known Uniswap-style router.
// Tokens holds one entry per path slot; a nil entry is a slot whose
// address didn't resolve to a registered token (or had a non-zero
// 12-byte prefix).
type UniswapSwap struct {
	Method   UniswapMethod
	Tokens   []*common.Address
	TxHash   common.Hash
	GasPrice *big.Int
}

// DecodeUniswapSwap implements spec §4.6's UniswapSwap decoding rule.
// isKnown reports whether an address is a registered token; addresses
// that aren't yield a nil slot rather than being dropped outright.
func DecodeUniswapSwap(data []byte, txHash common.Hash, gasPrice *big.Int, isKnown func(common.Address) bool) (*UniswapSwap, bool) {
	if len(data) < 4 {
		return nil, false
	}
	payload := data[4:]
	if len(payload)%32 != 0 {
		return nil, false
	}

	var selector [4]byte
	copy(selector[:], data[:4])
	info, ok := uniswapSelectors[selector]
	if !ok {
		return nil, false
	}

	slots := len(payload) / 32
	start := info.tokensOffset - 1
	if start >= slots {
		return nil, false
	}

	tokens := make([]*common.Address, 0, slots-start)
	anyKnown := false
	for i := start; i < slots; i++ {
		chunk := payload[i*32 : (i+1)*32]
		if anyNonZero(chunk[0:12]) {
			tokens = append(tokens, nil)
			continue
		}
		addr := common.BytesToAddress(chunk[12:32])
		if !isKnown(addr) {
			tokens = append(tokens, nil)
			continue
		}
		a := addr
		tokens = append(tokens, &a)
		anyKnown = true
	}

	if !anyKnown {
		return nil, false
	}

	return &UniswapSwap{Method: info.method, Tokens: tokens, TxHash: txHash, GasPrice: gasPrice}, true
}

// Conflicts implements spec §4.6's UniswapSwap conflict test: any
// consecutive pair of decoded tokens matching (borrowToken, profitToken)
// in either direction conflicts.
func (s *UniswapSwap) Conflicts(borrowToken, profitToken common.Address) MatchKind {
	for i := 0; i+1 < len(s.Tokens); i++ {
		from, to := s.Tokens[i], s.Tokens[i+1]
		if from == nil || to == nil {
			continue
		}
		if *from == borrowToken && *to == profitToken {
			return SameDirection
		}
		if *from == profitToken && *to == borrowToken {
			return OppositeDirection
		}
	}
	return NoConflict
}

func anyNonZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return true
		}
	}
	return false
}
