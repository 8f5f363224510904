package mempool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	tokenWeth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	tokenUsdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	tokenDai  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0f")
)

func knownSet(addrs ...common.Address) func(common.Address) bool {
	set := make(map[common.Address]bool, len(addrs))
	for _, a := range addrs {
		set[a] = true
	}
	return func(a common.Address) bool { return set[a] }
}

func addrSlot(addr common.Address) []byte {
	slot := make([]byte, 32)
	copy(slot[12:], addr.Bytes())
	return slot
}

func uintSlot(v uint64) []byte {
	slot := make([]byte, 32)
	big.NewInt(0).SetUint64(v).FillBytes(slot)
	return slot
}

// swapExactETHForTokens(uint256 amountOutMin, address[] path, address to, uint256 deadline)
// selector 0x7ff36ab5; tokensOffset 6 means slots[5:] hold the path entries
// once ABI-encoded with a fixed head (amountOutMin, offset, to, deadline,
// length, path...) collapsed to the flat per-slot layout this decoder expects.
func buildUniswapCalldata(selector [4]byte, leadingSlots int, path []common.Address) []byte {
	data := append([]byte{}, selector[:]...)
	for i := 0; i < leadingSlots; i++ {
		data = append(data, uintSlot(0)...)
	}
	for _, addr := range path {
		data = append(data, addrSlot(addr)...)
	}
	return data
}

func TestDecodeUniswapSwapExactETHForTokensTwoHops(t *testing.T) {
	selector := [4]byte{0x7f, 0xf3, 0x6a, 0xb5}
	data := buildUniswapCalldata(selector, 5, []common.Address{tokenWeth, tokenUsdc})

	swap, ok := DecodeUniswapSwap(data, common.Hash{}, big.NewInt(1), knownSet(tokenWeth, tokenUsdc))
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if swap.Method != ExactETHForTokens {
		t.Errorf("method = %s, want ExactETHForTokens", swap.Method)
	}
	if len(swap.Tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(swap.Tokens))
	}
	if swap.Tokens[0] == nil || *swap.Tokens[0] != tokenWeth {
		t.Errorf("tokens[0] = %v, want %s", swap.Tokens[0], tokenWeth)
	}
	if swap.Tokens[1] == nil || *swap.Tokens[1] != tokenUsdc {
		t.Errorf("tokens[1] = %v, want %s", swap.Tokens[1], tokenUsdc)
	}
}

func TestDecodeUniswapSwapUnknownSelectorRejected(t *testing.T) {
	data := buildUniswapCalldata([4]byte{0xde, 0xad, 0xbe, 0xef}, 5, []common.Address{tokenWeth, tokenUsdc})
	if _, ok := DecodeUniswapSwap(data, common.Hash{}, big.NewInt(1), knownSet(tokenWeth, tokenUsdc)); ok {
		t.Error("expected unknown selector to fail decode")
	}
}

func TestDecodeUniswapSwapAllUnknownTokensRejected(t *testing.T) {
	selector := [4]byte{0x7f, 0xf3, 0x6a, 0xb5}
	other := common.HexToAddress("0x1111111111111111111111111111111111111111")
	data := buildUniswapCalldata(selector, 5, []common.Address{other, other})
	if _, ok := DecodeUniswapSwap(data, common.Hash{}, big.NewInt(1), knownSet(tokenWeth, tokenUsdc)); ok {
		t.Error("expected decode to fail when no path slot resolves to a known token")
	}
}

func TestUniswapSwapConflictsSameDirection(t *testing.T) {
	swap := &UniswapSwap{Tokens: []*common.Address{&tokenWeth, &tokenUsdc}}
	if got := swap.Conflicts(tokenWeth, tokenUsdc); got != SameDirection {
		t.Errorf("Conflicts = %s, want SameDirection", got)
	}
}

func TestUniswapSwapConflictsOppositeDirection(t *testing.T) {
	swap := &UniswapSwap{Tokens: []*common.Address{&tokenWeth, &tokenUsdc}}
	if got := swap.Conflicts(tokenUsdc, tokenWeth); got != OppositeDirection {
		t.Errorf("Conflicts = %s, want OppositeDirection", got)
	}
}

func TestUniswapSwapConflictsNone(t *testing.T) {
	swap := &UniswapSwap{Tokens: []*common.Address{&tokenWeth, &tokenUsdc}}
	if got := swap.Conflicts(tokenUsdc, tokenDai); got != NoConflict {
		t.Errorf("Conflicts = %s, want NoConflict", got)
	}
}

// property 7: conflicts(a,b) == OppositeDirection iff conflicts(b,a) == SameDirection.
func TestUniswapSwapConflictsSymmetry(t *testing.T) {
	swap := &UniswapSwap{Tokens: []*common.Address{&tokenWeth, &tokenUsdc, &tokenDai}}

	pairs := []struct{ a, b common.Address }{
		{tokenWeth, tokenUsdc},
		{tokenUsdc, tokenWeth},
		{tokenUsdc, tokenDai},
		{tokenWeth, tokenDai},
	}
	for _, p := range pairs {
		forward := swap.Conflicts(p.a, p.b)
		backward := swap.Conflicts(p.b, p.a)
		if (forward == OppositeDirection) != (backward == SameDirection) {
			t.Errorf("asymmetry for (%s,%s): forward=%s backward=%s", p.a, p.b, forward, backward)
		}
	}
}

func buildBalancerCalldata(selector [4]byte, tokenIn, tokenOut common.Address) []byte {
	data := append([]byte{}, selector[:]...)
	data = append(data, addrSlot(tokenIn)...)  // bytes 4:36
	data = append(data, addrSlot(tokenOut)...) // bytes 36:68
	return data
}

func TestDecodeBalancerSwap(t *testing.T) {
	selector := [4]byte{0x82, 0x01, 0xaa, 0x3f}
	pool := common.HexToAddress("0x9999999999999999999999999999999999999911")
	data := buildBalancerCalldata(selector, tokenWeth, tokenDai)

	swap, ok := DecodeBalancerSwap(data, pool, common.Hash{}, big.NewInt(1), knownSet(tokenWeth, tokenDai))
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if swap.Method != ExactAmountIn {
		t.Errorf("method = %s, want ExactAmountIn", swap.Method)
	}
	if swap.TokenIn == nil || *swap.TokenIn != tokenWeth {
		t.Errorf("tokenIn = %v, want %s", swap.TokenIn, tokenWeth)
	}
	if swap.TokenOut == nil || *swap.TokenOut != tokenDai {
		t.Errorf("tokenOut = %v, want %s", swap.TokenOut, tokenDai)
	}
}

func TestDecodeBalancerSwapUnknownSelectorRejected(t *testing.T) {
	pool := common.HexToAddress("0x1")
	data := buildBalancerCalldata([4]byte{0xde, 0xad, 0xbe, 0xef}, tokenWeth, tokenDai)
	if _, ok := DecodeBalancerSwap(data, pool, common.Hash{}, big.NewInt(1), knownSet(tokenWeth, tokenDai)); ok {
		t.Error("expected unknown selector to fail decode")
	}
}

// scenario: candidate (borrow=T_A, profit=T_B, pool=P1); pending BalancerSwap
// on P1 with (in=T_A, out=T_B) conflicts SameDirection; a matching swap on a
// different pool does not conflict at all.
func TestBalancerSwapConflictsOnMatchingPool(t *testing.T) {
	pool1 := common.HexToAddress("0x1111111111111111111111111111111111111111")
	pool2 := common.HexToAddress("0x2222222222222222222222222222222222222222")

	swap := &BalancerSwap{TokenIn: &tokenWeth, TokenOut: &tokenDai, Pool: pool1}

	if got := swap.Conflicts(tokenWeth, tokenDai, pool1); got != SameDirection {
		t.Errorf("Conflicts(same pool, matching direction) = %s, want SameDirection", got)
	}
	if got := swap.Conflicts(tokenDai, tokenWeth, pool1); got != OppositeDirection {
		t.Errorf("Conflicts(same pool, reverse direction) = %s, want OppositeDirection", got)
	}
	if got := swap.Conflicts(tokenWeth, tokenDai, pool2); got != NoConflict {
		t.Errorf("Conflicts(different pool) = %s, want NoConflict", got)
	}
}
