package fixedpoint

import (
	"testing"

	"github.com/holiman/uint256"
)

func u(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestBmulBdivRoundTrip(t *testing.T) {
	a := u("1234567890123456789")
	b := u("987654321098765432")

	prod, err := Bmul(a, b)
	if err != nil {
		t.Fatalf("Bmul failed: %v", err)
	}

	back, err := Bdiv(prod, b)
	if err != nil {
		t.Fatalf("Bdiv failed: %v", err)
	}

	diff := new(uint256.Int).Sub(a, back)
	if diff.Sign() < 0 {
		diff = new(uint256.Int).Sub(back, a)
	}
	if diff.Cmp(uint256.NewInt(2)) > 0 {
		t.Errorf("round trip drifted too far: a=%s back=%s", a, back)
	}
}

func TestUniswapOutGivenInMonotonic(t *testing.T) {
	ri := u("185214260915118229728572")
	ro := u("560407980246")

	small, err := UniswapOutGivenIn(ri, ro, uint256.NewInt(1000))
	if err != nil {
		t.Fatalf("UniswapOutGivenIn(small): %v", err)
	}
	big, err := UniswapOutGivenIn(ri, ro, uint256.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("UniswapOutGivenIn(big): %v", err)
	}

	if big.Cmp(small) <= 0 {
		t.Errorf("expected larger input to yield larger output: small=%s big=%s", small, big)
	}
}

func TestUniswapInGivenOutRejectsFullDrain(t *testing.T) {
	ri := u("1000000")
	ro := u("1000000")

	if _, err := UniswapInGivenOut(ri, ro, ro); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow draining the entire output reserve, got %v", err)
	}
}

func TestUniswapRoundTripNeverOverpays(t *testing.T) {
	ri := u("185214260915118229728572")
	ro := u("560407980246")

	out := uint256.NewInt(860531)
	in, err := UniswapInGivenOut(ri, ro, out)
	if err != nil {
		t.Fatalf("UniswapInGivenOut: %v", err)
	}

	gotOut, err := UniswapOutGivenIn(ri, ro, in)
	if err != nil {
		t.Fatalf("UniswapOutGivenIn: %v", err)
	}

	if gotOut.Cmp(out) < 0 {
		t.Errorf("paying the quoted exact-in amount should return at least the requested amount: want >= %s got %s", out, gotOut)
	}
}

func TestBalancerOutGivenInMatchesSpecVector(t *testing.T) {
	bi := u("2032847980")
	bo := u("674650730267410526933")
	s := u("300000000000000")
	in := uint256.NewInt(860531)

	out, err := BalancerOutGivenIn(bi, bo, s, in)
	if err != nil {
		t.Fatalf("BalancerOutGivenIn: %v", err)
	}

	payback, err := UniswapInGivenOut(u("185214260915118229728572"), u("560407980246"), in)
	if err != nil {
		t.Fatalf("UniswapInGivenOut: %v", err)
	}

	profit := new(uint256.Int).Sub(out, payback)
	want := u("121209478698546")
	if profit.Cmp(want) != 0 {
		t.Errorf("profit = %s, want %s", profit, want)
	}
}

func TestBalancerOutGivenInRejectsFullFee(t *testing.T) {
	bi := u("1000")
	bo := u("1000")
	if _, err := BalancerOutGivenIn(bi, bo, Bone, uint256.NewInt(1)); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow at swap fee == BONE, got %v", err)
	}
}
