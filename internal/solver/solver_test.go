package solver

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

// S1: a known-profitable pair of venues, exact vector from the original
// implementation's own unit test.
func TestMaxProfitS1(t *testing.T) {
	ri := u("185214260915118229728572")
	ro := u("560407980246")
	bi := u("2032847980")
	bo := u("674650730267410526933")
	s := u("300000000000000")

	got := MaxProfit(ri, ro, bi, bo, s)
	if !got.Profitable {
		t.Fatalf("expected a profitable solve")
	}
	if got.Borrow.Cmp(u("860531")) != 0 {
		t.Errorf("borrow = %s, want 860531", got.Borrow)
	}
	if got.Profit.Cmp(u("121209478698546")) != 0 {
		t.Errorf("profit = %s, want 121209478698546", got.Profit)
	}
	if got.Borrow.Cmp(ro) > 0 {
		t.Errorf("borrow %s exceeds the Uniswap side's output reserve %s", got.Borrow, ro)
	}
}

// S2: swapping bi/bo relative to S1 flips the Balancer venue from cheap to
// expensive on the output token, so no profitable borrow size exists.
func TestMaxProfitS2NoProfit(t *testing.T) {
	ri := u("185214260915118229728572")
	ro := u("560407980246")
	bi := u("674650730267410526933")
	bo := u("2032847980")
	s := u("300000000000000")

	got := MaxProfit(ri, ro, bi, bo, s)
	if got.Profitable {
		t.Fatalf("expected NotProfit, got borrow=%s profit=%s", got.Borrow, got.Profit)
	}
}

// Identical reserves on both venues (no fee-free arbitrage window at all)
// must never report a profitable trade.
func TestMaxProfitIdenticalVenuesNoProfit(t *testing.T) {
	ri := u("1000000000000000000000")
	ro := u("1000000000000000000000")
	bi := u("1000000000000000000000")
	bo := u("1000000000000000000000")
	s := u("3000000000000000")

	got := MaxProfit(ri, ro, bi, bo, s)
	if got.Profitable {
		t.Fatalf("expected NotProfit for identical reserves, got borrow=%s profit=%s", got.Borrow, got.Profit)
	}
}

// Soundness: whenever MaxProfit reports Profitable, the borrow size must
// lie within the Uniswap pool's output reserve and profit must be strictly
// positive (balancerOut - payback).
func TestMaxProfitSoundness(t *testing.T) {
	cases := []struct {
		ri, ro, bi, bo, s string
	}{
		{"185214260915118229728572", "560407980246", "2032847980", "674650730267410526933", "300000000000000"},
		{"50000000000000000000", "90000000000000000000", "40000000000000000000", "95000000000000000000", "1000000000000000"},
	}

	for _, c := range cases {
		got := MaxProfit(u(c.ri), u(c.ro), u(c.bi), u(c.bo), u(c.s))
		if !got.Profitable {
			continue
		}
		if got.Borrow.Sign() <= 0 || got.Borrow.Cmp(u(c.ro)) > 0 {
			t.Errorf("case %+v: borrow %s out of (0, ro] range", c, got.Borrow)
		}
		if got.Profit.Sign() <= 0 {
			t.Errorf("case %+v: reported profitable with non-positive profit %s", c, got.Profit)
		}
	}
}

// All-zero reserves make every coefficient (including A) zero; the solver
// must fall back to NotProfit rather than dividing by zero.
func TestRootRejectsZeroA(t *testing.T) {
	zero := u("0")
	got := MaxProfit(zero, zero, zero, zero, zero)
	if got.Profitable {
		t.Fatalf("expected NotProfit when all reserves/balances are zero")
	}
}
