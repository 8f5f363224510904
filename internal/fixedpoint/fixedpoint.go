// Package fixedpoint implements the 256-bit fixed-point arithmetic shared
// by the Uniswap v2 constant-product formulas and the Balancer weighted
// out-given-in formula. All inputs and outputs are unsigned uint256;
// every multiply-then-divide is carried out over math/big so that a
// product never silently wraps before the division shrinks it back down,
// and the final result is checked against the uint256 range.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// Bone is 10^18, Balancer's fixed-point one.
var Bone = uint256.NewInt(1_000_000_000_000_000_000)

// ErrOverflow is returned whenever a computation cannot be represented in
// 256 bits, or a subtraction would underflow. Callers treat this the
// same as NotProfit (spec §4.1 overflow policy).
var ErrOverflow = errors.New("fixedpoint: overflow")

// mulDivRound returns floor((a*b + add) / d) as a uint256, computing the
// numerator in arbitrary precision so a*b can never wrap before the
// division narrows it. add may be nil for a plain floor(a*b/d).
func mulDivRound(a, b, add, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrOverflow
	}

	prod := new(big.Int).Mul(a.ToBig(), b.ToBig())
	if add != nil {
		prod.Add(prod, add.ToBig())
	}
	prod.Div(prod, d.ToBig())

	out, overflow := uint256.FromBig(prod)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// Bmul is Balancer's rounded fixed-point multiply: (a*b + BONE/2) / BONE.
func Bmul(a, b *uint256.Int) (*uint256.Int, error) {
	half := new(uint256.Int).Rsh(Bone, 1)
	return mulDivRound(a, b, half, Bone)
}

// Bdiv is Balancer's rounded fixed-point divide: (a*BONE + b/2) / b.
func Bdiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrOverflow
	}
	half := new(uint256.Int).Rsh(b, 1)
	return mulDivRound(a, Bone, half, b)
}

// UniswapInGivenOut returns the Uniswap v2 exact-in amount required to
// receive `out` from a pool with fee 0.3%, reserves (ri, ro):
//
//	in = (out*ri*1000) / ((ro-out)*997) + 1
//
// The +1 ceiling protects the constant-product invariant against
// rounding in the trader's favor. Returns ErrOverflow if out >= ro (the
// pool cannot supply `out`) or an intermediate overflows.
func UniswapInGivenOut(ri, ro, out *uint256.Int) (*uint256.Int, error) {
	if out.Cmp(ro) >= 0 {
		return nil, ErrOverflow
	}

	numerator := new(big.Int).Mul(out.ToBig(), ri.ToBig())
	numerator.Mul(numerator, big.NewInt(1000))

	diff := new(uint256.Int).Sub(ro, out)
	denom := new(big.Int).Mul(diff.ToBig(), big.NewInt(997))
	if denom.Sign() == 0 {
		return nil, ErrOverflow
	}

	in := new(big.Int).Div(numerator, denom)
	in.Add(in, big.NewInt(1))

	out256, overflow := uint256.FromBig(in)
	if overflow {
		return nil, ErrOverflow
	}
	return out256, nil
}

// UniswapOutGivenIn returns the Uniswap v2 exact-out amount obtained by
// paying `in` into a pool with fee 0.3%, reserves (ri, ro):
//
//	out = (in*997 * ro) / (ri*1000 + in*997)
func UniswapOutGivenIn(ri, ro, in *uint256.Int) (*uint256.Int, error) {
	inWithFee := new(big.Int).Mul(in.ToBig(), big.NewInt(997))

	numerator := new(big.Int).Mul(inWithFee, ro.ToBig())

	riScaled := new(big.Int).Mul(ri.ToBig(), big.NewInt(1000))
	denom := new(big.Int).Add(riScaled, inWithFee)
	if denom.Sign() == 0 {
		return nil, ErrOverflow
	}

	result := new(big.Int).Div(numerator, denom)

	out, overflow := uint256.FromBig(result)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// BalancerOutGivenIn implements the equal-weight Balancer weighted-pool
// out-given-in formula:
//
//	out = bmul(bo, BONE - bdiv(bi, bi + bmul(in, BONE - s)))
//
// bi, bo are the input-token and output-token balances, s is the swap
// fee in BONE units, in is the amount swapped in.
func BalancerOutGivenIn(bi, bo, s, in *uint256.Int) (*uint256.Int, error) {
	if s.Cmp(Bone) >= 0 {
		return nil, ErrOverflow
	}
	feeComplement := new(uint256.Int).Sub(Bone, s)

	adjustedIn, err := Bmul(in, feeComplement)
	if err != nil {
		return nil, err
	}

	denom, carry := new(uint256.Int).AddOverflow(bi, adjustedIn)
	if carry {
		return nil, ErrOverflow
	}

	ratio, err := Bdiv(bi, denom)
	if err != nil {
		return nil, err
	}
	if ratio.Cmp(Bone) > 0 {
		return nil, ErrOverflow
	}
	complement := new(uint256.Int).Sub(Bone, ratio)

	return Bmul(bo, complement)
}
