// Package solver implements the closed-form maximum-profit solver for a
// single Uniswap-v2/Balancer flash-arbitrage: given reserves on both
// venues, find the borrow size that maximises
//
//	profit(x) = balancer_out_given_in(bi, bo, s, x) - uniswap_in_given_out(ri, ro, x)
//
// by locating the positive root of the quadratic where the derivative of
// profit(x) vanishes. All coefficient arithmetic is exact signed bigint
// (math/big); only the final root is cast back to uint256. Ported from
// the original implementation's calc.rs, coefficient for coefficient.
package solver

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/pulkyeet/arbrito/internal/fixedpoint"
)

// Result is the outcome of a solve: either no profitable trade exists,
// or the borrow/payback/profit triple that maximises profit.
type Result struct {
	Profitable bool
	Borrow     *uint256.Int
	Payback    *uint256.Int
	Profit     *uint256.Int
}

var (
	notProfit = Result{Profitable: false}

	big1000 = big.NewInt(1000)
	big997  = big.NewInt(997)
	big2    = big.NewInt(2)
)

// MaxProfit computes the optimal borrow size for a flash-arbitrage
// between a Uniswap v2 pair (reserves ri, ro; ri is the side that must be
// repaid, ro is the side borrowed) and a Balancer weighted pool (balances
// bi for the borrowed token, bo for the profit token; swap fee s in BONE
// units). See spec §4.2 for the coefficient derivation.
func MaxProfit(ri, ro, bi, bo, s *uint256.Int) Result {
	riBig, roBig, biBig, boBig, sBig := ri.ToBig(), ro.ToBig(), bi.ToBig(), bo.ToBig(), s.ToBig()

	x, ok := root(riBig, roBig, biBig, boBig, sBig)
	if !ok {
		return notProfit
	}

	borrow, overflow := uint256.FromBig(x)
	if overflow {
		return notProfit
	}

	payback, err := fixedpoint.UniswapInGivenOut(ri, ro, borrow)
	if err != nil {
		return notProfit
	}

	balancerOut, err := fixedpoint.BalancerOutGivenIn(bi, bo, s, borrow)
	if err != nil {
		return notProfit
	}

	if balancerOut.Cmp(payback) <= 0 {
		// payback would exceed the balancer proceeds: no real profit at
		// the computed root, most likely a numeric edge.
		return notProfit
	}

	profit := new(uint256.Int).Sub(balancerOut, payback)

	return Result{
		Profitable: true,
		Borrow:     borrow,
		Payback:    payback,
		Profit:     profit,
	}
}

// root finds the positive, viable (0, ro] root of the quadratic
// A*x^2 + B*x + C = 0 whose coefficients are derived from the two
// venues' reserves/balances/fee. Returns ok=false when there is zero or
// two viable roots (the latter is logged as a bug, per spec §4.2/§9.1).
func root(ri, ro, bi, bo, s *big.Int) (*big.Int, bool) {
	bone := new(big.Int).Set(bigBone)

	// A = bi*bo*997/1000 + ri*ro*2*s/BONE
	//     - (ri*ro + bi*bo*997*s/(1000*BONE) + ri*ro*s^2/BONE^2)
	a := new(big.Int).Add(
		divFloor(mul(bi, bo, big997), big1000),
		divFloor(mul(ri, ro, big2, s), bone),
	)
	a.Sub(a, new(big.Int).Add(
		new(big.Int).Mul(ri, ro),
		new(big.Int).Add(
			divFloor(mul(bi, bo, big997, s), new(big.Int).Mul(big1000, bone)),
			divFloor(mul(ri, ro, new(big.Int).Mul(s, s)), new(big.Int).Mul(bone, bone)),
		),
	))

	// B = bi*ri*ro*2*s/BONE + bi*bo*ro*2*997*s/(1000*BONE)
	//     - (bi*ri*ro*2 + bi*bo*ro*2*997/1000)
	b := new(big.Int).Add(
		divFloor(mul(bi, ri, ro, big2, s), bone),
		divFloor(mul(bi, bo, ro, big2, big997, s), new(big.Int).Mul(big1000, bone)),
	)
	b.Sub(b, new(big.Int).Add(
		mul(bi, ri, ro, big2),
		divFloor(mul(bi, bo, ro, big2, big997), big1000),
	))

	// C = bi*bo*ro^2*997/1000 - (bi^2*ri*ro + bi*bo*ro^2*997*s/(1000*BONE))
	ro2 := new(big.Int).Mul(ro, ro)
	c := divFloor(mul(bi, bo, ro2, big997), big1000)
	c.Sub(c, new(big.Int).Add(
		mul(new(big.Int).Mul(bi, bi), ri, ro),
		divFloor(mul(bi, bo, ro2, big997, s), new(big.Int).Mul(big1000, bone)),
	))

	if a.Sign() == 0 {
		return nil, false
	}

	// delta = B^2 - 4AC, roots = (-B +/- sqrt(delta)) / 2A
	four := new(big.Int).Mul(big2, big2)
	delta := new(big.Int).Sub(new(big.Int).Mul(b, b), new(big.Int).Mul(four, new(big.Int).Mul(a, c)))
	if delta.Sign() < 0 {
		return nil, false
	}

	sqrtDelta := new(big.Int).Sqrt(delta)
	negB := new(big.Int).Neg(b)
	denom := new(big.Int).Mul(a, big2)

	// root0, root1 = (-B +/- sqrt(delta)) / (2A), truncated toward zero
	// to match the original implementation's integer division.
	root0 := new(big.Int).Quo(new(big.Int).Add(negB, sqrtDelta), denom)
	root1 := new(big.Int).Quo(new(big.Int).Sub(negB, sqrtDelta), denom)

	viable := func(x *big.Int) bool {
		return x.Sign() > 0 && x.Cmp(ro) <= 0
	}

	v0, v1 := viable(root0), viable(root1)
	switch {
	case !v0 && !v1:
		return nil, false
	case v0 && !v1:
		return root0, true
	case !v0 && v1:
		return root1, true
	default:
		log.Error().
			Str("ri", ri.String()).Str("ro", ro.String()).
			Str("bi", bi.String()).Str("bo", bo.String()).
			Str("s", s.String()).
			Msg("solver: two viable roots")
		return nil, false
	}
}

var bigBone = new(big.Int).SetUint64(1_000_000_000_000_000_000)

// mul multiplies an arbitrary number of bigints together.
func mul(factors ...*big.Int) *big.Int {
	out := big.NewInt(1)
	for _, f := range factors {
		out.Mul(out, f)
	}
	return out
}

// divFloor divides two non-negative bigints. Every call site here divides
// a non-negative product by a non-negative constant, so floor and
// truncating division coincide.
func divFloor(a, b *big.Int) *big.Int {
	return new(big.Int).Div(a, b)
}
