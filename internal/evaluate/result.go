package evaluate

import "github.com/holiman/uint256"

// Kind tags a Result's variant, per spec §3. The zero value is NotProfit
// so a zero Result is never mistaken for a profitable one.
type Kind int

const (
	NotProfit Kind = iota
	GrossProfit
	NetProfit
)

func (k Kind) String() string {
	switch k {
	case NotProfit:
		return "NotProfit"
	case GrossProfit:
		return "GrossProfit"
	case NetProfit:
		return "NetProfit"
	default:
		return "Unknown"
	}
}

// Result is the outcome of one (pair, direction) attempt. Amount and
// WethProfit are populated for GrossProfit and NetProfit; GasPrice only
// for NetProfit.
type Result struct {
	Kind       Kind
	Amount     *uint256.Int
	WethProfit *uint256.Int
	GasPrice   *uint256.Int
}

// Compare implements the total order from spec §3: NotProfit < any
// GrossProfit < any NetProfit; within a variant, by WethProfit, then
// GasPrice, then Amount. Returns -1, 0, or 1 as r < other, r == other,
// r > other.
func (r Result) Compare(other Result) int {
	if r.Kind != other.Kind {
		if r.Kind < other.Kind {
			return -1
		}
		return 1
	}
	if r.Kind == NotProfit {
		return 0
	}

	if c := cmpMaybeNil(r.WethProfit, other.WethProfit); c != 0 {
		return c
	}
	if c := cmpMaybeNil(r.GasPrice, other.GasPrice); c != 0 {
		return c
	}
	return cmpMaybeNil(r.Amount, other.Amount)
}

func cmpMaybeNil(a, b *uint256.Int) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	return a.Cmp(b)
}
