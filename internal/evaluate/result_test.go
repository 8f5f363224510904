package evaluate

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

func TestResultCompareKindOrder(t *testing.T) {
	not := Result{Kind: NotProfit}
	gross := Result{Kind: GrossProfit, WethProfit: u("1")}
	net := Result{Kind: NetProfit, WethProfit: u("1"), GasPrice: u("1")}

	if not.Compare(gross) >= 0 {
		t.Errorf("NotProfit should compare less than GrossProfit")
	}
	if gross.Compare(net) >= 0 {
		t.Errorf("GrossProfit should compare less than NetProfit")
	}
	if net.Compare(not) <= 0 {
		t.Errorf("NetProfit should compare greater than NotProfit")
	}
}

func TestResultCompareWithinVariant(t *testing.T) {
	a := Result{Kind: GrossProfit, WethProfit: u("100")}
	b := Result{Kind: GrossProfit, WethProfit: u("200")}
	if a.Compare(b) >= 0 {
		t.Errorf("lower weth_profit should compare less")
	}

	c := Result{Kind: NetProfit, WethProfit: u("100"), GasPrice: u("5")}
	d := Result{Kind: NetProfit, WethProfit: u("100"), GasPrice: u("10")}
	if c.Compare(d) >= 0 {
		t.Errorf("equal weth_profit, lower gas_price should compare less")
	}
}

func TestResultCompareAntisymmetricAndReflexive(t *testing.T) {
	x := Result{Kind: GrossProfit, WethProfit: u("42")}
	y := Result{Kind: NetProfit, WethProfit: u("1"), GasPrice: u("1")}

	if x.Compare(x) != 0 {
		t.Errorf("a result must compare equal to itself")
	}
	if (x.Compare(y) < 0) == (y.Compare(x) < 0) {
		t.Errorf("compare must be antisymmetric: x<y and y<x can't both hold")
	}
}
