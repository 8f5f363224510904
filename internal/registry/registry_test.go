package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const validTOML = `
[[tokens]]
address = "0x000000000000000000000000000000000000000a"
symbol = "WETH"
decimals = 18

[[tokens]]
address = "0x000000000000000000000000000000000000000b"
symbol = "TOK"
decimals = 18
weth_uniswap_pair = "0x000000000000000000000000000000000000000c"

[[pairs]]
token0 = "0x000000000000000000000000000000000000000a"
token1 = "0x000000000000000000000000000000000000000b"
uniswap = "0x000000000000000000000000000000000000000d"
balancer = "0x000000000000000000000000000000000000000e"
`

func TestLoadValid(t *testing.T) {
	path := writeRegistry(t, validTOML)

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(reg.Pairs()) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(reg.Pairs()))
	}

	weth := common.HexToAddress("0x0a")
	if err := reg.ValidateWeth(weth); err != nil {
		t.Errorf("ValidateWeth: %v", err)
	}
}

func TestLoadUnknownTokenIsFatal(t *testing.T) {
	path := writeRegistry(t, `
[[tokens]]
address = "0x000000000000000000000000000000000000000a"
symbol = "WETH"
decimals = 18

[[pairs]]
token0 = "0x000000000000000000000000000000000000000a"
token1 = "0x000000000000000000000000000000000000000b"
uniswap = "0x000000000000000000000000000000000000000d"
balancer = "0x000000000000000000000000000000000000000e"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for pair referencing unregistered token1")
	}
}

func TestLoadDuplicatePairKeyIsFatal(t *testing.T) {
	path := writeRegistry(t, `
[[tokens]]
address = "0x000000000000000000000000000000000000000a"
symbol = "WETH"
decimals = 18

[[tokens]]
address = "0x000000000000000000000000000000000000000b"
symbol = "TOK"
decimals = 18

[[pairs]]
token0 = "0x000000000000000000000000000000000000000a"
token1 = "0x000000000000000000000000000000000000000b"
uniswap = "0x000000000000000000000000000000000000000d"
balancer = "0x000000000000000000000000000000000000000e"

[[pairs]]
token0 = "0x000000000000000000000000000000000000000a"
token1 = "0x000000000000000000000000000000000000000b"
uniswap = "0x000000000000000000000000000000000000000d"
balancer = "0x000000000000000000000000000000000000000e"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for duplicate (uniswap, balancer) pair key")
	}
}

func TestLoadUnorderedTokensIsFatal(t *testing.T) {
	path := writeRegistry(t, `
[[tokens]]
address = "0x000000000000000000000000000000000000000a"
symbol = "WETH"
decimals = 18

[[tokens]]
address = "0x000000000000000000000000000000000000000b"
symbol = "TOK"
decimals = 18

[[pairs]]
token0 = "0x000000000000000000000000000000000000000b"
token1 = "0x000000000000000000000000000000000000000a"
uniswap = "0x000000000000000000000000000000000000000d"
balancer = "0x000000000000000000000000000000000000000e"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for token0 >= token1")
	}
}

func TestBalancerPools(t *testing.T) {
	path := writeRegistry(t, validTOML)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pools := reg.BalancerPools()
	if _, ok := pools[common.HexToAddress("0x0e")]; !ok {
		t.Errorf("expected balancer pool 0x0e in set")
	}
}
