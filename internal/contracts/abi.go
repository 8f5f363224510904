// Package contracts provides thin ABI wrappers for the three on-chain
// collaborators the engine reads from or writes to: a Uniswap-v2-style
// pair, a Balancer-style weighted pool, and the executor contract. Each
// call is hand-packed with go-ethereum/accounts/abi rather than generated
// bindings, matching the teacher's direct abi.Pack/Unpack style.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const uniswapPairABI = `[
	{"constant": true, "inputs": [], "name": "getReserves", "outputs": [
		{"internalType": "uint112", "name": "reserve0", "type": "uint112"},
		{"internalType": "uint112", "name": "reserve1", "type": "uint112"},
		{"internalType": "uint32",  "name": "blockTimestampLast", "type": "uint32"}
	], "payable": false, "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "token0", "outputs": [
		{"internalType": "address", "name": "", "type": "address"}
	], "payable": false, "stateMutability": "view", "type": "function"}
]`

const balancerPoolABI = `[
	{"constant": true, "inputs": [{"internalType": "address", "name": "token", "type": "address"}],
	 "name": "getBalance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
	 "payable": false, "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "getSwapFee", "outputs": [
		{"internalType": "uint256", "name": "", "type": "uint256"}
	], "payable": false, "stateMutability": "view", "type": "function"}
]`

const executorABI = `[
	{"inputs": [
		{"internalType": "uint8",    "name": "borrow",        "type": "uint8"},
		{"internalType": "uint256",  "name": "amount",        "type": "uint256"},
		{"internalType": "address",  "name": "uniswapPair",   "type": "address"},
		{"internalType": "address",  "name": "balancerPool",  "type": "address"},
		{"internalType": "address",  "name": "token0",        "type": "address"},
		{"internalType": "address",  "name": "token1",        "type": "address"},
		{"internalType": "uint256",  "name": "reserve0",      "type": "uint256"},
		{"internalType": "uint256",  "name": "reserve1",      "type": "uint256"},
		{"internalType": "uint256",  "name": "balance0",      "type": "uint256"},
		{"internalType": "uint256",  "name": "balance1",      "type": "uint256"}
	], "name": "perform", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

var (
	uniswapPair  abi.ABI
	balancerPool abi.ABI
	executor     abi.ABI
)

func init() {
	uniswapPair = mustParseABI(uniswapPairABI)
	balancerPool = mustParseABI(balancerPoolABI)
	executor = mustParseABI(executorABI)
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
