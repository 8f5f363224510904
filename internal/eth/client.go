// Package eth wraps go-ethereum's RPC client with the subset of calls the
// engine needs: historical reads at a given block number, new-head and
// pending-transaction subscriptions, and raw transaction submission.
package eth

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/joho/godotenv"
)

type Client struct {
	rpc    *ethclient.Client
	rawRPC *rpc.Client
}

// Dial connects to the node RPC endpoint. url is typically read from
// WEB3_ENDPOINT by the caller (internal/config); Dial itself takes the
// URL directly so callers outside the daemon (cmd/scan-block) can point
// at a different endpoint without touching the environment.
func Dial(ctx context.Context, url string) (*Client, error) {
	rawRPCClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("eth: dial %s: %w", url, err)
	}

	return &Client{
		rpc:    ethclient.NewClient(rawRPCClient),
		rawRPC: rawRPCClient,
	}, nil
}

// DialEnv is NewClient's original behaviour: load .env, read
// WEB3_ENDPOINT, dial. The commands in cmd/ load their endpoint through
// internal/config and call Dial instead.
func DialEnv(ctx context.Context) (*Client, error) {
	godotenv.Load()
	url := os.Getenv("WEB3_ENDPOINT")
	if url == "" {
		return nil, fmt.Errorf("eth: WEB3_ENDPOINT not set")
	}
	return Dial(ctx, url)
}

func (c *Client) Raw() *rpc.Client { return c.rawRPC }

func (c *Client) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	return c.rpc.BlockByNumber(ctx, number)
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.rpc.BalanceAt(ctx, account, blockNumber)
}

func (c *Client) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	return c.rpc.NonceAt(ctx, account, blockNumber)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.rpc.SuggestGasPrice(ctx)
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.rpc.TransactionReceipt(ctx, txHash)
}

func (c *Client) TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error) {
	return c.rpc.TransactionByHash(ctx, txHash)
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.rpc.CallContract(ctx, msg, blockNumber)
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.rpc.SendTransaction(ctx, tx)
}

// SendRawCall performs a raw JSON-RPC call, used for methods ethclient
// doesn't expose directly (personal_sendTransaction, personal_unlockAccount).
func (c *Client) SendRawCall(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	return c.rawRPC.CallContext(ctx, result, method, args...)
}

// SubscribeNewHead subscribes to newHeads; the caller owns the returned
// subscription and channel and must call Unsubscribe to release the
// server-side subscription (spec §4.4's cancellation requirement).
func (c *Client) SubscribeNewHead(ctx context.Context) (<-chan *types.Header, ethereum.Subscription, error) {
	headers := make(chan *types.Header, 16)
	sub, err := c.rpc.SubscribeNewHead(ctx, headers)
	if err != nil {
		return nil, nil, fmt.Errorf("eth: subscribe newHeads: %w", err)
	}
	return headers, sub, nil
}

// SubscribePendingTransactionHashes subscribes to newPendingTransactions,
// which on most nodes delivers only tx hashes; the caller resolves each
// via TransactionByHash.
func (c *Client) SubscribePendingTransactionHashes(ctx context.Context) (<-chan common.Hash, *rpc.ClientSubscription, error) {
	hashes := make(chan common.Hash, 256)
	sub, err := c.rawRPC.EthSubscribe(ctx, hashes, "newPendingTransactions")
	if err != nil {
		return nil, nil, fmt.Errorf("eth: subscribe newPendingTransactions: %w", err)
	}
	return hashes, sub, nil
}

// batch RPC call structures, kept from the original account/storage
// prewarming helpers; no command in this tree calls BatchGetAccounts.

type BatchAccountRequest struct {
	Address     common.Address
	BlockNumber *big.Int
}

type BatchAccountResult struct {
	Address common.Address
	Balance *big.Int
	Nonce   uint64
	Err     error
}

func (c *Client) BatchGetAccounts(ctx context.Context, requests []BatchAccountRequest) []BatchAccountResult {
	results := make([]BatchAccountResult, len(requests))
	if len(requests) == 0 {
		return results
	}

	batch := make([]rpc.BatchElem, len(requests)*2)
	for i, req := range requests {
		blockNumHex := toBlockNumArg(req.BlockNumber)
		batch[i*2] = rpc.BatchElem{Method: "eth_getBalance", Args: []interface{}{req.Address, blockNumHex}, Result: new(string)}
		batch[i*2+1] = rpc.BatchElem{Method: "eth_getTransactionCount", Args: []interface{}{req.Address, blockNumHex}, Result: new(string)}
	}

	if err := c.rawRPC.BatchCallContext(ctx, batch); err != nil {
		for i := range results {
			results[i].Address = requests[i].Address
			results[i].Err = err
		}
		return results
	}

	for i := range requests {
		results[i].Address = requests[i].Address

		if batch[i*2].Error != nil {
			results[i].Err = batch[i*2].Error
			continue
		}
		balanceHex := *batch[i*2].Result.(*string)
		balance := new(big.Int)
		balance.SetString(balanceHex[2:], 16)
		results[i].Balance = balance

		if batch[i*2+1].Error != nil {
			results[i].Err = batch[i*2+1].Error
			continue
		}
		nonceHex := *batch[i*2+1].Result.(*string)
		var nonce uint64
		fmt.Sscanf(nonceHex, "0x%x", &nonce)
		results[i].Nonce = nonce
	}

	return results
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return fmt.Sprintf("0x%x", number)
}
