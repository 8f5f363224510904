// Command fetch-pairs builds registry.toml by querying the Uniswap and
// Balancer subgraphs for pairs/pools over a fixed token allowlist, and
// writing every (uniswap pair, balancer pool) combination that shares
// the pair's two tokens at equal Balancer weights. Grounded on
// resolve_pools.rs/bin/fetch_pairs.rs's uniswap_pairs/balancer_pools/
// build_pairs pipeline, ported from graphql-client+reqwest to a plain
// net/http JSON POST (the pack carries no GraphQL client library) with
// cenkalti/backoff replacing the original's fixed 1s retry sleep.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"github.com/pulkyeet/arbrito/internal/logging"
)

const (
	uniswapSubgraphURL  = "https://api.thegraph.com/subgraphs/name/ianlapham/uniswapv2"
	balancerSubgraphURL = "https://api.thegraph.com/subgraphs/name/balancer-labs/balancer-beta"
	pairsPerPage        = 1000
)

// allowedTokens mirrors the original's ALLOWED_TOKENS: the fixed set of
// blue-chip tokens registry pairs are built from.
var allowedTokens = []common.Address{
	common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), // WETH
	common.HexToAddress("0x514910771AF9Ca656af840dff83E8264EcF986CA"), // LINK
	common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), // USDC
	common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), // WBTC
	common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), // DAI
	common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"), // UNI
	common.HexToAddress("0xC011a73ee8576Fb46F5E1c5751cA3B9Fe0af2a6F"), // SNX
	common.HexToAddress("0xba100000625a3754423978a60c9317c58a424e3D"), // BAL
	common.HexToAddress("0x6B3595068778DD592e39A122f4f5a5cF09C90fE2"), // SUSHI
}

var wethAddress = allowedTokens[0]

// gqlToken is the subgraph's shape for a pair's token side.
type gqlToken struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

type gqlPair struct {
	ID     string   `json:"id"`
	Token0 gqlToken `json:"token0"`
	Token1 gqlToken `json:"token1"`
}

type uniswapResponse struct {
	Data struct {
		Pairs0 []gqlPair `json:"pairs0"`
		Pairs1 []gqlPair `json:"pairs1"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type gqlBalancerToken struct {
	Address      string `json:"address"`
	DenormWeight string `json:"denormWeight"`
}

type gqlBalancerPool struct {
	ID     string             `json:"id"`
	Tokens []gqlBalancerToken `json:"tokens"`
}

type balancerResponse struct {
	Data struct {
		Pools []gqlBalancerPool `json:"pools"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// rawPair is one discovered Uniswap pair with both token sides resolved
// to addresses, before WETH-conversion-pair linking.
type rawPair struct {
	address        common.Address
	token0, token1 gqlToken
}

func postGraphQL(ctx context.Context, url string, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": variables})
	if err != nil {
		return err
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch-pairs: %s returned %d", url, resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	return backoff.Retry(op, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 5))
}

const uniswapPairsQuery = `
query pairs($tokens: [String!]!, $skip: Int!) {
	pairs0: pairs(first: 1000, skip: $skip, where: { token0_in: $tokens }) {
		id
		token0 { id symbol decimals }
		token1 { id symbol decimals }
	}
	pairs1: pairs(first: 1000, skip: $skip, where: { token1_in: $tokens }) {
		id
		token0 { id symbol decimals }
		token1 { id symbol decimals }
	}
}`

func fetchUniswapPairs(ctx context.Context, tokens []common.Address) ([]rawPair, error) {
	tokenStrs := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrs[i] = t.Hex()
	}

	seenIDs := make(map[string]struct{})
	var pairs1IDs = make(map[string]struct{})
	var raw []rawPair

	for page := 0; ; page++ {
		var resp uniswapResponse
		err := postGraphQL(ctx, uniswapSubgraphURL, uniswapPairsQuery, map[string]interface{}{
			"tokens": tokenStrs,
			"skip":   page * pairsPerPage,
		}, &resp)
		if err != nil {
			return nil, err
		}
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("fetch-pairs: uniswap subgraph error: %s", resp.Errors[0].Message)
		}
		if len(resp.Data.Pairs0) == 0 && len(resp.Data.Pairs1) == 0 {
			break
		}

		for _, p := range resp.Data.Pairs1 {
			pairs1IDs[p.ID] = struct{}{}
		}
		for _, p := range resp.Data.Pairs0 {
			if _, ok := pairs1IDs[p.ID]; !ok {
				continue
			}
			if _, dup := seenIDs[p.ID]; dup {
				continue
			}
			seenIDs[p.ID] = struct{}{}
			raw = append(raw, rawPair{
				address: common.HexToAddress(p.ID),
				token0:  p.Token0,
				token1:  p.Token1,
			})
		}

		log.Info().Int("page", page+1).Int("pairs", len(raw)).Msg("fetch-pairs: uniswap page fetched")
	}

	return raw, nil
}

// linkWethPairs maps each token that has a direct WETH pair among raw to
// that pair's address, the token's weth_uniswap_pair per spec §3's Token
// invariant. Pairs whose tokens have no entry here are dropped later, by
// buildRegistry.
func linkWethPairs(raw []rawPair) map[common.Address]common.Address {
	links := make(map[common.Address]common.Address)
	for _, p := range raw {
		t0, t1 := common.HexToAddress(p.token0.ID), common.HexToAddress(p.token1.ID)
		switch wethAddress {
		case t0:
			links[t1] = p.address
		case t1:
			links[t0] = p.address
		}
	}
	return links
}

const balancerPoolsQuery = `
query pools($tokens: [String!]!) {
	pools(where: { tokensList_contains: $tokens }) {
		id
		tokens { address denormWeight }
	}
}`

func fetchBalancerPools(ctx context.Context, token0, token1 common.Address) ([]common.Address, error) {
	var resp balancerResponse
	err := postGraphQL(ctx, balancerSubgraphURL, balancerPoolsQuery, map[string]interface{}{
		"tokens": []string{token0.Hex(), token1.Hex()},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("fetch-pairs: balancer subgraph error: %s", resp.Errors[0].Message)
	}

	var pools []common.Address
	for _, pool := range resp.Data.Pools {
		if len(pool.Tokens) == 0 {
			continue
		}
		var w0, w1 string
		for _, t := range pool.Tokens {
			addr := common.HexToAddress(t.Address)
			switch addr {
			case token0:
				w0 = t.DenormWeight
			case token1:
				w1 = t.DenormWeight
			}
		}
		if w0 == "" || w1 == "" || w0 != w1 {
			continue
		}
		pools = append(pools, common.HexToAddress(pool.ID))
	}
	return pools, nil
}

// registryToken/registryPair mirror internal/registry's on-disk toml
// tags directly, so the written file loads unmodified with
// registry.Load.
type registryToken struct {
	Address         common.Address  `toml:"address"`
	Symbol          string          `toml:"symbol"`
	Decimals        uint            `toml:"decimals"`
	WethUniswapPair *common.Address `toml:"weth_uniswap_pair,omitempty"`
}

type registryPair struct {
	Token0       common.Address `toml:"token0"`
	Token1       common.Address `toml:"token1"`
	UniswapPair  common.Address `toml:"uniswap"`
	BalancerPool common.Address `toml:"balancer"`
}

type registryFile struct {
	Tokens []registryToken `toml:"tokens"`
	Pairs  []registryPair  `toml:"pairs"`
}

func buildRegistry(ctx context.Context, raw []rawPair) (registryFile, error) {
	links := linkWethPairs(raw)
	tokenSet := make(map[common.Address]registryToken)
	var pairs []registryPair
	dropped := 0

	for i, p := range raw {
		t0, t1 := common.HexToAddress(p.token0.ID), common.HexToAddress(p.token1.ID)

		if err := registerToken(tokenSet, links, t0, p.token0); err != nil {
			dropped++
			continue
		}
		if err := registerToken(tokenSet, links, t1, p.token1); err != nil {
			dropped++
			continue
		}

		pools, err := fetchBalancerPools(ctx, t0, t1)
		if err != nil {
			return registryFile{}, err
		}
		for _, pool := range pools {
			pairs = append(pairs, registryPair{Token0: t0, Token1: t1, UniswapPair: p.address, BalancerPool: pool})
		}

		log.Info().Int("pair", i+1).Int("total", len(raw)).
			Str("token0", p.token0.Symbol).Str("token1", p.token1.Symbol).
			Int("balancer_pools", len(pools)).
			Msg("fetch-pairs: balancer pools fetched")
	}

	tokens := make([]registryToken, 0, len(tokenSet))
	for _, t := range tokenSet {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Address.Cmp(tokens[j].Address) < 0 })
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].UniswapPair.Cmp(pairs[j].UniswapPair) < 0 })

	log.Info().Int("tokens", len(tokens)).Int("pairs", len(pairs)).Int("dropped", dropped).
		Msg("fetch-pairs: registry built")

	return registryFile{Tokens: tokens, Pairs: pairs}, nil
}

func registerToken(set map[common.Address]registryToken, links map[common.Address]common.Address, addr common.Address, g gqlToken) error {
	if _, exists := set[addr]; exists {
		return nil
	}

	var decimals uint
	fmt.Sscanf(g.Decimals, "%d", &decimals)

	t := registryToken{Address: addr, Symbol: g.Symbol, Decimals: decimals}
	if addr != wethAddress {
		link, ok := links[addr]
		if !ok {
			return fmt.Errorf("fetch-pairs: no weth pair for %s", addr)
		}
		t.WethUniswapPair = &link
	}
	set[addr] = t
	return nil
}

func main() {
	out := flag.String("out", "registry.toml", "output registry path")
	flag.Parse()

	logging.Init(logging.ModeFromEnv(), os.Getenv("ARBRITO_LOG_LEVEL"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
	defer cancel()

	raw, err := fetchUniswapPairs(ctx, allowedTokens)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch-pairs: uniswap")
	}

	reg, err := buildRegistry(ctx, raw)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch-pairs: build")
	}

	buf, err := toml.Marshal(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch-pairs: marshal")
	}
	if err := os.WriteFile(*out, buf, 0o644); err != nil {
		log.Fatal().Err(err).Msg("fetch-pairs: write")
	}

	log.Info().Str("path", *out).Msg("fetch-pairs: done")
}
