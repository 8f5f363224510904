// Package chainfeed subscribes to new block headers and exposes a
// pull-based "latest head" interface that coalesces heads the consumer
// didn't get around to asking for, ported from the original
// implementation's mpsc/oneshot request-and-coalesce task (blocks.rs,
// latest_block.rs) onto a Go chan-of-chan.
package chainfeed

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pulkyeet/arbrito/internal/eth"
)

// Block is one head's worth of executor-account state, per spec §3.
type Block struct {
	Number   uint64
	GasPrice *big.Int
	Balance  *big.Int
	Nonce    uint64
}

// Source subscribes to newHeads and serves Latest requests from a single
// coalescing goroutine: if multiple heads arrive between two Latest
// calls, only the freshest is ever delivered.
type Source struct {
	client   *eth.Client
	executor common.Address

	requests chan chan *types.Header
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSource subscribes to newHeads and starts the coalescing loop. The
// returned Source owns the subscription; call Stop to release it
// (spec §4.4's cancellation requirement).
func NewSource(ctx context.Context, client *eth.Client, executor common.Address) (*Source, error) {
	subCtx, cancel := context.WithCancel(ctx)

	headers, sub, err := client.SubscribeNewHead(subCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("chainfeed: %w", err)
	}

	s := &Source{
		client:   client,
		executor: executor,
		requests: make(chan chan *types.Header),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go s.run(subCtx, headers, sub)
	return s, nil
}

func (s *Source) run(ctx context.Context, headers <-chan *types.Header, sub interface{ Unsubscribe(); Err() <-chan error }) {
	defer close(s.done)
	defer sub.Unsubscribe()

	var latest *types.Header
	var pending chan *types.Header

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			log.Error().Err(err).Msg("chainfeed: newHeads subscription closed")
			return
		case h := <-headers:
			latest = h
			if pending != nil {
				pending <- latest
				pending = nil
			}
		case reply := <-s.requests:
			if latest != nil {
				reply <- latest
				latest = nil
			} else {
				pending = reply
			}
		}
	}
}

// Latest blocks until a head newer than the last one handed out arrives,
// then fetches the executor account's nonce, balance, and the network
// gas price concurrently and returns the assembled Block. All three
// reads must succeed, per spec §4.4; a partial failure returns an error
// and the caller is expected to skip the block, not retry it.
func (s *Source) Latest(ctx context.Context) (Block, error) {
	reply := make(chan *types.Header, 1)

	select {
	case s.requests <- reply:
	case <-ctx.Done():
		return Block{}, ctx.Err()
	case <-s.done:
		return Block{}, fmt.Errorf("chainfeed: source stopped")
	}

	var header *types.Header
	select {
	case header = <-reply:
	case <-ctx.Done():
		return Block{}, ctx.Err()
	case <-s.done:
		return Block{}, fmt.Errorf("chainfeed: source stopped")
	}

	number := header.Number.Uint64()
	blockNum := new(big.Int).SetUint64(number)

	var nonce uint64
	var balance, gasPrice *big.Int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.client.NonceAt(gctx, s.executor, blockNum)
		if err != nil {
			return fmt.Errorf("nonce at %d: %w", number, err)
		}
		nonce = n
		return nil
	})
	g.Go(func() error {
		b, err := s.client.BalanceAt(gctx, s.executor, blockNum)
		if err != nil {
			return fmt.Errorf("balance at %d: %w", number, err)
		}
		balance = b
		return nil
	})
	g.Go(func() error {
		p, err := s.client.SuggestGasPrice(gctx)
		if err != nil {
			return fmt.Errorf("gas price at %d: %w", number, err)
		}
		gasPrice = p
		return nil
	})

	if err := g.Wait(); err != nil {
		return Block{}, fmt.Errorf("chainfeed: block %d: %w", number, err)
	}

	return Block{Number: number, GasPrice: gasPrice, Balance: balance, Nonce: nonce}, nil
}

// Stop releases the newHeads subscription and unblocks any in-flight
// Latest call.
func (s *Source) Stop() {
	s.cancel()
	<-s.done
}
