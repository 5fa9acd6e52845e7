package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/avast/retry-go/v4"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/bitcoin"
)

// BTCClient is the subset of the bitcoind RPC interface the relay needs.
type BTCClient interface {
	GetBlockCount() (int64, error)
	GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
	GetBlockHeader(blockHash *chainhash.Hash) (*wire.BlockHeader, error)
}

type BitcoindConfig struct {
	RPCHost    string
	RPCUser    string
	RPCPass    string
	DisableTLS bool
}

type epochDifficulty struct {
	startHeight int64
	current     uint64
	previous    uint64
}

// Bitcoind derives epoch difficulties from a bitcoind node. The difficulty
// of an epoch is the difficulty of its first block.
type Bitcoind struct {
	client   BTCClient
	shutdown func()
	params   *chaincfg.Params
	logger   *zap.Logger

	// Protects cached
	mu     sync.Mutex
	cached *epochDifficulty
}

// NewBitcoind connects to bitcoind over HTTP POST mode.
func NewBitcoind(cfg *BitcoindConfig, params *chaincfg.Params, logger *zap.Logger) (*Bitcoind, error) {
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.RPCHost,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		DisableTLS:   cfg.DisableTLS,
		HTTPPostMode: true,
		Params:       params.Name,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create bitcoind rpc client: %w", err)
	}

	r := NewBitcoindWithClient(client, params, logger)
	r.shutdown = client.Shutdown

	return r, nil
}

func NewBitcoindWithClient(client BTCClient, params *chaincfg.Params, logger *zap.Logger) *Bitcoind {
	return &Bitcoind{
		client: client,
		params: params,
		logger: logger,
	}
}

func (b *Bitcoind) blocksPerEpoch() int64 {
	return int64(b.params.TargetTimespan / b.params.TargetTimePerBlock)
}

func (b *Bitcoind) CurrentEpochDifficulty(ctx context.Context) (uint64, error) {
	epoch, err := b.epoch(ctx)
	if err != nil {
		return 0, err
	}
	return epoch.current, nil
}

func (b *Bitcoind) PrevEpochDifficulty(ctx context.Context) (uint64, error) {
	epoch, err := b.epoch(ctx)
	if err != nil {
		return 0, err
	}
	return epoch.previous, nil
}

// Refresh queries the chain tip and refetches epoch difficulties if a new
// epoch has started.
func (b *Bitcoind) Refresh(ctx context.Context) (current, previous uint64, err error) {
	epoch, err := b.epoch(ctx)
	if err != nil {
		return 0, 0, err
	}
	return epoch.current, epoch.previous, nil
}

func (b *Bitcoind) epoch(ctx context.Context) (*epochDifficulty, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var tip int64
	if err := retry.Do(func() error {
		var err error
		tip, err = b.client.GetBlockCount()
		return err
	}, retry.Context(ctx), RtyAtt, RtyDel, RtyErr, retry.OnRetry(func(n uint, err error) {
		b.logger.Debug("failed to query the best block height",
			zap.Uint("attempt", n+1),
			zap.Uint("max_attempts", RtyAttNum),
			zap.Error(err))
	})); err != nil {
		return nil, fmt.Errorf("failed to query the best block height: %w", err)
	}

	per := b.blocksPerEpoch()
	start := tip - tip%per
	if b.cached != nil && b.cached.startHeight == start {
		return b.cached, nil
	}

	current, err := b.difficultyAt(ctx, start)
	if err != nil {
		return nil, err
	}
	previous := current
	if start >= per {
		if previous, err = b.difficultyAt(ctx, start-per); err != nil {
			return nil, err
		}
	}

	b.cached = &epochDifficulty{startHeight: start, current: current, previous: previous}
	b.logger.Info("loaded epoch difficulties",
		zap.Int64("epoch_start", start),
		zap.Uint64("current", current),
		zap.Uint64("previous", previous),
	)

	return b.cached, nil
}

func (b *Bitcoind) difficultyAt(ctx context.Context, height int64) (uint64, error) {
	var header *wire.BlockHeader
	if err := retry.Do(func() error {
		hash, err := b.client.GetBlockHash(height)
		if err != nil {
			return err
		}
		header, err = b.client.GetBlockHeader(hash)
		return err
	}, retry.Context(ctx), RtyAtt, RtyDel, RtyErr, retry.OnRetry(func(n uint, err error) {
		b.logger.Debug("failed to query block header",
			zap.Int64("height", height),
			zap.Uint("attempt", n+1),
			zap.Uint("max_attempts", RtyAttNum),
			zap.Error(err))
	})); err != nil {
		return 0, fmt.Errorf("failed to query header at height %d: %w", height, err)
	}

	return bitcoin.HeaderDifficulty(header, b.params), nil
}

func (b *Bitcoind) Close() {
	if b.shutdown != nil {
		b.shutdown()
	}
}
