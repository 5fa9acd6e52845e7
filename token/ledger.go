// Package token is an in-memory fungible token used as the reserve-backed
// asset by the daemon.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/lib/math"
	"github.com/babylonlabs-io/account-control/types"
)

var _ types.TokenLedger = (*Ledger)(nil)

var (
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrSupplyOverflow      = errors.New("token supply overflow")
	ErrZeroAmount          = errors.New("amount must be positive")
)

type Ledger struct {
	logger *zap.Logger

	// Protects balances and supply
	mu       sync.RWMutex
	balances map[string]uint64
	supply   uint64
}

func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{
		logger:   logger,
		balances: make(map[string]uint64),
	}
}

func (l *Ledger) Mint(_ context.Context, to string, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	supply, ok := math.SafeAdd(l.supply, amount)
	if !ok {
		return ErrSupplyOverflow
	}

	l.supply = supply
	l.balances[to] += amount

	l.logger.Debug("minted tokens", zap.String("to", to), zap.Uint64("amount", amount))

	return nil
}

func (l *Ledger) Burn(_ context.Context, from string, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balances[from]
	if balance < amount {
		return fmt.Errorf("%w: %s holds %d, burning %d", ErrInsufficientBalance, from, balance, amount)
	}

	l.balances[from] = balance - amount
	if l.balances[from] == 0 {
		delete(l.balances, from)
	}
	l.supply -= amount

	l.logger.Debug("burned tokens", zap.String("from", from), zap.Uint64("amount", amount))

	return nil
}

func (l *Ledger) BalanceOf(holder string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balances[holder]
}

func (l *Ledger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.supply
}
