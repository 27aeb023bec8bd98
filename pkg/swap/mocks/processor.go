// Package mocks provides a scriptable Processor for orchestrator tests.
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

// ErrNotScripted is returned by operations that have no function set
var ErrNotScripted = errors.New("mock processor: operation not scripted")

// Processor delegates each operation to the matching function field and
// records every call.
type Processor struct {
	RecoverIntentFn       func(ctx context.Context, intentID string) (*models.Recovery, error)
	FetchQuotesFn         func(ctx context.Context, params models.QuoteParams) ([]models.Quote, error)
	PrepareSwapCallDataFn func(ctx context.Context, intent models.Intent) (*models.CallData, error)
	ConfirmIntentFn       func(ctx context.Context, intentID string) (*models.Intent, error)
	RollbackIntentFn      func(ctx context.Context, intentID string) (*models.CallData, error)

	mu    sync.Mutex
	calls map[string]int
}

func (p *Processor) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[name]++
}

// Calls returns how many times the named operation was invoked
func (p *Processor) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *Processor) RecoverIntent(ctx context.Context, intentID string) (*models.Recovery, error) {
	p.record("RecoverIntent")
	if p.RecoverIntentFn == nil {
		return nil, ErrNotScripted
	}
	return p.RecoverIntentFn(ctx, intentID)
}

func (p *Processor) FetchQuotes(ctx context.Context, params models.QuoteParams) ([]models.Quote, error) {
	p.record("FetchQuotes")
	if p.FetchQuotesFn == nil {
		return nil, ErrNotScripted
	}
	return p.FetchQuotesFn(ctx, params)
}

func (p *Processor) PrepareSwapCallData(ctx context.Context, intent models.Intent) (*models.CallData, error) {
	p.record("PrepareSwapCallData")
	if p.PrepareSwapCallDataFn == nil {
		return nil, ErrNotScripted
	}
	return p.PrepareSwapCallDataFn(ctx, intent)
}

func (p *Processor) ConfirmIntent(ctx context.Context, intentID string) (*models.Intent, error) {
	p.record("ConfirmIntent")
	if p.ConfirmIntentFn == nil {
		return nil, ErrNotScripted
	}
	return p.ConfirmIntentFn(ctx, intentID)
}

func (p *Processor) RollbackIntent(ctx context.Context, intentID string) (*models.CallData, error) {
	p.record("RollbackIntent")
	if p.RollbackIntentFn == nil {
		return nil, ErrNotScripted
	}
	return p.RollbackIntentFn(ctx, intentID)
}
