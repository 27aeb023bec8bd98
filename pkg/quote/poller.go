// Package quote keeps the quotes for the current pair fresh independently of
// the swap lifecycle.
package quote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/event"

	"github.com/speedrun-hq/speedrun-swapper/pkg/eventbus"
	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/metrics"
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

// ErrStopped is returned when using a poller that has been stopped
var ErrStopped = errors.New("quote poller stopped")

// DefaultInterval is the delay between the end of one poll and the start of the next
const DefaultInterval = 500 * time.Millisecond

// UpdateType names a notification published by the poller
type UpdateType string

const (
	QuotesUpdated     UpdateType = "QUOTES_UPDATED"
	QuotesFetchFailed UpdateType = "QUOTES_FETCH_FAILED"
)

// Update is published after every completed poll
type Update struct {
	Type   UpdateType         `json:"type"`
	Params models.QuoteParams `json:"params"`
	Quotes []models.Quote     `json:"quotes,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// Fetcher requests quotes for a pair
type Fetcher interface {
	FetchQuotes(ctx context.Context, params models.QuoteParams) ([]models.Quote, error)
}

// Snapshot is the poller's current view
type Snapshot struct {
	Params models.QuoteParams `json:"params"`
	Quotes []models.Quote     `json:"quotes"`
}

// Options configures a Poller
type Options struct {
	Clock    clock.Clock
	Interval time.Duration
}

type fetchResult struct {
	gen    uint64
	quotes []models.Quote
	err    error
}

type tick struct {
	gen uint64
}

// Poller fetches quotes, waits Interval, and fetches again for as long as
// its params are complete.
type Poller struct {
	fetcher  Fetcher
	clock    clock.Clock
	interval time.Duration
	logger   logger.Logger

	inbox     chan interface{}
	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once

	// owned by the run loop
	runCtx  context.Context
	params  models.QuoteParams
	quotes  []models.Quote
	gen     uint64
	cancel  context.CancelFunc
	timer   *clock.Timer
	startAt time.Time

	// params patches not yet applied by the run loop
	pendingMu sync.Mutex
	pending   models.QuoteParams

	mu       sync.RWMutex
	snapshot Snapshot

	updates eventbus.Bus[Update]
}

var _ eventbus.Source[Update] = (*Poller)(nil)

// NewPoller creates a poller for params. It does nothing until Start.
func NewPoller(fetcher Fetcher, params models.QuoteParams, opts Options, log logger.Logger) *Poller {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Poller{
		fetcher:  fetcher,
		clock:    opts.Clock,
		interval: opts.Interval,
		logger:   log,
		inbox:    make(chan interface{}, 16),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		params:   params,
		quotes:   []models.Quote{},
		snapshot: Snapshot{Params: params, Quotes: []models.Quote{}},
	}
}

// Start begins polling in the background
func (p *Poller) Start(ctx context.Context) error {
	first := false
	p.startOnce.Do(func() { first = true })
	if !first {
		return errors.New("quote poller already started")
	}
	p.started.Store(true)
	select {
	case <-p.quit:
		close(p.done)
		return ErrStopped
	default:
	}

	p.runCtx = ctx
	p.restart()
	go p.run(ctx)
	return nil
}

// Stop cancels the in-flight fetch and waits for the poller to exit
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	if p.started.Load() {
		<-p.done
	}
}

// SetParams merges the non-empty fields of params into the pair being quoted.
// When the pair changes, an in-flight fetch for the old pair is abandoned and
// a new poll starts right away. SetParams never blocks: patches sent while the
// run loop is busy are merged and applied together.
func (p *Poller) SetParams(params models.QuoteParams) error {
	select {
	case <-p.quit:
		return ErrStopped
	default:
	}
	p.pendingMu.Lock()
	p.pending = p.pending.Merge(params)
	p.pendingMu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Snapshot returns the params and the quotes of the latest successful poll
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{Params: p.snapshot.Params, Quotes: models.CloneQuotes(p.snapshot.Quotes)}
}

// Subscribe delivers every Update to ch. Publishing waits for ch, so it must be drained.
func (p *Poller) Subscribe(ch chan<- Update) event.Subscription {
	return p.updates.Subscribe(ch)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.updates.Close()
	defer p.halt()

	for {
		select {
		case msg := <-p.inbox:
			p.handle(msg)
		case <-p.wake:
			p.applyParams()
		case <-ctx.Done():
			p.stopOnce.Do(func() { close(p.quit) })
			return
		case <-p.quit:
			return
		}
	}
}

func (p *Poller) handle(msg interface{}) {
	switch m := msg.(type) {
	case fetchResult:
		if m.gen != p.gen {
			return
		}
		if p.cancel != nil {
			p.cancel()
			p.cancel = nil
		}
		gen := p.gen
		p.timer = p.clock.AfterFunc(p.interval, func() {
			p.post(tick{gen: gen})
		})
		p.complete(m)
	case tick:
		if m.gen != p.gen {
			return
		}
		p.timer = nil
		p.fetch()
	}
}

func (p *Poller) complete(m fetchResult) {
	metrics.QuotePollTime.Observe(p.clock.Since(p.startAt).Seconds())
	if m.err != nil {
		metrics.QuotePolls.WithLabelValues("failure").Inc()
		p.logger.ErrorWithComponent(logger.Quote, "failed to fetch quotes for %s -> %s: %v", p.params.AssetIn, p.params.AssetOut, m.err)
		p.updates.Publish(Update{Type: QuotesFetchFailed, Params: p.params, Error: m.err.Error()})
		return
	}

	metrics.QuotePolls.WithLabelValues("success").Inc()
	metrics.QuotesAvailable.Set(float64(len(m.quotes)))
	p.quotes = models.CloneQuotes(m.quotes)
	p.publishSnapshot()
	p.logger.DebugWithComponent(logger.Quote, "received %d quotes for %s -> %s", len(p.quotes), p.params.AssetIn, p.params.AssetOut)
	p.updates.Publish(Update{Type: QuotesUpdated, Params: p.params, Quotes: models.CloneQuotes(p.quotes)})
}

func (p *Poller) applyParams() {
	p.pendingMu.Lock()
	patch := p.pending
	p.pending = models.QuoteParams{}
	p.pendingMu.Unlock()

	next := p.params.Merge(patch)
	if next == p.params {
		return
	}
	p.params = next
	p.publishSnapshot()
	p.restart()
}

// restart abandons the current cycle and starts a new one if the params allow it
func (p *Poller) restart() {
	p.halt()
	p.gen++
	if !p.params.Complete() {
		p.logger.DebugWithComponent(logger.Quote, "idle until quote params are complete")
		return
	}
	p.fetch()
}

func (p *Poller) halt() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Poller) fetch() {
	ctx, cancel := context.WithCancel(p.runCtx)
	p.cancel = cancel
	p.startAt = p.clock.Now()
	gen := p.gen
	params := p.params

	go func() {
		quotes, err := p.fetcher.FetchQuotes(ctx, params)
		p.post(fetchResult{gen: gen, quotes: quotes, err: err})
	}()
}

func (p *Poller) post(msg interface{}) {
	select {
	case p.inbox <- msg:
	case <-p.quit:
	}
}

func (p *Poller) publishSnapshot() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot = Snapshot{Params: p.params, Quotes: models.CloneQuotes(p.quotes)}
}
