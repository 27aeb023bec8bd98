package swap

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
	"github.com/speedrun-hq/speedrun-swapper/pkg/quote"
)

var (
	// ErrStopped is returned when sending to a machine that has been stopped
	ErrStopped = errors.New("swap machine stopped")
	// ErrAlreadyStarted is returned by a second call to Start
	ErrAlreadyStarted = errors.New("swap machine already started")
)

const (
	DefaultQuoteRefreshInterval = 5 * time.Second
	defaultInboxSize            = 64
	maxEventlessSteps           = 16
)

// Options configures a Machine
type Options struct {
	Clock                clock.Clock
	QuoteRefreshInterval time.Duration
	InboxSize            int
}

// Machine runs the swap lifecycle for a single intent. Events are processed
// one at a time, in arrival order, by a single goroutine.
type Machine struct {
	def       *definition
	processor Processor
	opts      Options
	clock     clock.Clock
	logger    logger.Logger

	inbox     chan Event
	quit      chan struct{}
	done      chan struct{}
	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once

	// owned by the run loop
	runCtx  context.Context
	value   StateValue
	ctx     Context
	gen     uint64
	cancel  context.CancelFunc
	timer   *clock.Timer
	pending []Emission
	dirty   bool

	mu       sync.RWMutex
	snapshot Snapshot

	emissions eventbus.Bus[Emission]
}

// NewMachine creates a machine seeded with input. It does nothing until Start.
func NewMachine(processor Processor, input models.Intent, opts Options, log logger.Logger) *Machine {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.QuoteRefreshInterval <= 0 {
		opts.QuoteRefreshInterval = DefaultQuoteRefreshInterval
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = defaultInboxSize
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	m := &Machine{
		def:       newDefinition(),
		processor: processor,
		opts:      opts,
		clock:     opts.Clock,
		logger:    log,
		inbox:     make(chan Event, opts.InboxSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		value:     LoadingLoading,
		ctx:       Context{Intent: input, Quotes: []models.Quote{}},
	}
	m.snapshot = Snapshot{Value: m.value, Context: m.ctx.Clone()}
	return m
}

// Start performs the initial entry synchronously and then processes events
// in the background until Stop is called or ctx is cancelled.
func (m *Machine) Start(ctx context.Context) error {
	first := false
	m.startOnce.Do(func() { first = true })
	if !first {
		return ErrAlreadyStarted
	}
	m.started.Store(true)
	select {
	case <-m.quit:
		close(m.done)
		return ErrStopped
	default:
	}

	m.runCtx = ctx
	m.dirty = true
	m.enter()
	m.commit()

	go m.run(ctx)
	return nil
}

// Stop cancels any outstanding actor and timer and waits for the loop to exit
func (m *Machine) Stop() {
	m.stopOnce.Do(func() { close(m.quit) })
	if m.started.Load() {
		<-m.done
	}
}

// Send queues ev for processing
func (m *Machine) Send(ev Event) error {
	if ev == nil {
		return errors.New("nil event")
	}
	select {
	case <-m.quit:
		return ErrStopped
	default:
	}
	select {
	case m.inbox <- ev:
		return nil
	case <-m.quit:
		return ErrStopped
	}
}

// Snapshot returns the state after the last processed event
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.snapshot
	snap.Context = snap.Context.Clone()
	return snap
}

// Subscribe delivers every emission to ch. The machine waits for ch to accept
// each emission, so ch must be buffered and drained.
func (m *Machine) Subscribe(ch chan<- Emission) event.Subscription {
	return m.emissions.Subscribe(ch)
}

// FollowQuotes feeds every QUOTES_UPDATED published by src into the machine as UPDATE_QUOTES
func (m *Machine) FollowQuotes(src eventbus.Source[quote.Update]) event.Subscription {
	return eventbus.Forward(src, 16, func(u quote.Update) {
		if u.Type != quote.QuotesUpdated {
			return
		}
		if err := m.Send(UpdateQuotes{Quotes: u.Quotes}); err != nil {
			m.logger.DebugWithComponent(logger.Swap, "dropping quotes update: %v", err)
		}
	})
}

func (m *Machine) run(ctx context.Context) {
	defer close(m.done)
	defer m.emissions.Close()
	defer m.exit()

	for {
		select {
		case ev := <-m.inbox:
			m.process(ev)
			m.commit()
		case <-ctx.Done():
			m.stopOnce.Do(func() { close(m.quit) })
			return
		case <-m.quit:
			return
		}
	}
}

// post delivers a completion from an actor or timer goroutine
func (m *Machine) post(ev Event) {
	select {
	case m.inbox <- ev:
	case <-m.quit:
	}
}

func (m *Machine) process(ev Event) {
	node := m.def.node(m.value)

	switch e := ev.(type) {
	case actorDone:
		if e.gen != m.gen || node.invoke == nil {
			m.discard(e.actor)
			return
		}
		metrics.ActorInvocations.WithLabelValues(e.actor, "success").Inc()
		m.takeFirst(node.invoke.onDone, ev)
		return
	case actorError:
		if e.gen != m.gen || node.invoke == nil {
			m.discard(e.actor)
			return
		}
		metrics.ActorInvocations.WithLabelValues(e.actor, "failure").Inc()
		m.logger.ErrorWithComponent(logger.Swap, "%s failed in %s: %v", e.actor, m.value, e.err)
		m.takeFirst(node.invoke.onError, ev)
		return
	case timerFired:
		if e.gen != m.gen || node.after == nil {
			return
		}
		m.takeFirst(node.after.transitions, ev)
		return
	}

	if node.final {
		m.logger.DebugWithComponent(logger.Swap, "ignoring %s in final state %s", ev.Type(), m.value)
		return
	}
	for _, ts := range m.def.candidates(m.value, ev.Type()) {
		if t, ok := pick(ts, m.ctx, ev); ok {
			m.apply(t, ev)
			return
		}
	}
	metrics.GuardRejections.WithLabelValues(string(ev.Type())).Inc()
	m.logger.DebugWithComponent(logger.Swap, "%s not accepted in %s", ev.Type(), m.value)
}

func (m *Machine) discard(actor string) {
	metrics.StaleCompletions.WithLabelValues(actor).Inc()
	m.logger.DebugWithComponent(logger.Swap, "discarding stale %s completion in %s", actor, m.value)
}

func (m *Machine) takeFirst(ts []transition, ev Event) {
	if t, ok := pick(ts, m.ctx, ev); ok {
		m.apply(t, ev)
	}
}

func (m *Machine) apply(t transition, ev Event) {
	next := m.ctx
	for _, r := range t.actions {
		next = r(next, ev)
	}
	m.ctx = next
	m.dirty = true

	if t.target != nil {
		m.exit()
		m.moveTo(*t.target)
		m.enter()
	}

	for _, typ := range t.emit {
		emission := Emission{Type: typ}
		if typ == EmitFetchQuoteSuccess {
			emission.Quotes = models.CloneQuotes(m.ctx.Quotes)
		}
		switch e := ev.(type) {
		case actorError:
			emission.Error = e.err.Error()
		case SubmitSwapFailed:
			emission.Error = e.Reason
		}
		m.pending = append(m.pending, emission)
	}
}

// enter resolves eventless transitions and then starts the actor and timer of the reached state
func (m *Machine) enter() {
	for i := 0; i < maxEventlessSteps; i++ {
		t, ok := pick(m.def.node(m.value).always, m.ctx, nil)
		if !ok {
			break
		}
		for _, r := range t.actions {
			m.ctx = r(m.ctx, nil)
		}
		m.moveTo(*t.target)
	}

	m.gen++
	node := m.def.node(m.value)
	if node.invoke != nil {
		m.invoke(node.invoke)
	}
	if node.after != nil {
		m.schedule(node.after)
	}
}

func (m *Machine) exit() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) moveTo(next StateValue) {
	from := m.value
	m.value = next
	metrics.Transitions.WithLabelValues(from.String(), next.String()).Inc()
	if from.Phase != next.Phase {
		phases := make([]string, len(Phases))
		for i, p := range Phases {
			phases[i] = string(p)
		}
		metrics.SetPhase(string(next.Phase), phases)
		m.logger.InfoWithComponent(logger.Swap, "%s -> %s", from, next)
		return
	}
	m.logger.DebugWithComponent(logger.Swap, "%s -> %s", from, next)
}

func (m *Machine) invoke(inv *invocation) {
	actx, cancel := context.WithCancel(m.runCtx)
	m.cancel = cancel
	gen := m.gen
	input := m.ctx.Clone()

	m.logger.DebugWithComponent(logger.Swap, "invoking %s", inv.actor)
	go func() {
		output, err := inv.run(actx, m.processor, input)
		if err != nil {
			m.post(actorError{gen: gen, actor: inv.actor, err: err})
			return
		}
		m.post(actorDone{gen: gen, actor: inv.actor, output: output})
	}()
}

func (m *Machine) schedule(after *delayed) {
	gen := m.gen
	m.timer = m.clock.AfterFunc(after.delay(m.opts), func() {
		m.post(timerFired{gen: gen})
	})
}

// commit publishes the snapshot and any emissions collected while processing
func (m *Machine) commit() {
	if !m.dirty {
		return
	}
	m.dirty = false

	snap := Snapshot{
		Value:   m.value,
		Context: m.ctx.Clone(),
		Done:    m.def.node(m.value).final,
	}
	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	pending := m.pending
	m.pending = nil
	for _, e := range pending {
		e.Snapshot = snap
		m.emissions.Publish(e)
	}
	m.emissions.Publish(Emission{Type: EmitStateChanged, Snapshot: snap})
}
