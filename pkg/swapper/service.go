package swapper

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/speedrun-hq/speedrun-swapper/pkg/apiclient"
	"github.com/speedrun-hq/speedrun-swapper/pkg/circuitbreaker"
	"github.com/speedrun-hq/speedrun-swapper/pkg/config"
	"github.com/speedrun-hq/speedrun-swapper/pkg/health"
	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
	"github.com/speedrun-hq/speedrun-swapper/pkg/processor"
	"github.com/speedrun-hq/speedrun-swapper/pkg/quote"
	"github.com/speedrun-hq/speedrun-swapper/pkg/store"
	"github.com/speedrun-hq/speedrun-swapper/pkg/swap"
)

const (
	emissionBuffer  = 64
	shutdownTimeout = 5 * time.Second
)

// paramsSink receives the pair the swap currently quotes
type paramsSink interface {
	SetParams(params models.QuoteParams) error
}

// Service hosts one swap: its machine, the live quote poller and the HTTP surface
type Service struct {
	config   *config.Config
	logger   logger.Logger
	relay    *apiclient.RelayClient
	store    store.IntentStore
	breakers map[string]*circuitbreaker.CircuitBreaker
	poller   *quote.Poller
	params   paramsSink
	machine  *swap.Machine
	health   *health.Server

	lastSaved  string
	lastParams models.QuoteParams
}

// NewService connects the upstream clients and builds the swap machine
func NewService(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	clk := clock.New()

	relay, err := apiclient.NewRelayClient(ctx, cfg.SolverRelayURL, cfg.RequestTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to solver relay: %w", err)
	}
	near := apiclient.NewNearClient(cfg.NearRPCURL, cfg.ProtocolID, cfg.RequestTimeout, log)

	cbConfig := circuitbreaker.Config{
		Enabled:        cfg.CircuitBreaker.Enabled,
		Threshold:      cfg.CircuitBreaker.Threshold,
		WindowDuration: cfg.CircuitBreaker.WindowDuration,
		ResetTimeout:   cfg.CircuitBreaker.ResetTimeout,
	}
	breakers := map[string]*circuitbreaker.CircuitBreaker{
		"relay": circuitbreaker.NewCircuitBreaker("relay", cbConfig, clk, log),
		"near":  circuitbreaker.NewCircuitBreaker("near", cbConfig, clk, log),
	}

	proc, err := processor.NewService(relay, near, processor.Breakers{
		Relay: breakers["relay"],
		Near:  breakers["near"],
	}, processor.Config{
		ProtocolID:         cfg.ProtocolID,
		SettlePollInterval: cfg.SettlePollInterval,
		SettleTimeout:      cfg.SettleTimeout,
	}, clk, log)
	if err != nil {
		relay.Close()
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	intentStore, err := openStore(ctx, cfg.Redis)
	if err != nil {
		relay.Close()
		return nil, err
	}

	input := cfg.Intent
	if input.IntentID == "" {
		stored, err := intentStore.Load(ctx)
		if err != nil {
			log.ErrorWithComponent(logger.Host, "Failed to load stored intent id: %v", err)
		} else if stored != "" {
			log.InfoWithComponent(logger.Host, "Resuming stored intent %s", stored)
			input.IntentID = stored
		}
	}

	poller := quote.NewPoller(proc, input.QuoteParams(), quote.Options{
		Clock:    clk,
		Interval: cfg.QuotePollInterval,
	}, log)
	machine := swap.NewMachine(proc, input, swap.Options{
		Clock:                clk,
		QuoteRefreshInterval: cfg.QuoteRefreshInterval,
	}, log)

	return &Service{
		config:     cfg,
		logger:     log,
		relay:      relay,
		store:      intentStore,
		breakers:   breakers,
		poller:     poller,
		params:     poller,
		machine:    machine,
		health:     health.NewServer(cfg.MetricsPort, cfg.APIKey, machine, poller, breakers, log),
		lastSaved:  input.IntentID,
		lastParams: input.QuoteParams(),
	}, nil
}

func openStore(ctx context.Context, cfg config.RedisConfig) (store.IntentStore, error) {
	if cfg.Address == "" {
		return store.NewMemoryStore(), nil
	}
	redisStore, err := store.NewRedisStore(ctx, store.RedisConfig{
		Address:  cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		Key:      cfg.Key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return redisStore, nil
}

// Start runs the swap until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	go s.health.Start()

	if err := s.poller.Start(ctx); err != nil {
		s.shutdown()
		return fmt.Errorf("failed to start quote poller: %w", err)
	}
	quotesSub := s.machine.FollowQuotes(s.poller)
	defer quotesSub.Unsubscribe()

	emissions := make(chan swap.Emission, emissionBuffer)
	emissionsSub := s.machine.Subscribe(emissions)
	defer emissionsSub.Unsubscribe()

	if err := s.machine.Start(ctx); err != nil {
		emissionsSub.Unsubscribe()
		quotesSub.Unsubscribe()
		s.shutdown()
		return fmt.Errorf("failed to start swap machine: %w", err)
	}
	s.logger.InfoWithComponent(logger.Host, "Swap machine started in %s", s.machine.Snapshot().Value)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoWithComponent(logger.Host, "Context cancelled, shutting down service")
			emissionsSub.Unsubscribe()
			quotesSub.Unsubscribe()
			s.shutdown()
			return nil
		case err := <-emissionsSub.Err():
			if err != nil {
				s.logger.ErrorWithComponent(logger.Host, "Emission subscription failed: %v", err)
			}
			quotesSub.Unsubscribe()
			s.shutdown()
			return err
		case em := <-emissions:
			s.handleEmission(ctx, em)
		}
	}
}

func (s *Service) shutdown() {
	s.machine.Stop()
	s.poller.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.health.Shutdown(ctx); err != nil {
		s.logger.ErrorWithComponent(logger.Host, "Failed to stop health server: %v", err)
	}

	if s.relay != nil {
		s.relay.Close()
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.ErrorWithComponent(logger.Host, "Failed to close intent store: %v", err)
		}
	}
}

// handleEmission keeps the stored intent id and the poller in step with the machine
func (s *Service) handleEmission(ctx context.Context, em swap.Emission) {
	switch em.Type {
	case swap.EmitStateChanged:
		s.persist(ctx, em.Snapshot)
		s.followParams(em.Snapshot.Context.Intent.QuoteParams())
	case swap.EmitFetchQuoteSuccess:
		s.logger.DebugWithComponent(logger.Host, "Received %d quotes", len(em.Quotes))
	case swap.EmitErrorBroadcasting, swap.EmitErrorSigning, swap.EmitErrorSettling:
		s.logger.ErrorWithComponent(logger.Host, "%s: %s", em.Type, em.Error)
	default:
		s.logger.NoticeWithComponent(logger.Host, "%s in %s", em.Type, em.Snapshot.Value)
	}
}

func (s *Service) persist(ctx context.Context, snapshot swap.Snapshot) {
	if snapshot.Matches(swap.Confirmed) {
		if s.lastSaved == "" {
			return
		}
		if err := s.store.Clear(ctx); err != nil {
			s.logger.ErrorWithComponent(logger.Host, "Failed to clear intent id: %v", err)
			return
		}
		s.lastSaved = ""
		return
	}

	id := snapshot.Context.Intent.IntentID
	if id == "" || id == s.lastSaved {
		return
	}
	if err := s.store.Save(ctx, id); err != nil {
		s.logger.ErrorWithComponent(logger.Host, "Failed to save intent id %s: %v", id, err)
		return
	}
	s.lastSaved = id
}

func (s *Service) followParams(params models.QuoteParams) {
	if params == s.lastParams {
		return
	}
	if err := s.params.SetParams(params); err != nil {
		s.logger.ErrorWithComponent(logger.Host, "Failed to update quote poller: %v", err)
		return
	}
	s.lastParams = params
}
