// Package processor implements the operations the swap orchestrator invokes
// on top of the solver relay and the intents contract.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/speedrun-hq/speedrun-swapper/pkg/apiclient"
	"github.com/speedrun-hq/speedrun-swapper/pkg/circuitbreaker"
	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

var (
	// ErrIntentNotFound is returned when the contract has no intent with the given id
	ErrIntentNotFound = apiclient.ErrIntentNotFound
	// ErrRollbackNotPermitted is returned when the intent is no longer available
	ErrRollbackNotPermitted = errors.New("rollback not permitted")
	// ErrUnsupportedRoute is returned for asset pairs no call data builder handles
	ErrUnsupportedRoute = errors.New("unsupported route")
	// ErrInvalidMessage is returned when the create message fails schema validation
	ErrInvalidMessage = errors.New("invalid intent message")
	// ErrIntentRolledBack is returned by ConfirmIntent when the intent was rolled back instead of executed
	ErrIntentRolledBack = errors.New("intent rolled back")
)

const (
	DefaultSettlePollInterval = 500 * time.Millisecond
	DefaultSettleTimeout      = 5 * time.Minute
)

// QuoteSource returns solver quotes for a pair
type QuoteSource interface {
	Quote(ctx context.Context, params models.QuoteParams) ([]models.Quote, error)
}

// IntentReader reads an intent from the intents contract
type IntentReader interface {
	GetIntent(ctx context.Context, intentID string) (*apiclient.IntentDetails, error)
}

// Config holds processor settings
type Config struct {
	ProtocolID         string
	SettlePollInterval time.Duration
	SettleTimeout      time.Duration
}

// Breakers guard the upstreams. A nil breaker never opens.
type Breakers struct {
	Relay *circuitbreaker.CircuitBreaker
	Near  *circuitbreaker.CircuitBreaker
}

// Service is the intent processor
type Service struct {
	quotes   QuoteSource
	intents  IntentReader
	breakers Breakers
	cfg      Config
	clock    clock.Clock
	logger   logger.Logger

	singleChainSchema *jsonschema.Schema
	crossChainSchema  *jsonschema.Schema
	newIntentID       func() string
}

// NewService creates a processor
func NewService(quotes QuoteSource, intents IntentReader, breakers Breakers, cfg Config, clk clock.Clock, log logger.Logger) (*Service, error) {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	if cfg.SettlePollInterval <= 0 {
		cfg.SettlePollInterval = DefaultSettlePollInterval
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = DefaultSettleTimeout
	}
	if breakers.Relay == nil {
		breakers.Relay = circuitbreaker.NewCircuitBreaker("relay", circuitbreaker.Config{}, clk, log)
	}
	if breakers.Near == nil {
		breakers.Near = circuitbreaker.NewCircuitBreaker("near", circuitbreaker.Config{}, clk, log)
	}

	single, err := jsonschema.CompileString("create_intent_single_chain.json", singleChainSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile single chain schema: %w", err)
	}
	cross, err := jsonschema.CompileString("create_intent_cross_chain.json", crossChainSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile cross chain schema: %w", err)
	}

	return &Service{
		quotes:            quotes,
		intents:           intents,
		breakers:          breakers,
		cfg:               cfg,
		clock:             clk,
		logger:            log,
		singleChainSchema: single,
		crossChainSchema:  cross,
		newIntentID:       GenerateIntentID,
	}, nil
}

// guarded runs fn through cb. Cancellations and missing intents do not count as upstream failures.
func guarded(ctx context.Context, cb *circuitbreaker.CircuitBreaker, fn func() error) error {
	var callErr error
	err := cb.Execute(func() error {
		callErr = fn()
		if callErr == nil || ctx.Err() != nil || errors.Is(callErr, ErrIntentNotFound) {
			return nil
		}
		return callErr
	})
	if err != nil {
		return err
	}
	return callErr
}

// RecoverIntent reads a persisted intent and the stage it should resume from
func (s *Service) RecoverIntent(ctx context.Context, intentID string) (*models.Recovery, error) {
	intent, err := s.FetchIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to recover intent %s: %w", intentID, err)
	}
	progress := models.ProgressFromStatus(intent.Status)
	s.logger.InfoWithComponent(logger.Swap, "Recovered intent %s with status %s (%s)", intentID, intent.Status, progress)
	return &models.Recovery{Intent: *intent, Progress: progress}, nil
}

// FetchQuotes returns the quotes for params. No quotes is not an error.
func (s *Service) FetchQuotes(ctx context.Context, params models.QuoteParams) ([]models.Quote, error) {
	if !params.Complete() {
		return nil, fmt.Errorf("incomplete quote params %+v", params)
	}
	var quotes []models.Quote
	err := guarded(ctx, s.breakers.Relay, func() error {
		var err error
		quotes, err = s.quotes.Quote(ctx, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	if quotes == nil {
		quotes = []models.Quote{}
	}
	return quotes, nil
}

// FetchIntent reads an intent from the contract
func (s *Service) FetchIntent(ctx context.Context, intentID string) (*models.Intent, error) {
	var details *apiclient.IntentDetails
	err := guarded(ctx, s.breakers.Near, func() error {
		var err error
		details, err = s.intents.GetIntent(ctx, intentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	intent, err := intentFromDetails(intentID, details)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// ConfirmIntent polls the intent until it is executed. It fails when the
// intent is rolled back or the settle timeout elapses.
func (s *Service) ConfirmIntent(ctx context.Context, intentID string) (*models.Intent, error) {
	ctx, cancel := s.clock.WithTimeout(ctx, s.cfg.SettleTimeout)
	defer cancel()

	for {
		intent, err := s.FetchIntent(ctx, intentID)
		switch {
		case err == nil && intent.Status == models.IntentStatusExecuted:
			s.logger.NoticeWithComponent(logger.Swap, "Intent %s executed", intentID)
			return intent, nil
		case err == nil && intent.Status == models.IntentStatusRolledBack:
			return nil, fmt.Errorf("%s: %w", intentID, ErrIntentRolledBack)
		case err == nil:
			s.logger.DebugWithComponent(logger.Swap, "Intent %s still %s", intentID, intent.Status)
		case errors.Is(err, ErrIntentNotFound):
			s.logger.DebugWithComponent(logger.Swap, "Intent %s not visible yet", intentID)
		default:
			s.logger.ErrorWithComponent(logger.Swap, "Failed to read intent %s: %v", intentID, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("settlement of intent %s not confirmed: %w", intentID, ctx.Err())
		case <-s.clock.After(s.cfg.SettlePollInterval):
		}
	}
}

// RollbackIntent returns the call data that rolls back an available intent
func (s *Service) RollbackIntent(ctx context.Context, intentID string) (*models.CallData, error) {
	intent, err := s.FetchIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent %s: %w", intentID, err)
	}
	if intent.Status != models.IntentStatusAvailable {
		return nil, fmt.Errorf("intent %s is %s: %w", intentID, intent.Status, ErrRollbackNotPermitted)
	}

	s.logger.InfoWithComponent(logger.Swap, "Preparing rollback of intent %s", intentID)
	return &models.CallData{
		IntentID:   intentID,
		ReceiverID: s.cfg.ProtocolID,
		Actions: []models.Action{{
			Type: actionFunctionCall,
			Params: models.FunctionCallParams{
				MethodName: models.MethodRollbackIntent,
				Args:       map[string]string{"id": intentID},
				Gas:        maxGasTransaction,
				Deposit:    "1",
			},
		}},
	}, nil
}

func assetKey(a apiclient.AssetDetails) string {
	if a.Asset != "" {
		return a.Asset
	}
	if a.Type == apiclient.AssetTypeNep141 && a.Token != "" {
		return "near:mainnet:" + a.Token
	}
	return ""
}

func intentFromDetails(intentID string, d *apiclient.IntentDetails) (models.Intent, error) {
	if d == nil {
		return models.Intent{}, fmt.Errorf("%s: %w", intentID, ErrIntentNotFound)
	}
	assetIn := assetKey(d.AssetIn)
	assetOut := assetKey(d.AssetOut)
	if assetIn == "" || assetOut == "" {
		return models.Intent{}, fmt.Errorf("%s has unmapped assets: %w", intentID, ErrIntentNotFound)
	}
	return models.Intent{
		IntentID:   intentID,
		Initiator:  d.AssetIn.Account,
		AssetIn:    assetIn,
		AssetOut:   assetOut,
		AmountIn:   d.AssetIn.Amount,
		AmountOut:  d.AssetOut.Amount,
		Expiration: d.Expiration.BlockNumber,
		Lockup:     d.LockupUntil.BlockNumber,
		Status:     models.IntentStatus(d.Status),
		Referral:   d.Referral,
		Proof:      d.Proof,
	}, nil
}
