package apiclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

const intentTypeDip2 = "dip2"

type quoteRequest struct {
	AssetIn    string `json:"defuse_asset_identifier_in"`
	AssetOut   string `json:"defuse_asset_identifier_out"`
	AmountIn   string `json:"amount_in"`
	IntentType string `json:"intent_type"`
}

type solverQuote struct {
	QueryID   int64             `json:"query_id"`
	Tokens    map[string]string `json:"tokens"`
	SolverID  string            `json:"solver_id"`
	AmountOut string            `json:"amount_out"`
}

// RelayClient requests quotes from the solver relay over JSON-RPC
type RelayClient struct {
	rpc    *rpc.Client
	logger logger.Logger
}

// NewRelayClient creates a client for the relay at endpoint
func NewRelayClient(ctx context.Context, endpoint string, timeout time.Duration, log logger.Logger) (*RelayClient, error) {
	client, err := rpc.DialOptions(ctx, endpoint, rpc.WithHTTPClient(createHTTPClient(timeout)))
	if err != nil {
		return nil, fmt.Errorf("failed to dial solver relay %s: %w", endpoint, err)
	}
	return &RelayClient{rpc: client, logger: log}, nil
}

// Quote returns the quotes solvers currently offer for params. A relay with
// no offers answers with an empty list.
func (c *RelayClient) Quote(ctx context.Context, params models.QuoteParams) ([]models.Quote, error) {
	start := time.Now()
	req := quoteRequest{
		AssetIn:    params.AssetIn,
		AssetOut:   params.AssetOut,
		AmountIn:   params.AmountIn,
		IntentType: intentTypeDip2,
	}

	var res []solverQuote
	err := c.rpc.CallContext(ctx, &res, "quote", req)
	if errors.Is(err, rpc.ErrNoResult) {
		err = nil
	}
	observe("relay", start, err)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}

	quotes := make([]models.Quote, 0, len(res))
	for _, q := range res {
		quotes = append(quotes, models.Quote{
			SolverID:  q.SolverID,
			AmountOut: q.AmountOut,
			QueryID:   q.QueryID,
			Tokens:    q.Tokens,
		})
	}
	c.logger.DebugWithComponent(logger.Relay, "relay returned %d quotes for %s -> %s", len(quotes), params.AssetIn, params.AssetOut)
	return quotes, nil
}

// Close releases the underlying connection
func (c *RelayClient) Close() {
	c.rpc.Close()
}
