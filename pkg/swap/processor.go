package swap

import (
	"context"

	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

// Processor performs the asynchronous operations the orchestrator invokes.
// Every returned error is treated as opaque.
type Processor interface {
	RecoverIntent(ctx context.Context, intentID string) (*models.Recovery, error)
	FetchQuotes(ctx context.Context, params models.QuoteParams) ([]models.Quote, error)
	PrepareSwapCallData(ctx context.Context, intent models.Intent) (*models.CallData, error)
	ConfirmIntent(ctx context.Context, intentID string) (*models.Intent, error)
	RollbackIntent(ctx context.Context, intentID string) (*models.CallData, error)
}
