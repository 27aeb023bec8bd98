package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeIntent(t *testing.T) {
	base := Intent{AssetIn: "near:mainnet:usdt", AmountIn: "100", Status: IntentStatusAvailable}

	t.Run("patch overrides set fields only", func(t *testing.T) {
		merged := MergeIntent(base, Intent{AmountIn: "200", AccountID: "alice.near"})

		assert.Equal(t, "near:mainnet:usdt", merged.AssetIn)
		assert.Equal(t, "200", merged.AmountIn)
		assert.Equal(t, "alice.near", merged.AccountID)
		assert.Equal(t, IntentStatusAvailable, merged.Status)
	})

	t.Run("does not modify inputs", func(t *testing.T) {
		patch := Intent{AssetOut: "near:mainnet:wrap.near"}
		_ = MergeIntent(base, patch)

		assert.Empty(t, base.AssetOut)
		assert.Equal(t, "near:mainnet:wrap.near", patch.AssetOut)
	})

	t.Run("idempotent", func(t *testing.T) {
		patch := Intent{AssetOut: "near:mainnet:wrap.near", Lockup: 10}
		once := MergeIntent(base, patch)
		twice := MergeIntent(once, patch)

		assert.Equal(t, once, twice)
	})
}

func TestQuoteParamsMerge(t *testing.T) {
	base := QuoteParams{AssetIn: "near:mainnet:usdt", AssetOut: "near:mainnet:wrap.near", AmountIn: "100"}

	merged := base.Merge(QuoteParams{AmountIn: "200"})
	assert.Equal(t, QuoteParams{AssetIn: "near:mainnet:usdt", AssetOut: "near:mainnet:wrap.near", AmountIn: "200"}, merged)
	assert.True(t, merged.Complete())

	assert.Equal(t, base, base.Merge(QuoteParams{}))
	assert.Equal(t, "100", base.AmountIn)
}

func TestProgressFromStatus(t *testing.T) {
	tests := []struct {
		status   IntentStatus
		expected Progress
	}{
		{IntentStatusAvailable, ProgressSwapping},
		{IntentStatusExecuted, ProgressConfirming},
		{IntentStatusRolledBack, ProgressFailed},
		{IntentStatus("garbage"), ProgressFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, ProgressFromStatus(tt.status))
		})
	}
}

func TestBestQuote(t *testing.T) {
	t.Run("simple quotes", func(t *testing.T) {
		quotes := []Quote{
			{SolverID: "s1", AmountOut: "99"},
			{SolverID: "s2", AmountOut: "101"},
			{SolverID: "s3", AmountOut: "not-a-number"},
		}

		best := BestQuote(quotes, "near:mainnet:wrap.near")
		require.NotNil(t, best)
		assert.Equal(t, "s2", best.SolverID)
	})

	t.Run("token map quotes", func(t *testing.T) {
		assetOut := "near:mainnet:wrap.near"
		quotes := []Quote{
			{QueryID: 1, Tokens: map[string]string{assetOut: "-500", "near:mainnet:usdt": "100"}},
			{QueryID: 2, Tokens: map[string]string{assetOut: "-700", "near:mainnet:usdt": "100"}},
		}

		best := BestQuote(quotes, assetOut)
		require.NotNil(t, best)
		assert.Equal(t, int64(2), best.QueryID)
	})

	t.Run("no usable amounts", func(t *testing.T) {
		assert.Nil(t, BestQuote(nil, "x"))
		assert.Nil(t, BestQuote([]Quote{{SolverID: "s1"}}, "x"))
	})

	t.Run("result is a copy", func(t *testing.T) {
		quotes := []Quote{{SolverID: "s1", AmountOut: "1"}}
		best := BestQuote(quotes, "x")
		best.SolverID = "changed"

		assert.Equal(t, "s1", quotes[0].SolverID)
	})
}
