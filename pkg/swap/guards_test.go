package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

var pair = models.Intent{AssetIn: "near:usdt", AssetOut: "near:wrap", AmountIn: "100"}

func TestHasValidForQuoting(t *testing.T) {
	tests := []struct {
		name   string
		intent models.Intent
		ev     Event
		want   bool
	}{
		{"empty", models.Intent{}, nil, false},
		{"complete pair", pair, nil, true},
		{"missing amount", models.Intent{AssetIn: "near:usdt", AssetOut: "near:wrap"}, nil, false},
		{"completed by event", models.Intent{AssetIn: "near:usdt"}, SetIntent{Intent: models.Intent{AssetOut: "near:wrap", AmountIn: "1"}}, true},
		{"partial params keep pair", pair, SetParams{Params: models.QuoteParams{AmountIn: "200"}}, true},
		{"params complete pair", models.Intent{AssetIn: "near:usdt"}, SetParams{Params: models.QuoteParams{AssetOut: "near:wrap", AmountIn: "1"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasValidForQuoting(Context{Intent: tt.intent}, tt.ev))
		})
	}
}

func TestHasValidForSubmitting(t *testing.T) {
	withAccount := models.MergeIntent(pair, models.Intent{AccountID: "alice.near"})
	best := &models.Quote{SolverID: "s1", AmountOut: "99"}

	tests := []struct {
		name string
		c    Context
		ev   Event
		want bool
	}{
		{"no output amount", Context{Intent: withAccount}, SubmitSwap{}, false},
		{"output from best quote", Context{Intent: withAccount, BestQuote: best}, SubmitSwap{}, true},
		{"output from event quotes", Context{Intent: withAccount}, FetchQuoteSuccess{Quotes: []models.Quote{*best}}, true},
		{"missing account", Context{Intent: pair, BestQuote: best}, SubmitSwap{}, false},
		{"account from event", Context{Intent: pair, BestQuote: best}, SubmitSwap{Intent: models.Intent{AccountID: "bob.near"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasValidForSubmitting(tt.c, tt.ev))
		})
	}
}

func TestHasValidForRecoveringAndRollback(t *testing.T) {
	assert.False(t, HasValidForRecovering(Context{Intent: pair}, nil))
	assert.True(t, HasValidForRecovering(Context{Intent: models.Intent{IntentID: "X"}}, nil))
	assert.False(t, HasValidForRollback(Context{}, RollbackIntent{}))
	assert.True(t, HasValidForRollback(Context{Intent: models.Intent{IntentID: "X"}}, RollbackIntent{}))
}

func TestHasValidForSwapping(t *testing.T) {
	assert.False(t, HasValidForSwapping(Context{}, SubmitSwapSuccess{}))
	assert.False(t, HasValidForSwapping(Context{}, SubmitSwapFailed{Reason: "0xabc"}))
	assert.True(t, HasValidForSwapping(Context{}, SubmitSwapSuccess{Hash: "0xabc"}))
}

func TestSelectionKeepsExplicitAmount(t *testing.T) {
	c := Context{
		Intent:    models.MergeIntent(pair, models.Intent{AmountOut: "50", AccountID: "alice.near"}),
		BestQuote: &models.Quote{SolverID: "s1", AmountOut: "99"},
	}
	s := selection(c, SubmitSwap{})
	assert.Equal(t, "50", s.AmountOut)
	assert.Empty(t, s.SolverID)
}
