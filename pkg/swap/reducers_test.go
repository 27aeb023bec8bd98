package swap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

func TestMergeIntentIsIdempotent(t *testing.T) {
	ev := SetIntent{Intent: models.Intent{AccountID: "alice.near", AmountIn: "5"}}
	once := mergeIntent(Context{Intent: pair}, ev)
	twice := mergeIntent(once, ev)
	assert.Equal(t, once, twice)
}

func TestSetQuotesRecomputesBest(t *testing.T) {
	c := Context{Intent: pair, Quotes: []models.Quote{}}
	quotes := []models.Quote{{SolverID: "s1", AmountOut: "99"}, {SolverID: "s2", AmountOut: "120"}}

	next := setQuotes(c, UpdateQuotes{Quotes: quotes})
	require.NotNil(t, next.BestQuote)
	assert.Equal(t, "s2", next.BestQuote.SolverID)
	assert.Empty(t, c.Quotes)

	quotes[0].SolverID = "mutated"
	assert.Equal(t, "s1", next.Quotes[0].SolverID)
}

func TestFailIntent(t *testing.T) {
	c := failIntent(PhaseQuoting)(Context{Intent: pair}, actorError{actor: "fetchQuotes", err: errors.New("relay down")})
	assert.Equal(t, models.IntentStatusFailed, c.Intent.Status)
	assert.Equal(t, PhaseQuoting, c.FailedAt)
	assert.Equal(t, "relay down", c.LastError)

	cleared := clearFailure(c, RetryIntent{})
	assert.Empty(t, cleared.Intent.Status)
	assert.Empty(t, cleared.FailedAt)
	assert.Empty(t, cleared.LastError)
}

func TestRollbackFailedKeepsFailedPhase(t *testing.T) {
	failed := Context{Intent: models.Intent{IntentID: "X", Status: models.IntentStatusFailed}, FailedAt: PhaseQuoting, LastError: "relay down"}

	c := rollbackFailed(failed, actorError{actor: "rollbackIntent", err: errors.New("rollback not permitted")})
	assert.Equal(t, PhaseQuoting, c.FailedAt)
	assert.Equal(t, models.IntentStatusFailed, c.Intent.Status)
	assert.Equal(t, "rollback not permitted", c.LastError)
}

func TestRestoreIntentKeepsID(t *testing.T) {
	c := Context{Intent: models.Intent{IntentID: "X"}}
	done := actorDone{actor: "recoverIntent", output: &models.Recovery{
		Intent:   models.Intent{IntentID: "other", AssetIn: "near:usdt", Status: models.IntentStatusAvailable},
		Progress: models.ProgressSwapping,
	}}
	next := restoreIntent(c, done)
	assert.Equal(t, "X", next.Intent.IntentID)
	assert.Equal(t, "near:usdt", next.Intent.AssetIn)
	assert.Equal(t, models.IntentStatusAvailable, next.Intent.Status)
}

func TestSetCallDataAdoptsIntentID(t *testing.T) {
	cd := &models.CallData{IntentID: "abc", ReceiverID: "usdt.near"}
	next := setCallData(Context{Intent: pair}, actorDone{actor: "submitSwap", output: cd})
	require.NotNil(t, next.CallData)
	assert.Equal(t, "abc", next.Intent.IntentID)
	assert.NotSame(t, cd, next.CallData)

	unchanged := setCallData(next, actorDone{actor: "submitSwap", output: (*models.CallData)(nil)})
	assert.Equal(t, next, unchanged)
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"SET_PARAMS","params":{"asset_in":"near:usdt","asset_out":"near:wrap","amount_in":"100"}}`))
	require.NoError(t, err)
	assert.Equal(t, SetParams{Params: pair.QuoteParams()}, ev)

	ev, err = DecodeEvent([]byte(`{"type":"SUBMIT_SWAP_SUCCESS","hash":"0xabc"}`))
	require.NoError(t, err)
	assert.Equal(t, SubmitSwapSuccess{Hash: "0xabc"}, ev)

	_, err = DecodeEvent([]byte(`{"type":"NOPE"}`))
	assert.Error(t, err)
	_, err = DecodeEvent([]byte(`{`))
	assert.Error(t, err)
}

func TestStateValueText(t *testing.T) {
	assert.Equal(t, "Quoting.quoted", QuotingQuoted.String())
	assert.Equal(t, "Failed", Failed.String())

	var v StateValue
	require.NoError(t, v.UnmarshalText([]byte("Failed.rolledBack")))
	assert.Equal(t, FailedRolledBack, v)
	assert.True(t, FailedRolledBack.Matches(Failed))
	assert.False(t, Failed.Matches(FailedRolledBack))
}
