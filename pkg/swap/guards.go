package swap

import (
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

// Guard decides whether a transition may fire
type Guard func(c Context, ev Event) bool

// applyPatch returns the intent that results from applying the fields carried by ev
func applyPatch(intent models.Intent, ev Event) models.Intent {
	switch e := ev.(type) {
	case SetIntent:
		return models.MergeIntent(intent, e.Intent)
	case SetParams:
		params := intent.QuoteParams().Merge(e.Params)
		intent.AssetIn = params.AssetIn
		intent.AssetOut = params.AssetOut
		intent.AmountIn = params.AmountIn
		return intent
	case SubmitSwap:
		return models.MergeIntent(intent, e.Intent)
	case FetchQuoteSuccess:
		return models.MergeIntent(intent, e.Intent)
	}
	return intent
}

// quotesOf returns the quote list carried by ev, if any
func quotesOf(ev Event) ([]models.Quote, bool) {
	switch e := ev.(type) {
	case UpdateQuotes:
		return e.Quotes, true
	case FetchQuoteSuccess:
		return e.Quotes, e.Quotes != nil
	case actorDone:
		quotes, ok := e.output.([]models.Quote)
		return quotes, ok
	}
	return nil, false
}

// selection is the intent that would be submitted: the patched intent with
// the output amount and solver filled from the best quote when missing.
func selection(c Context, ev Event) models.Intent {
	intent := applyPatch(c.Intent, ev)
	best := c.BestQuote
	if quotes, ok := quotesOf(ev); ok {
		best = models.BestQuote(quotes, intent.AssetOut)
	}
	if best == nil || intent.AmountOut != "" {
		return intent
	}
	if amount, ok := best.OutputAmount(intent.AssetOut); ok {
		intent.AmountOut = amount.String()
		if intent.SolverID == "" {
			intent.SolverID = best.SolverID
		}
	}
	return intent
}

// HasValidForRecovering holds when a known intent id can be recovered
func HasValidForRecovering(c Context, _ Event) bool {
	return c.Intent.IntentID != ""
}

// HasValidForQuoting holds when the intent, after applying ev, names a pair and an input amount
func HasValidForQuoting(c Context, ev Event) bool {
	return applyPatch(c.Intent, ev).QuoteParams().Complete()
}

// HasValidForSubmitting holds when the selected swap has both amounts and a sender
func HasValidForSubmitting(c Context, ev Event) bool {
	s := selection(c, ev)
	return s.AssetIn != "" && s.AssetOut != "" && s.AmountIn != "" && s.AmountOut != "" && s.AccountID != ""
}

// HasValidForSwapping holds when the wallet reported a transaction hash
func HasValidForSwapping(_ Context, ev Event) bool {
	e, ok := ev.(SubmitSwapSuccess)
	return ok && e.Hash != ""
}

// HasValidForRollback holds when there is an intent id to roll back
func HasValidForRollback(c Context, _ Event) bool {
	return c.Intent.IntentID != ""
}

func quoteParamsUnchanged(c Context, ev Event) bool {
	return applyPatch(c.Intent, ev).QuoteParams() == c.Intent.QuoteParams()
}

func failedIn(phase Phase) Guard {
	return func(c Context, _ Event) bool {
		return c.FailedAt == phase
	}
}

func not(g Guard) Guard {
	return func(c Context, ev Event) bool {
		return !g(c, ev)
	}
}

func and(guards ...Guard) Guard {
	return func(c Context, ev Event) bool {
		for _, g := range guards {
			if !g(c, ev) {
				return false
			}
		}
		return true
	}
}
