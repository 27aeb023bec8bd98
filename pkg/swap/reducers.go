package swap

import (
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

// Reducer computes the next context. It never modifies its input.
type Reducer func(c Context, ev Event) Context

func mergeIntent(c Context, ev Event) Context {
	c.Intent = applyPatch(c.Intent, ev)
	c.BestQuote = models.BestQuote(c.Quotes, c.Intent.AssetOut)
	return c
}

func setQuotes(c Context, ev Event) Context {
	quotes, ok := quotesOf(ev)
	if !ok {
		return c
	}
	c.Quotes = models.CloneQuotes(quotes)
	c.BestQuote = models.BestQuote(c.Quotes, c.Intent.AssetOut)
	return c
}

func applySelection(c Context, ev Event) Context {
	c = setQuotes(c, ev)
	c.Intent = selection(c, ev)
	return c
}

func restoreIntent(c Context, ev Event) Context {
	done, ok := ev.(actorDone)
	if !ok {
		return c
	}
	recovery, ok := done.output.(*models.Recovery)
	if !ok || recovery == nil {
		return c
	}
	id := c.Intent.IntentID
	c.Intent = models.MergeIntent(c.Intent, recovery.Intent)
	c.Intent.IntentID = id
	return c
}

func setCallData(c Context, ev Event) Context {
	done, ok := ev.(actorDone)
	if !ok {
		return c
	}
	callData, ok := done.output.(*models.CallData)
	if !ok || callData == nil {
		return c
	}
	cd := *callData
	cd.Actions = append([]models.Action(nil), callData.Actions...)
	c.CallData = &cd
	if cd.IntentID != "" {
		c.Intent.IntentID = cd.IntentID
	}
	return c
}

func saveProof(c Context, ev Event) Context {
	if e, ok := ev.(SubmitSwapSuccess); ok {
		c.Intent.Proof = e.Hash
	}
	return c
}

func applySettlement(c Context, ev Event) Context {
	done, ok := ev.(actorDone)
	if !ok {
		return c
	}
	settled, ok := done.output.(*models.Intent)
	if !ok || settled == nil {
		return c
	}
	c.Intent = models.MergeIntent(c.Intent, *settled)
	return c
}

// failIntent marks the intent failed and records where
func failIntent(phase Phase) Reducer {
	return func(c Context, ev Event) Context {
		c = markFailed(c, ev)
		c.FailedAt = phase
		return c
	}
}

// rollbackFailed keeps FailedAt so a retry still targets the phase that failed
func rollbackFailed(c Context, ev Event) Context {
	return markFailed(c, ev)
}

func markFailed(c Context, ev Event) Context {
	c.Intent.Status = models.IntentStatusFailed
	switch e := ev.(type) {
	case actorError:
		c.LastError = e.err.Error()
	case SubmitSwapFailed:
		c.LastError = e.Reason
	}
	return c
}

func clearFailure(c Context, _ Event) Context {
	if c.Intent.Status == models.IntentStatusFailed {
		c.Intent.Status = ""
	}
	c.FailedAt = ""
	c.LastError = ""
	return c
}

func clearSubmission(c Context, _ Event) Context {
	c.CallData = nil
	c.Intent.Proof = ""
	return c
}
