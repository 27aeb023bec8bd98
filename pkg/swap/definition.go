package swap

import (
	"context"
	"time"
)

type transition struct {
	// nil target keeps the current state without re-entering it
	target  *StateValue
	guard   Guard
	actions []Reducer
	emit    []EmissionType
}

type invocation struct {
	actor   string
	run     func(ctx context.Context, p Processor, c Context) (interface{}, error)
	onDone  []transition
	onError []transition
}

type delayed struct {
	delay       func(o Options) time.Duration
	transitions []transition
}

type stateNode struct {
	on     map[EventType][]transition
	always []transition
	invoke *invocation
	after  *delayed
	final  bool
}

// definition is the declarative transition table. Event handlers are looked
// up on the leaf, then on its phase, then on the root.
type definition struct {
	states map[StateValue]*stateNode
	phases map[Phase]*stateNode
	root   *stateNode
}

func to(v StateValue) *StateValue {
	return &v
}

func (d *definition) node(v StateValue) *stateNode {
	if n, ok := d.states[v]; ok {
		return n
	}
	return &stateNode{}
}

// candidates returns every transition list that may handle ev in v, innermost first
func (d *definition) candidates(v StateValue, ev EventType) [][]transition {
	var lists [][]transition
	if ts, ok := d.node(v).on[ev]; ok {
		lists = append(lists, ts)
	}
	if p, ok := d.phases[v.Phase]; ok {
		if ts, ok := p.on[ev]; ok {
			lists = append(lists, ts)
		}
	}
	if ts, ok := d.root.on[ev]; ok {
		lists = append(lists, ts)
	}
	return lists
}

// pick returns the first transition whose guard passes
func pick(ts []transition, c Context, ev Event) (transition, bool) {
	for _, t := range ts {
		if t.guard == nil || t.guard(c, ev) {
			return t, true
		}
	}
	return transition{}, false
}

func recoverActor(ctx context.Context, p Processor, c Context) (interface{}, error) {
	return p.RecoverIntent(ctx, c.Intent.IntentID)
}

func fetchQuotesActor(ctx context.Context, p Processor, c Context) (interface{}, error) {
	return p.FetchQuotes(ctx, c.Intent.QuoteParams())
}

func submitSwapActor(ctx context.Context, p Processor, c Context) (interface{}, error) {
	return p.PrepareSwapCallData(ctx, c.Intent)
}

func confirmActor(ctx context.Context, p Processor, c Context) (interface{}, error) {
	return p.ConfirmIntent(ctx, c.Intent.IntentID)
}

func rollbackActor(ctx context.Context, p Processor, c Context) (interface{}, error) {
	return p.RollbackIntent(ctx, c.Intent.IntentID)
}

func newDefinition() *definition {
	intentUpdate := []transition{
		{guard: quoteParamsUnchanged, actions: []Reducer{mergeIntent}},
		{target: to(QuotingQuoting), guard: HasValidForQuoting, actions: []Reducer{mergeIntent}},
	}
	waitingUpdate := []transition{
		{target: to(QuotingQuoting), guard: HasValidForQuoting, actions: []Reducer{mergeIntent, clearFailure}},
		{actions: []Reducer{mergeIntent}},
	}
	submit := []transition{
		{target: to(SubmittingSubmitting), guard: HasValidForSubmitting, actions: []Reducer{applySelection}},
	}

	return &definition{
		root: &stateNode{
			on: map[EventType][]transition{
				EventUpdateQuotes: {{actions: []Reducer{setQuotes}}},
			},
		},
		phases: map[Phase]*stateNode{
			PhaseQuoting: {
				on: map[EventType][]transition{
					EventSetIntent: intentUpdate,
					EventSetParams: intentUpdate,
				},
			},
		},
		states: map[StateValue]*stateNode{
			LoadingLoading: {
				always: []transition{
					{target: to(LoadingRecovering), guard: HasValidForRecovering},
					{target: to(QuotingQuoting), guard: HasValidForQuoting},
					{target: to(LoadingWaitingForInput)},
				},
			},
			LoadingRecovering: {
				invoke: &invocation{
					actor:   "recoverIntent",
					run:     recoverActor,
					onDone:  []transition{{target: to(Swapping), actions: []Reducer{restoreIntent}}},
					onError: []transition{{target: to(LoadingWaitingForInput), actions: []Reducer{failIntent(PhaseLoading)}}},
				},
			},
			LoadingWaitingForInput: {
				on: map[EventType][]transition{
					EventSetIntent: waitingUpdate,
					EventSetParams: waitingUpdate,
				},
			},
			QuotingQuoting: {
				invoke: &invocation{
					actor: "fetchQuotes",
					run:   fetchQuotesActor,
					onDone: []transition{{
						target:  to(QuotingQuoted),
						actions: []Reducer{setQuotes},
						emit:    []EmissionType{EmitFetchQuoteSuccess},
					}},
					onError: []transition{{target: to(Failed), actions: []Reducer{failIntent(PhaseQuoting)}}},
				},
			},
			QuotingQuoted: {
				after: &delayed{
					delay:       func(o Options) time.Duration { return o.QuoteRefreshInterval },
					transitions: []transition{{target: to(QuotingQuoting)}},
				},
				on: map[EventType][]transition{
					EventFetchQuote:        {{target: to(QuotingQuoting)}},
					EventFetchQuoteSuccess: submit,
					EventSubmitSwap:        submit,
				},
			},
			SubmittingSubmitting: {
				invoke: &invocation{
					actor: "submitSwap",
					run:   submitSwapActor,
					onDone: []transition{{
						target:  to(SubmittingWaitingSign),
						actions: []Reducer{setCallData},
						emit:    []EmissionType{EmitSuccessBroadcasting},
					}},
					onError: []transition{{
						target:  to(Failed),
						actions: []Reducer{failIntent(PhaseSubmitting)},
						emit:    []EmissionType{EmitErrorBroadcasting},
					}},
				},
			},
			SubmittingWaitingSign: {
				on: map[EventType][]transition{
					EventSubmitSwapSuccess: {{
						target:  to(Swapping),
						guard:   HasValidForSwapping,
						actions: []Reducer{saveProof},
						emit:    []EmissionType{EmitSuccessSigning},
					}},
					EventSubmitSwapFailed: {{
						target:  to(Failed),
						actions: []Reducer{failIntent(PhaseSubmitting)},
						emit:    []EmissionType{EmitErrorSigning},
					}},
				},
			},
			Swapping: {
				invoke: &invocation{
					actor: "confirmIntent",
					run:   confirmActor,
					onDone: []transition{{
						target:  to(Confirmed),
						actions: []Reducer{applySettlement},
						emit:    []EmissionType{EmitSuccessSettling},
					}},
					onError: []transition{{
						target:  to(Failed),
						actions: []Reducer{failIntent(PhaseSwapping)},
						emit:    []EmissionType{EmitErrorSettling},
					}},
				},
			},
			Confirmed: {final: true},
			Failed: {
				on: map[EventType][]transition{
					EventRollbackIntent: {{target: to(FailedRollingBack), guard: HasValidForRollback}},
					EventRetryIntent: {
						{
							target:  to(QuotingQuoting),
							guard:   and(failedIn(PhaseQuoting), HasValidForQuoting),
							actions: []Reducer{clearFailure},
						},
						{
							target:  to(SubmittingSubmitting),
							guard:   and(not(failedIn(PhaseQuoting)), HasValidForSubmitting),
							actions: []Reducer{clearFailure, clearSubmission},
						},
					},
				},
			},
			FailedRollingBack: {
				invoke: &invocation{
					actor:   "rollbackIntent",
					run:     rollbackActor,
					onDone:  []transition{{target: to(FailedRolledBack), actions: []Reducer{setCallData}}},
					onError: []transition{{target: to(Failed), actions: []Reducer{rollbackFailed}}},
				},
			},
			FailedRolledBack: {final: true},
		},
	}
}
