package swap

import (
	"strings"

	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

// Phase is the top level region of the orchestrator
type Phase string

const (
	PhaseLoading    Phase = "Loading"
	PhaseQuoting    Phase = "Quoting"
	PhaseSubmitting Phase = "Submitting"
	PhaseSwapping   Phase = "Swapping"
	PhaseConfirmed  Phase = "Confirmed"
	PhaseFailed     Phase = "Failed"
)

// Phases lists every phase in lifecycle order
var Phases = []Phase{PhaseLoading, PhaseQuoting, PhaseSubmitting, PhaseSwapping, PhaseConfirmed, PhaseFailed}

// Step is the sub-state inside a composite phase
type Step string

const (
	StepNone            Step = ""
	StepLoading         Step = "loading"
	StepRecovering      Step = "recovering"
	StepWaitingForInput Step = "waitingForInput"
	StepQuoting         Step = "quoting"
	StepQuoted          Step = "quoted"
	StepSubmitting      Step = "submitting"
	StepWaitingForSign  Step = "waitingForSign"
	StepRollingBack     Step = "rollingBack"
	StepRolledBack      Step = "rolledBack"
)

// StateValue addresses a leaf state, for example Quoting.quoted
type StateValue struct {
	Phase Phase
	Step  Step
}

// State values of every leaf of the orchestrator
var (
	LoadingLoading         = StateValue{PhaseLoading, StepLoading}
	LoadingRecovering      = StateValue{PhaseLoading, StepRecovering}
	LoadingWaitingForInput = StateValue{PhaseLoading, StepWaitingForInput}
	QuotingQuoting         = StateValue{PhaseQuoting, StepQuoting}
	QuotingQuoted          = StateValue{PhaseQuoting, StepQuoted}
	SubmittingSubmitting   = StateValue{PhaseSubmitting, StepSubmitting}
	SubmittingWaitingSign  = StateValue{PhaseSubmitting, StepWaitingForSign}
	Swapping               = StateValue{PhaseSwapping, StepNone}
	Confirmed              = StateValue{PhaseConfirmed, StepNone}
	Failed                 = StateValue{PhaseFailed, StepNone}
	FailedRollingBack      = StateValue{PhaseFailed, StepRollingBack}
	FailedRolledBack       = StateValue{PhaseFailed, StepRolledBack}
)

func (s StateValue) String() string {
	if s.Step == StepNone {
		return string(s.Phase)
	}
	return string(s.Phase) + "." + string(s.Step)
}

// Matches reports whether s is inside other. An empty step in other matches any step.
func (s StateValue) Matches(other StateValue) bool {
	if s.Phase != other.Phase {
		return false
	}
	return other.Step == StepNone || s.Step == other.Step
}

func (s StateValue) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *StateValue) UnmarshalText(text []byte) error {
	phase, step, _ := strings.Cut(string(text), ".")
	s.Phase = Phase(phase)
	s.Step = Step(step)
	return nil
}

// Context is everything the orchestrator knows about the swap
type Context struct {
	Intent    models.Intent    `json:"intent"`
	Quotes    []models.Quote   `json:"quotes"`
	BestQuote *models.Quote    `json:"best_quote,omitempty"`
	CallData  *models.CallData `json:"call_data,omitempty"`
	FailedAt  Phase            `json:"failed_at,omitempty"`
	LastError string           `json:"last_error,omitempty"`
}

// Clone returns a copy of c that shares no mutable memory with it
func (c Context) Clone() Context {
	out := c
	out.Quotes = models.CloneQuotes(c.Quotes)
	if c.BestQuote != nil {
		q := *c.BestQuote
		out.BestQuote = &q
	}
	if c.CallData != nil {
		cd := *c.CallData
		cd.Actions = append([]models.Action(nil), c.CallData.Actions...)
		out.CallData = &cd
	}
	return out
}

// Snapshot is an immutable view of the machine after an event was processed
type Snapshot struct {
	Value   StateValue `json:"value"`
	Context Context    `json:"context"`
	Done    bool       `json:"done"`
}

// Matches reports whether the snapshot is inside state
func (s Snapshot) Matches(state StateValue) bool {
	return s.Value.Matches(state)
}
