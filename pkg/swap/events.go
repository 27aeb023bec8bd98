package swap

import (
	"encoding/json"
	"fmt"

	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

// EventType names an inbound event
type EventType string

const (
	EventSetIntent         EventType = "SET_INTENT"
	EventSetParams         EventType = "SET_PARAMS"
	EventSubmitSwap        EventType = "SUBMIT_SWAP"
	EventSubmitSwapSuccess EventType = "SUBMIT_SWAP_SUCCESS"
	EventSubmitSwapFailed  EventType = "SUBMIT_SWAP_FAILED"
	EventFetchQuote        EventType = "FETCH_QUOTE"
	EventFetchQuoteSuccess EventType = "FETCH_QUOTE_SUCCESS"
	EventUpdateQuotes      EventType = "UPDATE_QUOTES"
	EventRetryIntent       EventType = "RETRY_INTENT"
	EventRollbackIntent    EventType = "ROLLBACK_INTENT"
)

// Event is anything the orchestrator can react to
type Event interface {
	Type() EventType
}

// SetIntent merges the non-empty fields of Intent into the current intent
type SetIntent struct {
	Intent models.Intent
}

// SetParams replaces the pair and amount being quoted
type SetParams struct {
	Params models.QuoteParams
}

// SubmitSwap asks to submit the quoted swap, optionally with extra intent fields
type SubmitSwap struct {
	Intent models.Intent
}

// SubmitSwapSuccess reports that the wallet signed and broadcast the call data
type SubmitSwapSuccess struct {
	Hash string
}

// SubmitSwapFailed reports that the wallet rejected the call data
type SubmitSwapFailed struct {
	Reason string
}

// FetchQuote forces an immediate re-quote
type FetchQuote struct{}

// FetchQuoteSuccess confirms a quote selection
type FetchQuoteSuccess struct {
	Intent models.Intent
	Quotes []models.Quote
}

// UpdateQuotes replaces the quote list without affecting the state
type UpdateQuotes struct {
	Quotes []models.Quote
}

// RetryIntent leaves Failed towards the phase that failed
type RetryIntent struct{}

// RollbackIntent starts rolling back a failed intent
type RollbackIntent struct{}

func (SetIntent) Type() EventType         { return EventSetIntent }
func (SetParams) Type() EventType         { return EventSetParams }
func (SubmitSwap) Type() EventType        { return EventSubmitSwap }
func (SubmitSwapSuccess) Type() EventType { return EventSubmitSwapSuccess }
func (SubmitSwapFailed) Type() EventType  { return EventSubmitSwapFailed }
func (FetchQuote) Type() EventType        { return EventFetchQuote }
func (FetchQuoteSuccess) Type() EventType { return EventFetchQuoteSuccess }
func (UpdateQuotes) Type() EventType      { return EventUpdateQuotes }
func (RetryIntent) Type() EventType       { return EventRetryIntent }
func (RollbackIntent) Type() EventType    { return EventRollbackIntent }

// completion events produced by the machine itself

type actorDone struct {
	gen    uint64
	actor  string
	output interface{}
}

type actorError struct {
	gen   uint64
	actor string
	err   error
}

type timerFired struct {
	gen uint64
}

func (e actorDone) Type() EventType  { return EventType("done.invoke." + e.actor) }
func (e actorError) Type() EventType { return EventType("error.invoke." + e.actor) }
func (timerFired) Type() EventType   { return "after" }

// Envelope is the JSON form of an inbound event
type Envelope struct {
	Type   EventType          `json:"type"`
	Intent models.Intent      `json:"intent"`
	Params models.QuoteParams `json:"params"`
	Hash   string             `json:"hash,omitempty"`
	Reason string             `json:"reason,omitempty"`
	Quotes []models.Quote     `json:"quotes,omitempty"`
}

// DecodeEvent parses an Envelope into the matching inbound event
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return env.Event()
}

// Event converts the envelope into the matching inbound event
func (env Envelope) Event() (Event, error) {
	switch env.Type {
	case EventSetIntent:
		return SetIntent{Intent: env.Intent}, nil
	case EventSetParams:
		return SetParams{Params: env.Params}, nil
	case EventSubmitSwap:
		return SubmitSwap{Intent: env.Intent}, nil
	case EventSubmitSwapSuccess:
		return SubmitSwapSuccess{Hash: env.Hash}, nil
	case EventSubmitSwapFailed:
		return SubmitSwapFailed{Reason: env.Reason}, nil
	case EventFetchQuote:
		return FetchQuote{}, nil
	case EventFetchQuoteSuccess:
		return FetchQuoteSuccess{Intent: env.Intent, Quotes: env.Quotes}, nil
	case EventUpdateQuotes:
		return UpdateQuotes{Quotes: env.Quotes}, nil
	case EventRetryIntent:
		return RetryIntent{}, nil
	case EventRollbackIntent:
		return RollbackIntent{}, nil
	}
	return nil, fmt.Errorf("unknown event type: %q", env.Type)
}

// EmissionType names an outbound notification
type EmissionType string

const (
	EmitFetchQuoteSuccess   EmissionType = "FETCH_QUOTE_SUCCESS"
	EmitSuccessBroadcasting EmissionType = "successBroadcasting"
	EmitErrorBroadcasting   EmissionType = "errorBroadcasting"
	EmitSuccessSigning      EmissionType = "successSigning"
	EmitErrorSigning        EmissionType = "errorSigning"
	EmitSuccessSettling     EmissionType = "successSettling"
	EmitErrorSettling       EmissionType = "errorSettling"
	EmitStateChanged        EmissionType = "stateChanged"
)

// Emission is published to subscribers after the event that produced it was processed
type Emission struct {
	Type     EmissionType   `json:"type"`
	Snapshot Snapshot       `json:"snapshot"`
	Quotes   []models.Quote `json:"quotes,omitempty"`
	Error    string         `json:"error,omitempty"`
}
