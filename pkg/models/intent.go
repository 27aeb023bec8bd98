package models

// IntentStatus is the solver-side lifecycle status of an intent, plus the
// terminal Failed marker the orchestrator attaches when a swap fails.
type IntentStatus string

const (
	IntentStatusAvailable  IntentStatus = "available"
	IntentStatusExecuted   IntentStatus = "executed"
	IntentStatusRolledBack IntentStatus = "rolled_back"
	IntentStatusFailed     IntentStatus = "Failed"
)

// Progress is the coarse stage a recovered intent is in
type Progress string

const (
	ProgressSwapping   Progress = "Swapping"
	ProgressConfirming Progress = "Confirming"
	ProgressFailed     Progress = "Failed"
)

// ProgressFromStatus maps the on-chain status of an intent to the stage a
// recovered swap should resume from.
func ProgressFromStatus(status IntentStatus) Progress {
	switch status {
	case IntentStatusAvailable:
		return ProgressSwapping
	case IntentStatusExecuted:
		return ProgressConfirming
	default:
		return ProgressFailed
	}
}

// Intent represents a swap request and its settlement record
type Intent struct {
	IntentID   string       `json:"intent_id,omitempty"`
	Initiator  string       `json:"initiator,omitempty"`
	AssetIn    string       `json:"asset_in,omitempty"`
	AssetOut   string       `json:"asset_out,omitempty"`
	AmountIn   string       `json:"amount_in,omitempty"`
	AmountOut  string       `json:"amount_out,omitempty"`
	AccountID  string       `json:"account_id,omitempty"`
	AccountTo  string       `json:"account_to,omitempty"`
	SolverID   string       `json:"solver_id,omitempty"`
	Expiration uint64       `json:"expiration,omitempty"`
	Lockup     uint64       `json:"lockup,omitempty"`
	Status     IntentStatus `json:"status,omitempty"`
	Proof      string       `json:"proof,omitempty"`
	Referral   string       `json:"referral,omitempty"`
}

// MergeIntent returns base overlaid with every non-zero field of patch.
// Neither argument is modified.
func MergeIntent(base, patch Intent) Intent {
	merged := base
	if patch.IntentID != "" {
		merged.IntentID = patch.IntentID
	}
	if patch.Initiator != "" {
		merged.Initiator = patch.Initiator
	}
	if patch.AssetIn != "" {
		merged.AssetIn = patch.AssetIn
	}
	if patch.AssetOut != "" {
		merged.AssetOut = patch.AssetOut
	}
	if patch.AmountIn != "" {
		merged.AmountIn = patch.AmountIn
	}
	if patch.AmountOut != "" {
		merged.AmountOut = patch.AmountOut
	}
	if patch.AccountID != "" {
		merged.AccountID = patch.AccountID
	}
	if patch.AccountTo != "" {
		merged.AccountTo = patch.AccountTo
	}
	if patch.SolverID != "" {
		merged.SolverID = patch.SolverID
	}
	if patch.Expiration != 0 {
		merged.Expiration = patch.Expiration
	}
	if patch.Lockup != 0 {
		merged.Lockup = patch.Lockup
	}
	if patch.Status != "" {
		merged.Status = patch.Status
	}
	if patch.Proof != "" {
		merged.Proof = patch.Proof
	}
	if patch.Referral != "" {
		merged.Referral = patch.Referral
	}
	return merged
}

// QuoteParams returns the asset pair parameters of the intent
func (i Intent) QuoteParams() QuoteParams {
	return QuoteParams{
		AssetIn:  i.AssetIn,
		AssetOut: i.AssetOut,
		AmountIn: i.AmountIn,
	}
}

// Recovery is the snapshot returned when a persisted intent is recovered
type Recovery struct {
	Intent   Intent   `json:"intent"`
	Progress Progress `json:"progress"`
}
