package models

import (
	"math/big"
	"strings"
)

// QuoteParams identifies the pair and amount a quote is requested for
type QuoteParams struct {
	AssetIn  string `json:"asset_in"`
	AssetOut string `json:"asset_out"`
	AmountIn string `json:"amount_in"`
}

// Complete reports whether every field needed to request a quote is set
func (p QuoteParams) Complete() bool {
	return p.AssetIn != "" && p.AssetOut != "" && p.AmountIn != ""
}

// Merge returns p with every non-empty field of patch applied
func (p QuoteParams) Merge(patch QuoteParams) QuoteParams {
	if patch.AssetIn != "" {
		p.AssetIn = patch.AssetIn
	}
	if patch.AssetOut != "" {
		p.AssetOut = patch.AssetOut
	}
	if patch.AmountIn != "" {
		p.AmountIn = patch.AmountIn
	}
	return p
}

// Quote is a solver's price proposal. Older relays answer with a solver id
// and output amount, newer ones with a query id and a map of signed token
// deltas keyed by asset.
type Quote struct {
	SolverID  string            `json:"solver_id,omitempty"`
	AmountOut string            `json:"amount_out,omitempty"`
	QueryID   int64             `json:"query_id,omitempty"`
	Tokens    map[string]string `json:"tokens,omitempty"`
}

// OutputAmount returns the amount of assetOut the quote delivers
func (q Quote) OutputAmount(assetOut string) (*big.Int, bool) {
	raw := q.AmountOut
	if raw == "" && q.Tokens != nil {
		raw = strings.TrimPrefix(q.Tokens[assetOut], "-")
	}
	if raw == "" {
		return nil, false
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, false
	}
	return amount, true
}

// BestQuote returns the quote with the largest output for assetOut, or nil
// when none of the quotes carries a usable amount.
func BestQuote(quotes []Quote, assetOut string) *Quote {
	var (
		best       *Quote
		bestAmount *big.Int
	)
	for i := range quotes {
		amount, ok := quotes[i].OutputAmount(assetOut)
		if !ok {
			continue
		}
		if bestAmount == nil || amount.Cmp(bestAmount) > 0 {
			q := quotes[i]
			best = &q
			bestAmount = amount
		}
	}
	return best
}

// CloneQuotes returns a copy of quotes that shares no backing array
func CloneQuotes(quotes []Quote) []Quote {
	if quotes == nil {
		return []Quote{}
	}
	out := make([]Quote, len(quotes))
	copy(out, quotes)
	return out
}
