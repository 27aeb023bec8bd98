package apiclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func relayServer(t *testing.T, result string, seen *quoteRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "quote", req.Method)
		require.Len(t, req.Params, 1)
		if seen != nil {
			require.NoError(t, json.Unmarshal(req.Params[0], seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRelayQuote(t *testing.T) {
	var seen quoteRequest
	srv := relayServer(t, `[{"query_id":7,"tokens":{"near:usdt":"-100","near:wrap":"99"}},{"solver_id":"s1","amount_out":"98"}]`, &seen)
	client, err := NewRelayClient(context.Background(), srv.URL, time.Second, &logger.EmptyLogger{})
	require.NoError(t, err)
	defer client.Close()

	params := models.QuoteParams{AssetIn: "near:usdt", AssetOut: "near:wrap", AmountIn: "100"}
	quotes, err := client.Quote(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, quoteRequest{AssetIn: "near:usdt", AssetOut: "near:wrap", AmountIn: "100", IntentType: "dip2"}, seen)
	require.Len(t, quotes, 2)
	assert.Equal(t, int64(7), quotes[0].QueryID)
	assert.Equal(t, "99", quotes[0].Tokens["near:wrap"])
	assert.Equal(t, models.Quote{SolverID: "s1", AmountOut: "98"}, quotes[1])
}

func TestRelayQuoteNullResult(t *testing.T) {
	srv := relayServer(t, `null`, nil)
	client, err := NewRelayClient(context.Background(), srv.URL, time.Second, &logger.EmptyLogger{})
	require.NoError(t, err)
	defer client.Close()

	quotes, err := client.Quote(context.Background(), models.QuoteParams{AssetIn: "a", AssetOut: "b", AmountIn: "1"})
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestRelayQuoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32000,"message":"no solvers"}}`))
	}))
	defer srv.Close()
	client, err := NewRelayClient(context.Background(), srv.URL, time.Second, &logger.EmptyLogger{})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Quote(context.Background(), models.QuoteParams{AssetIn: "a", AssetOut: "b", AmountIn: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no solvers")
}

func encodeResult(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	out, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      "dontcare",
		"result":  map[string]interface{}{"result": ints, "logs": []string{}},
	})
	require.NoError(t, err)
	return string(out)
}

func nearServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q nearQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, "query", q.Method)
		assert.Equal(t, "call_function", q.Params.RequestType)
		assert.Equal(t, "get_intent", q.Params.MethodName)
		assert.Equal(t, "swap-defuse.near", q.Params.AccountID)

		args, err := base64.StdEncoding.DecodeString(q.Params.ArgsBase64)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"X"}`, string(args))

		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNearGetIntent(t *testing.T) {
	details := IntentDetails{
		AssetIn:     AssetDetails{Type: AssetTypeNep141, Token: "usdt.near", Amount: "100", Account: "alice.near"},
		AssetOut:    AssetDetails{Type: AssetTypeCrossChain, Asset: "eth:8453:0xabc", Amount: "99", Account: "0xdef"},
		LockupUntil: BlockNumber{BlockNumber: 10},
		Expiration:  BlockNumber{BlockNumber: 20},
		Status:      "available",
	}
	srv := nearServer(t, encodeResult(t, details))
	client := NewNearClient(srv.URL, "swap-defuse.near", time.Second, &logger.EmptyLogger{})

	got, err := client.GetIntent(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, details, *got)
}

func TestNearGetIntentNotFound(t *testing.T) {
	srv := nearServer(t, encodeResult(t, nil))
	client := NewNearClient(srv.URL, "swap-defuse.near", time.Second, &logger.EmptyLogger{})

	_, err := client.GetIntent(context.Background(), "X")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestNearGetIntentRPCError(t *testing.T) {
	srv := nearServer(t, `{"jsonrpc":"2.0","id":"dontcare","error":{"name":"HANDLER_ERROR","message":"account does not exist"}}`)
	client := NewNearClient(srv.URL, "swap-defuse.near", time.Second, &logger.EmptyLogger{})

	_, err := client.GetIntent(context.Background(), "X")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIntentNotFound)
	assert.Contains(t, err.Error(), "account does not exist")
}
