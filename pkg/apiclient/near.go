package apiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
)

// ErrIntentNotFound is returned when the contract has no intent with the requested id
var ErrIntentNotFound = errors.New("intent not found")

// Asset types used by the intents contract
const (
	AssetTypeNep141     = "nep141"
	AssetTypeNative     = "native"
	AssetTypeCrossChain = "cross_chain"
)

// AssetDetails is one side of an intent as stored by the contract
type AssetDetails struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	Asset   string `json:"asset,omitempty"`
	Oracle  string `json:"oracle,omitempty"`
	Amount  string `json:"amount"`
	Account string `json:"account"`
}

// BlockNumber wraps a block height
type BlockNumber struct {
	BlockNumber uint64 `json:"block_number"`
}

// IntentDetails is the result of the get_intent view call
type IntentDetails struct {
	AssetIn     AssetDetails `json:"asset_in"`
	AssetOut    AssetDetails `json:"asset_out"`
	LockupUntil BlockNumber  `json:"lockup_until"`
	Expiration  BlockNumber  `json:"expiration"`
	Status      string       `json:"status"`
	Referral    string       `json:"referral"`
	Proof       string       `json:"proof"`
}

type nearQuery struct {
	ID      string          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  nearQueryParams `json:"params"`
}

type nearQueryParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

type nearResponse struct {
	Result *struct {
		Result []int  `json:"result"`
		Error  string `json:"error,omitempty"`
	} `json:"result"`
	Error *struct {
		Name    string          `json:"name"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

// NearClient reads intents from the intents contract through NEAR RPC
type NearClient struct {
	endpoint   string
	protocolID string
	httpClient *http.Client
	logger     logger.Logger
}

// NewNearClient creates a NEAR RPC client for the contract deployed at protocolID
func NewNearClient(endpoint, protocolID string, timeout time.Duration, log logger.Logger) *NearClient {
	return &NearClient{
		endpoint:   endpoint,
		protocolID: protocolID,
		httpClient: createHTTPClient(timeout),
		logger:     log,
	}
}

// ProtocolID returns the account id of the intents contract
func (c *NearClient) ProtocolID() string {
	return c.protocolID
}

// GetIntent calls get_intent on the intents contract
func (c *NearClient) GetIntent(ctx context.Context, intentID string) (details *IntentDetails, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrIntentNotFound) {
			observe("near", start, nil)
			return
		}
		observe("near", start, err)
	}()

	args, err := json.Marshal(map[string]string{"id": intentID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode get_intent args: %w", err)
	}
	body, err := json.Marshal(nearQuery{
		ID:      "dontcare",
		JSONRPC: "2.0",
		Method:  "query",
		Params: nearQueryParams{
			RequestType: "call_function",
			Finality:    "final",
			AccountID:   c.protocolID,
			MethodName:  "get_intent",
			ArgsBase64:  base64.StdEncoding.EncodeToString(args),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query intent %s: %w", intentID, err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.ErrorWithComponent(logger.Near, "Failed to close response body: %v", err)
		}
	}(resp.Body)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var nearResp nearResponse
	if err := json.Unmarshal(bodyBytes, &nearResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(bodyBytes))
	}
	if nearResp.Error != nil {
		return nil, fmt.Errorf("near rpc error %s: %s", nearResp.Error.Name, nearResp.Error.Message)
	}
	if nearResp.Result == nil {
		return nil, fmt.Errorf("unexpected response format: %s", string(bodyBytes))
	}
	if nearResp.Result.Error != "" {
		return nil, fmt.Errorf("get_intent failed: %s", nearResp.Result.Error)
	}

	if len(nearResp.Result.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", intentID, ErrIntentNotFound)
	}
	raw := make([]byte, len(nearResp.Result.Result))
	for i, b := range nearResp.Result.Result {
		raw[i] = byte(b)
	}

	var intent *IntentDetails
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode intent: %w", err)
	}
	if intent == nil {
		return nil, fmt.Errorf("%s: %w", intentID, ErrIntentNotFound)
	}

	c.logger.DebugWithComponent(logger.Near, "intent %s has status %s", intentID, intent.Status)
	return intent, nil
}
