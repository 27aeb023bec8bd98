package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/speedrun-hq/speedrun-swapper/pkg/apiclient"
	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

const (
	maxGasTransaction  = "300000000000000"
	actionFunctionCall = "FunctionCall"
	messageTypeCreate  = "create"
	contractNative     = "native"
)

// Networks with a call data builder
const (
	NetworkNearMainnet = "near:mainnet"
	NetworkEthBase     = "eth:8453"
	NetworkBtcMainnet  = "btc:mainnet"
)

// Asset is a parsed blockchain:network:contractId asset identifier
type Asset struct {
	Blockchain string
	Network    string
	ContractID string
}

// ParseAsset splits an asset identifier into its parts
func ParseAsset(id string) (Asset, error) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Asset{}, fmt.Errorf("malformed asset id %q", id)
	}
	return Asset{Blockchain: parts[0], Network: parts[1], ContractID: parts[2]}, nil
}

// NetworkID returns blockchain:network
func (a Asset) NetworkID() string {
	return a.Blockchain + ":" + a.Network
}

// GenerateIntentID returns the hex encoded SHA-256 of a random UUID
func GenerateIntentID() string {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

type assetOut struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	Oracle  string `json:"oracle,omitempty"`
	Asset   string `json:"asset,omitempty"`
	Amount  string `json:"amount"`
	Account string `json:"account"`
}

type createMessage struct {
	Type        string                `json:"type"`
	ID          string                `json:"id"`
	AssetOut    assetOut              `json:"asset_out"`
	LockupUntil apiclient.BlockNumber `json:"lockup_until"`
	Expiration  apiclient.BlockNumber `json:"expiration"`
	Referral    string                `json:"referral"`
}

const singleChainSchema = `{
	"type": "object",
	"required": ["type", "id", "asset_out", "lockup_until", "expiration", "referral"],
	"properties": {
		"type": {"const": "create"},
		"id": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
		"asset_out": {
			"type": "object",
			"required": ["type", "token", "amount", "account"],
			"properties": {
				"type": {"enum": ["nep141", "native"]},
				"token": {"type": "string", "minLength": 1},
				"amount": {"type": "string", "pattern": "^[0-9]+$"},
				"account": {"type": "string", "minLength": 1}
			}
		},
		"lockup_until": {"$ref": "#/$defs/block"},
		"expiration": {"$ref": "#/$defs/block"},
		"referral": {"type": "string"}
	},
	"$defs": {
		"block": {
			"type": "object",
			"required": ["block_number"],
			"properties": {"block_number": {"type": "integer", "minimum": 0}}
		}
	}
}`

const crossChainSchema = `{
	"type": "object",
	"required": ["type", "id", "asset_out", "lockup_until", "expiration", "referral"],
	"properties": {
		"type": {"const": "create"},
		"id": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
		"asset_out": {
			"type": "object",
			"required": ["type", "oracle", "asset", "amount", "account"],
			"properties": {
				"type": {"const": "cross_chain"},
				"oracle": {"type": "string", "minLength": 1},
				"asset": {"type": "string", "minLength": 1},
				"amount": {"type": "string", "pattern": "^[0-9]+$"},
				"account": {"type": "string", "minLength": 1}
			}
		},
		"lockup_until": {"$ref": "#/$defs/block"},
		"expiration": {"$ref": "#/$defs/block"},
		"referral": {"type": "string"}
	},
	"$defs": {
		"block": {
			"type": "object",
			"required": ["block_number"],
			"properties": {"block_number": {"type": "integer", "minimum": 0}}
		}
	}
}`

// PrepareSwapCallData builds the transaction a wallet signs to create the intent
func (s *Service) PrepareSwapCallData(_ context.Context, intent models.Intent) (*models.CallData, error) {
	from, err := ParseAsset(intent.AssetIn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	to, err := ParseAsset(intent.AssetOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if intent.AmountIn == "" {
		return nil, fmt.Errorf("%w: missing amount in", ErrInvalidMessage)
	}

	crossChain, err := route(from, to)
	if err != nil {
		return nil, err
	}

	msg := createMessage{
		Type:        messageTypeCreate,
		ID:          s.newIntentID(),
		LockupUntil: apiclient.BlockNumber{BlockNumber: intent.Lockup},
		Expiration:  apiclient.BlockNumber{BlockNumber: intent.Expiration},
		Referral:    intent.Referral,
	}
	schema := s.singleChainSchema
	memo := "Execute intent: NEP-141 to NEP-141"
	if crossChain {
		msg.AssetOut = assetOut{
			Type:    apiclient.AssetTypeCrossChain,
			Oracle:  intent.SolverID,
			Asset:   intent.AssetOut,
			Amount:  intent.AmountOut,
			Account: intent.AccountTo,
		}
		schema = s.crossChainSchema
		memo = fmt.Sprintf("Execute intent: %s to %s", intent.AssetIn, intent.AssetOut)
	} else {
		account := intent.AccountID
		if intent.AccountTo != "" {
			account = intent.AccountTo
		}
		outType := apiclient.AssetTypeNep141
		if to.ContractID == contractNative {
			outType = apiclient.AssetTypeNative
		}
		msg.AssetOut = assetOut{
			Type:    outType,
			Token:   to.ContractID,
			Amount:  intent.AmountOut,
			Account: account,
		}
	}

	encoded, err := validateMessage(schema, msg)
	if err != nil {
		return nil, err
	}

	callData := &models.CallData{IntentID: msg.ID}
	if from.ContractID == contractNative {
		callData.ReceiverID = s.cfg.ProtocolID
		callData.Actions = []models.Action{{
			Type: actionFunctionCall,
			Params: models.FunctionCallParams{
				MethodName: models.MethodNativeOnTransfer,
				Args:       map[string]string{"msg": encoded},
				Gas:        maxGasTransaction,
				Deposit:    intent.AmountIn,
			},
		}}
	} else {
		callData.ReceiverID = from.ContractID
		callData.Actions = []models.Action{{
			Type: actionFunctionCall,
			Params: models.FunctionCallParams{
				MethodName: models.MethodFtTransferCall,
				Args: map[string]string{
					"receiver_id": s.cfg.ProtocolID,
					"amount":      intent.AmountIn,
					"memo":        memo,
					"msg":         encoded,
				},
				Gas:     maxGasTransaction,
				Deposit: "1",
			},
		}}
	}

	s.logger.InfoWithComponent(logger.Swap, "Prepared %s call data for intent %s (%s -> %s)",
		callData.Actions[0].Params.MethodName, msg.ID, intent.AssetIn, intent.AssetOut)
	return callData, nil
}

// route reports whether the pair needs a cross-chain message
func route(from, to Asset) (bool, error) {
	switch from.NetworkID() {
	case NetworkNearMainnet:
		switch to.NetworkID() {
		case NetworkNearMainnet:
			return false, nil
		case NetworkEthBase, NetworkBtcMainnet:
			return true, nil
		}
	case NetworkEthBase:
		return true, nil
	}
	return false, fmt.Errorf("%s -> %s: %w", from.NetworkID(), to.NetworkID(), ErrUnsupportedRoute)
}

// validateMessage checks msg against schema and returns its JSON encoding
func validateMessage(schema *jsonschema.Schema, msg createMessage) (string, error) {
	encoded, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return "", fmt.Errorf("failed to decode message: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return string(encoded), nil
}
