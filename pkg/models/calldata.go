package models

// Transaction methods of the intents contract
const (
	MethodNativeOnTransfer = "native_on_transfer"
	MethodFtTransferCall   = "ft_transfer_call"
	MethodRollbackIntent   = "rollback_intent"
)

// CallData is the chain call a wallet has to sign to create or roll back
// an intent.
type CallData struct {
	IntentID   string   `json:"intent_id"`
	ReceiverID string   `json:"receiver_id"`
	Actions    []Action `json:"actions"`
}

// Action is a single function call inside CallData
type Action struct {
	Type   string             `json:"type"`
	Params FunctionCallParams `json:"params"`
}

// FunctionCallParams describes the contract method invocation
type FunctionCallParams struct {
	MethodName string            `json:"methodName"`
	Args       map[string]string `json:"args"`
	Gas        string            `json:"gas"`
	Deposit    string            `json:"deposit"`
}
