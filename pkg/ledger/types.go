// Package ledger submits attestation transactions to the price oracle
// contract through JSON-RPC gateways and reports their lifecycle.
package ledger

import "context"

// Contract entry points. Proof-carrying attestations go through the
// verifying entry point, everything else through the legacy one.
const (
	EntryPointProof  = "submit_price_with_proof"
	EntryPointLegacy = "submit_price_legacy"
)

// Transaction statuses reported by the gateway.
const (
	TxStatusNotFound = "NOT_FOUND"
	TxStatusPending  = "PENDING"
	TxStatusSuccess  = "SUCCESS"
	TxStatusFailed   = "FAILED"
)

// TxStatus is the gateway's view of one submitted transaction.
type TxStatus struct {
	TxID   string `json:"tx_id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Confirmed reports whether the transaction reached a successful terminal
// state.
func (s *TxStatus) Confirmed() bool {
	return s.Status == TxStatusSuccess
}

// Rejected reports whether the contract rejected the transaction.
func (s *TxStatus) Rejected() bool {
	return s.Status == TxStatusFailed
}

// Gateway is the ledger surface the publisher depends on. Client implements
// it against JSON-RPC endpoints; tests substitute mocks.
type Gateway interface {
	// SubmitTransaction sends a signed envelope payload and returns the
	// transaction id assigned by the gateway.
	SubmitTransaction(ctx context.Context, payload []byte) (string, error)

	// GetTransaction looks up a previously submitted transaction. While the
	// gateway has not yet indexed it the error is ErrTxNotFound.
	GetTransaction(ctx context.Context, txID string) (*TxStatus, error)
}
