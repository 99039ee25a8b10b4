// Package attest binds consensus prices to commitments and signatures.
package attest

import (
	"tc.com/price-attestor/pkg/consensus"
)

const (
	// ModeProof marks an attestation carrying a zero-knowledge proof.
	ModeProof = "proof"
	// ModeLegacy marks an attestation without a proof, routed to the
	// contract's non-proof entry point.
	ModeLegacy = "legacy"
)

// Attestation is a consensus price bound to a commitment and signature,
// optionally carrying a proof. Immutable once created; it is the unit
// handed to the publisher.
type Attestation struct {
	Consensus    consensus.ConsensusPrice `json:"consensus"`
	ScaledPrice  int64                    `json:"scaled_price"` // fixed-point, PriceDecimals places
	Nonce        uint64                   `json:"nonce"`
	Commitment   string                   `json:"commitment"` // upper-hex SHA-256 digest
	Signature    []byte                   `json:"signature"`
	SignerKey    []byte                   `json:"signer_key"`
	Proof        []byte                   `json:"proof,omitempty"`
	PublicInputs [][]byte                 `json:"public_inputs,omitempty"`
	Mode         string                   `json:"mode"`
}

// HasProof reports whether the attestation can use the proof entry point.
func (a *Attestation) HasProof() bool {
	return a.Mode == ModeProof && len(a.Proof) > 0
}

// Signer is the injected signing capability. Implementations must produce a
// detached signature over arbitrary bytes; key storage is their concern.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
	PublicKey() []byte
}
