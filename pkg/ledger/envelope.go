package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"tc.com/price-attestor/pkg/attest"
)

// Envelope is a fully formed contract invocation. It is built once per
// publication and its payload reused verbatim across submit retries, so a
// retried transaction is byte-identical to the first attempt.
type Envelope struct {
	Contract   string         `json:"contract"`
	EntryPoint string         `json:"entry_point"`
	Args       invocationArgs `json:"args"`
}

// invocationArgs carries the contract call arguments. Binary fields use hex,
// account identities base58, matching the gateway's wire conventions.
type invocationArgs struct {
	Symbol       string   `json:"symbol"`
	ScaledPrice  int64    `json:"scaled_price"`
	Timestamp    int64    `json:"timestamp"`
	Nonce        uint64   `json:"nonce"`
	Commitment   string   `json:"commitment"`
	Signature    string   `json:"signature"`
	SignerKey    string   `json:"signer_key"`
	Proof        string   `json:"proof,omitempty"`
	PublicInputs []string `json:"public_inputs,omitempty"`
}

// BuildEnvelope assembles the invocation for an attestation. The entry point
// follows the attestation mode: proof-carrying attestations call
// submit_price_with_proof, the rest submit_price_legacy.
func BuildEnvelope(contract string, att *attest.Attestation) (*Envelope, error) {
	if err := ValidateAccount(contract); err != nil {
		return nil, fmt.Errorf("contract id: %w", err)
	}
	if att == nil || att.Commitment == "" || len(att.Signature) == 0 || len(att.SignerKey) == 0 {
		return nil, ErrIncompleteAttestation
	}

	args := invocationArgs{
		Symbol:      att.Consensus.Symbol,
		ScaledPrice: att.ScaledPrice,
		Timestamp:   att.Consensus.Timestamp.Unix(),
		Nonce:       att.Nonce,
		Commitment:  att.Commitment,
		Signature:   hex.EncodeToString(att.Signature),
		SignerKey:   base58.Encode(att.SignerKey),
	}

	entryPoint := EntryPointLegacy
	if att.HasProof() {
		entryPoint = EntryPointProof
		args.Proof = hex.EncodeToString(att.Proof)
		args.PublicInputs = make([]string, 0, len(att.PublicInputs))
		for _, input := range att.PublicInputs {
			args.PublicInputs = append(args.PublicInputs, hex.EncodeToString(input))
		}
	}

	return &Envelope{
		Contract:   contract,
		EntryPoint: entryPoint,
		Args:       args,
	}, nil
}

// Payload serializes the envelope for submission. Field order is fixed by
// the struct, so equal envelopes always produce equal bytes.
func (e *Envelope) Payload() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return payload, nil
}
