// Package prover generates and validates zero-knowledge proofs for price
// attestations. The checks here mirror what the verifying contract enforces,
// so malformed proofs are caught before a transaction is ever built.
package prover

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const (
	// MinProofLen is the smallest proof the verifier accepts.
	MinProofLen = 256

	// zeroPrefixLen is the leading span that must contain at least one
	// non-zero byte. An all-zero prefix marks a padded or unset proof.
	zeroPrefixLen = 64

	// PublicInputLen is the byte width of each public input word.
	PublicInputLen = 32

	// circuitPriceDivisor reduces a 7-decimal fixed-point price to the
	// 2-decimal form the circuit commits to.
	circuitPriceDivisor = 100000
)

// Request carries everything the proving service needs to build a proof for
// one attestation.
type Request struct {
	Symbol      string
	Commitment  [32]byte
	ScaledPrice int64
	Timestamp   int64
}

// Proof is the prover output: the proof blob plus the circuit's public
// inputs, each a fixed-width big-endian word.
type Proof struct {
	Proof        []byte
	PublicInputs [][]byte
}

// Prover produces a proof binding a commitment to its price. Implementations
// must honor context cancellation.
type Prover interface {
	Prove(ctx context.Context, req Request) (*Proof, error)
}

// CircuitPrice reduces a fixed-point price to the 2-decimal value the
// circuit exposes as its first public input.
func CircuitPrice(scaledPrice int64) int64 {
	return scaledPrice / circuitPriceDivisor
}

// PriceToPublicInput encodes a circuit price as a 32-byte big-endian word.
func PriceToPublicInput(scaledPrice int64) []byte {
	word := make([]byte, PublicInputLen)
	binary.BigEndian.PutUint64(word[PublicInputLen-8:], uint64(CircuitPrice(scaledPrice)))
	return word
}

// Validate checks a proof against the contract's acceptance rules and the
// attested price. A proof that fails here would be rejected on chain, so the
// attestation should fall back to the legacy entry point instead.
func Validate(p *Proof, scaledPrice int64) error {
	if p == nil || len(p.Proof) == 0 {
		return ErrEmptyProof
	}
	if len(p.Proof) < MinProofLen {
		return fmt.Errorf("%w: %d bytes, need %d", ErrProofTooShort, len(p.Proof), MinProofLen)
	}
	prefix := p.Proof[:zeroPrefixLen]
	if bytes.Equal(prefix, make([]byte, zeroPrefixLen)) {
		return ErrZeroProofPrefix
	}
	if len(p.PublicInputs) == 0 {
		return ErrNoPublicInputs
	}
	for i, input := range p.PublicInputs {
		if len(input) != PublicInputLen {
			return fmt.Errorf("%w: input %d has %d bytes", ErrMalformedPublicInput, i, len(input))
		}
	}
	if !bytes.Equal(p.PublicInputs[0], PriceToPublicInput(scaledPrice)) {
		return fmt.Errorf("%w: input %X, attested price %d", ErrPriceMismatch, p.PublicInputs[0], scaledPrice)
	}
	return nil
}

// ReplayKey derives the key the contract uses to reject resubmitted proofs,
// the keccak256 digest of the proof blob.
func ReplayKey(proof []byte) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(proof)
	return hex.EncodeToString(hash.Sum(nil))
}
