package attest

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"tc.com/price-attestor/pkg/attest/prover"
	"tc.com/price-attestor/pkg/consensus"
	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/metrics"
)

// NonceSource produces commitment nonces. The default draws from
// crypto/rand; tests inject a deterministic source.
type NonceSource func() (uint64, error)

func randomNonce() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Attestor turns consensus prices into signed attestations. It is safe for
// concurrent use as long as the injected signer is.
type Attestor struct {
	signer Signer
	prover prover.Prover
	nonce  NonceSource
	logger *logging.Logger
}

// Option configures an Attestor.
type Option func(*Attestor)

// WithProver attaches a proving service. Without one every attestation is
// produced in legacy mode.
func WithProver(p prover.Prover) Option {
	return func(a *Attestor) {
		a.prover = p
	}
}

// WithNonceSource replaces the nonce source.
func WithNonceSource(source NonceSource) Option {
	return func(a *Attestor) {
		a.nonce = source
	}
}

// NewAttestor creates an attestor around the given signer.
func NewAttestor(signer Signer, logger *logging.Logger, opts ...Option) *Attestor {
	a := &Attestor{
		signer: signer,
		nonce:  randomNonce,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Attest builds a signed attestation for a consensus price. Proof generation
// failures degrade the attestation to legacy mode; only signing failures are
// returned as errors, since an attestation without a valid signature is
// unusable on any entry point.
func (a *Attestor) Attest(ctx context.Context, cp consensus.ConsensusPrice) (*Attestation, error) {
	scaled, err := ScalePrice(cp.Price)
	if err != nil {
		return nil, err
	}

	nonce, err := a.nonce()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonceGeneration, err)
	}

	timestamp := cp.Timestamp.Unix()
	digest, err := CommitmentDigest(cp.Symbol, scaled, timestamp, nonce)
	if err != nil {
		return nil, err
	}

	signature, err := a.signer.Sign(digest[:])
	if err != nil {
		metrics.RecordSigningError()
		return nil, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	att := &Attestation{
		Consensus:   cp,
		ScaledPrice: scaled,
		Nonce:       nonce,
		Commitment:  fmt.Sprintf("%X", digest),
		Signature:   signature,
		SignerKey:   a.signer.PublicKey(),
		Mode:        ModeLegacy,
	}

	if a.prover != nil {
		a.attachProof(ctx, att, digest, scaled, timestamp)
	}

	metrics.RecordAttestation(att.Mode)
	a.logger.Info("Created attestation",
		"symbol", cp.Symbol,
		"commitment", att.Commitment,
		"mode", att.Mode,
		"nonce", nonce,
	)
	return att, nil
}

// attachProof asks the proving service for a proof and upgrades the
// attestation when the result passes the contract's acceptance checks.
func (a *Attestor) attachProof(ctx context.Context, att *Attestation, digest [32]byte, scaled, timestamp int64) {
	start := time.Now()
	proof, err := a.prover.Prove(ctx, prover.Request{
		Symbol:      att.Consensus.Symbol,
		Commitment:  digest,
		ScaledPrice: scaled,
		Timestamp:   timestamp,
	})
	metrics.RecordProofGeneration(time.Since(start))
	if err != nil {
		a.logger.Warn("Proof generation failed, falling back to legacy attestation",
			"symbol", att.Consensus.Symbol,
			"error", err.Error(),
		)
		return
	}
	if err := prover.Validate(proof, scaled); err != nil {
		a.logger.Warn("Prover returned proof the contract would reject, falling back to legacy attestation",
			"symbol", att.Consensus.Symbol,
			"error", err.Error(),
		)
		return
	}

	att.Proof = proof.Proof
	att.PublicInputs = proof.PublicInputs
	att.Mode = ModeProof
	a.logger.Debug("Attached proof",
		"symbol", att.Consensus.Symbol,
		"replay_key", prover.ReplayKey(proof.Proof),
	)
}
