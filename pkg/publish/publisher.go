// Package publish drives attestations onto the ledger. Each attestation is
// tracked as a publication record keyed by its commitment and walked through
// the PENDING, SUBMITTED and terminal CONFIRMED or FAILED states. Submission
// reuses one envelope payload across retries, so the ledger sees identical
// bytes no matter how often an attempt is repeated.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tc.com/price-attestor/pkg/attest"
	"tc.com/price-attestor/pkg/ledger"
	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/metrics"
	"tc.com/price-attestor/pkg/publish/store"
)

const (
	// DefaultMaxAttempts bounds submission retries for one attestation.
	DefaultMaxAttempts = 5
	// DefaultRetryBackoff is the initial delay between submission attempts.
	// The delay doubles per attempt up to maxRetryBackoff.
	DefaultRetryBackoff = 500 * time.Millisecond
	// DefaultPollInterval is the delay between confirmation polls.
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxPolls bounds confirmation polling for one transaction.
	DefaultMaxPolls = 30

	maxRetryBackoff = 10 * time.Second
)

// Config holds the publisher settings.
type Config struct {
	// Contract is the base58 account of the price oracle contract.
	Contract string
	// MaxAttempts bounds how often one payload is submitted.
	MaxAttempts int
	// RetryBackoff is the initial delay between submission attempts.
	RetryBackoff time.Duration
	// PollInterval is the delay between confirmation polls.
	PollInterval time.Duration
	// MaxPolls bounds how often one transaction status is polled.
	MaxPolls int
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = DefaultMaxPolls
	}
}

// Publisher submits attestations through a ledger gateway and tracks their
// lifecycle in a publication store.
type Publisher struct {
	gateway ledger.Gateway
	records store.Store
	cfg     Config
	logger  *logging.Logger
	locks   *keyedMutex
}

// NewPublisher validates the contract account and returns a publisher.
func NewPublisher(gateway ledger.Gateway, records store.Store, cfg Config, logger *logging.Logger) (*Publisher, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if records == nil {
		return nil, fmt.Errorf("publication store is required")
	}
	if err := ledger.ValidateAccount(cfg.Contract); err != nil {
		return nil, fmt.Errorf("contract account: %w", err)
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	return &Publisher{
		gateway: gateway,
		records: records,
		cfg:     cfg,
		logger:  logger,
		locks:   newKeyedMutex(),
	}, nil
}

// Publish submits the attestation and waits for its confirmation. It is
// idempotent: republishing an attestation whose record is already terminal
// returns that record without touching the ledger, and a record left in
// SUBMITTED resumes confirmation polling instead of submitting again.
func (p *Publisher) Publish(ctx context.Context, att *attest.Attestation) (*store.PublicationRecord, error) {
	rec, err := p.Submit(ctx, att)
	if err != nil {
		return rec, err
	}

	switch rec.Status {
	case store.StatusConfirmed:
		return rec, nil
	case store.StatusFailed:
		return rec, fmt.Errorf("%w: %s", ErrSubmissionFailed, rec.LastError)
	}

	return p.Confirm(ctx, rec.Commitment)
}

// Submit places the attestation on the ledger and returns its record in the
// SUBMITTED state. If a record already exists for the commitment it is
// returned as is; no duplicate transaction is sent. Submission retries
// transient gateway failures with backoff, reusing the exact payload built
// on the first attempt. A rejection from the gateway is terminal.
func (p *Publisher) Submit(ctx context.Context, att *attest.Attestation) (*store.PublicationRecord, error) {
	if att == nil || att.Commitment == "" {
		return nil, ErrInvalidAttestation
	}

	unlock := p.locks.lock(att.Commitment)
	defer unlock()

	existing, err := p.records.Get(ctx, att.Commitment)
	if err == nil {
		p.logger.Debug("Publication already tracked",
			"commitment", existing.Commitment,
			"status", string(existing.Status),
		)
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load publication record: %w", err)
	}

	now := time.Now().UTC()
	rec := &store.PublicationRecord{
		Commitment:  att.Commitment,
		Symbol:      att.Consensus.Symbol,
		Attestation: att,
		Status:      store.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.records.Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// Another process won the race; adopt its record.
			return p.records.Get(ctx, att.Commitment)
		}
		return nil, fmt.Errorf("insert publication record: %w", err)
	}

	env, err := ledger.BuildEnvelope(p.cfg.Contract, att)
	if err != nil {
		p.fail(ctx, rec, fmt.Sprintf("build envelope: %v", err), false)
		return rec, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	rec.EntryPoint = env.EntryPoint

	payload, err := env.Payload()
	if err != nil {
		p.fail(ctx, rec, fmt.Sprintf("encode envelope: %v", err), false)
		return rec, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	return p.submitPayload(ctx, rec, payload)
}

// submitPayload drives the bounded retry loop for one fixed payload.
func (p *Publisher) submitPayload(ctx context.Context, rec *store.PublicationRecord, payload []byte) (*store.PublicationRecord, error) {
	backoff := p.cfg.RetryBackoff
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		rec.Attempts++

		txID, err := p.gateway.SubmitTransaction(ctx, payload)
		if err == nil {
			rec.Status = store.StatusSubmitted
			rec.TxID = txID
			rec.LastError = ""
			rec.UpdatedAt = time.Now().UTC()
			if err := p.records.Update(ctx, rec); err != nil {
				return rec, fmt.Errorf("persist submitted record: %w", err)
			}
			metrics.RecordSubmission(rec.EntryPoint, "submitted")
			metrics.RecordSubmissionAttempts(rec.Attempts)
			p.logger.Info("Submitted publication",
				"symbol", rec.Symbol,
				"commitment", rec.Commitment,
				"tx_id", rec.TxID,
				"entry_point", rec.EntryPoint,
				"attempts", rec.Attempts,
			)
			return rec, nil
		}
		lastErr = err

		if errors.Is(err, ledger.ErrSubmitRejected) {
			metrics.RecordSubmission(rec.EntryPoint, "rejected")
			p.fail(ctx, rec, err.Error(), false)
			return rec, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		}
		if ctx.Err() != nil {
			// Leave the record in PENDING; no transaction went out.
			rec.LastError = ctx.Err().Error()
			p.persist(ctx, rec)
			return rec, ctx.Err()
		}

		p.logger.Warn("Submission attempt failed",
			"symbol", rec.Symbol,
			"commitment", rec.Commitment,
			"attempt", attempt,
			"max_attempts", p.cfg.MaxAttempts,
			"error", err.Error(),
		)
		if attempt < p.cfg.MaxAttempts {
			if err := sleepCtx(ctx, backoff); err != nil {
				rec.LastError = err.Error()
				p.persist(ctx, rec)
				return rec, err
			}
			backoff *= 2
			if backoff > maxRetryBackoff {
				backoff = maxRetryBackoff
			}
		}
	}

	metrics.RecordSubmission(rec.EntryPoint, "exhausted")
	p.fail(ctx, rec, fmt.Sprintf("all %d submission attempts failed: %v", p.cfg.MaxAttempts, lastErr), false)
	return rec, fmt.Errorf("%w after %d attempts: %v", ErrSubmissionFailed, p.cfg.MaxAttempts, lastErr)
}

// Confirm polls the gateway until the record's transaction reaches a
// terminal status or the poll budget runs out. Cancelling the context keeps
// the record in SUBMITTED so a later run can resume it. An exhausted budget
// marks the record FAILED with UnknownOutcome set, since the transaction may
// still land.
func (p *Publisher) Confirm(ctx context.Context, commitment string) (*store.PublicationRecord, error) {
	unlock := p.locks.lock(commitment)
	defer unlock()

	rec, err := p.records.Get(ctx, commitment)
	if err != nil {
		return nil, err
	}
	if rec.Status.Terminal() {
		return rec, nil
	}
	if rec.Status != store.StatusSubmitted {
		return rec, fmt.Errorf("%w: record is %s", ErrNotSubmitted, rec.Status)
	}

	submittedAt := rec.UpdatedAt

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for polls := 0; polls < p.cfg.MaxPolls; polls++ {
		select {
		case <-ctx.Done():
			// Keep SUBMITTED so the record stays resumable.
			p.persist(ctx, rec)
			return rec, ctx.Err()
		case <-ticker.C:
			if ctx.Err() != nil {
				p.persist(ctx, rec)
				return rec, ctx.Err()
			}
			rec.Polls++

			status, err := p.gateway.GetTransaction(ctx, rec.TxID)
			if err != nil {
				if errors.Is(err, ledger.ErrTxNotFound) {
					p.logger.Debug("Transaction not indexed yet",
						"commitment", rec.Commitment,
						"tx_id", rec.TxID,
						"polls", rec.Polls,
					)
					continue
				}
				if ctx.Err() != nil {
					p.persist(ctx, rec)
					return rec, ctx.Err()
				}
				p.logger.Warn("Confirmation poll failed",
					"commitment", rec.Commitment,
					"tx_id", rec.TxID,
					"polls", rec.Polls,
					"error", err.Error(),
				)
				continue
			}

			switch status.Status {
			case ledger.TxStatusPending:
				continue
			case ledger.TxStatusSuccess:
				rec.Status = store.StatusConfirmed
				rec.LastError = ""
				rec.UpdatedAt = time.Now().UTC()
				if err := p.records.Update(ctx, rec); err != nil {
					return rec, fmt.Errorf("persist confirmed record: %w", err)
				}
				metrics.RecordConfirmation(time.Since(submittedAt))
				metrics.RecordPublication(rec.Symbol, "confirmed")
				p.logger.Info("Publication confirmed",
					"symbol", rec.Symbol,
					"commitment", rec.Commitment,
					"tx_id", rec.TxID,
					"polls", rec.Polls,
				)
				return rec, nil
			case ledger.TxStatusFailed:
				p.fail(ctx, rec, status.Reason, false)
				return rec, fmt.Errorf("%w: %s", ErrContractRejected, status.Reason)
			default:
				p.logger.Warn("Unexpected transaction status",
					"commitment", rec.Commitment,
					"tx_id", rec.TxID,
					"status", status.Status,
				)
				continue
			}
		}
	}

	p.fail(ctx, rec, fmt.Sprintf("no terminal status after %d polls", p.cfg.MaxPolls), true)
	return rec, fmt.Errorf("%w: transaction %s unresolved after %d polls", ErrConfirmationTimeout, rec.TxID, p.cfg.MaxPolls)
}

// ResumeSubmitted confirms every record left in SUBMITTED by a previous run.
// Individual failures are logged and skipped; only context cancellation and
// store errors abort the sweep.
func (p *Publisher) ResumeSubmitted(ctx context.Context) error {
	records, err := p.records.ListByStatus(ctx, store.StatusSubmitted)
	if err != nil {
		return fmt.Errorf("list submitted publications: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	p.logger.Info("Resuming submitted publications", "count", len(records))
	for _, rec := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := p.Confirm(ctx, rec.Commitment); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Warn("Resumed publication did not confirm",
				"commitment", rec.Commitment,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// fail moves the record to FAILED and persists it. unknown marks outcomes
// where the transaction may still land despite the exhausted poll budget.
func (p *Publisher) fail(ctx context.Context, rec *store.PublicationRecord, reason string, unknown bool) {
	rec.Status = store.StatusFailed
	rec.LastError = reason
	rec.UnknownOutcome = unknown
	p.persist(ctx, rec)
	metrics.RecordPublication(rec.Symbol, "failed")
	p.logger.Warn("Publication failed",
		"symbol", rec.Symbol,
		"commitment", rec.Commitment,
		"reason", reason,
		"unknown_outcome", unknown,
	)
}

// persist writes the record with a context that survives cancellation of
// the caller's, so state transitions are not lost during shutdown.
func (p *Publisher) persist(ctx context.Context, rec *store.PublicationRecord) {
	rec.UpdatedAt = time.Now().UTC()
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.records.Update(updateCtx, rec); err != nil {
		p.logger.Error("Failed to persist publication record",
			"commitment", rec.Commitment,
			"status", string(rec.Status),
			"error", err.Error(),
		)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
