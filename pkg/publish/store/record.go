// Package store defines publication records and their persistence interface.
// Records are keyed by commitment, so one attestation maps to exactly one
// publication regardless of how often it is submitted.
package store

import (
	"time"

	"tc.com/price-attestor/pkg/attest"
)

// Status is a publication lifecycle state.
type Status string

const (
	// StatusPending marks a record created but not yet accepted by a gateway.
	StatusPending Status = "PENDING"
	// StatusSubmitted marks a record with a transaction id awaiting
	// confirmation.
	StatusSubmitted Status = "SUBMITTED"
	// StatusConfirmed marks a successfully published record.
	StatusConfirmed Status = "CONFIRMED"
	// StatusFailed marks a record that will not be published.
	StatusFailed Status = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusConfirmed, StatusFailed:
		return true
	}
	return false
}

// PublicationRecord tracks one attestation through submission and
// confirmation.
type PublicationRecord struct {
	Commitment  string              `json:"commitment"`
	Symbol      string              `json:"symbol"`
	Attestation *attest.Attestation `json:"attestation"`
	Status      Status              `json:"status"`
	EntryPoint  string              `json:"entry_point"`
	TxID        string              `json:"tx_id,omitempty"`
	Attempts    int                 `json:"attempts"`
	Polls       int                 `json:"polls"`
	LastError   string              `json:"last_error,omitempty"`

	// UnknownOutcome is set when confirmation polling was exhausted without
	// reaching a terminal gateway status. The transaction may still land;
	// this is not a contract rejection.
	UnknownOutcome bool `json:"unknown_outcome,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy of the record. The attestation is shared; it is
// immutable once created.
func (r *PublicationRecord) Clone() *PublicationRecord {
	clone := *r
	return &clone
}
