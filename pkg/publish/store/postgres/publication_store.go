package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tc.com/price-attestor/pkg/attest"
	"tc.com/price-attestor/pkg/publish/store"
)

// PublicationStore implements store.Store using PostgreSQL.
type PublicationStore struct {
	pool *Pool
}

// NewPublicationStore creates a new PublicationStore.
func NewPublicationStore(pool *Pool) *PublicationStore {
	return &PublicationStore{pool: pool}
}

// Compile-time interface check.
var _ store.Store = (*PublicationStore)(nil)

const publicationColumns = `
	commitment, symbol, attestation, status, entry_point, tx_id,
	attempts, polls, last_error, unknown_outcome, created_at, updated_at
`

// Insert adds a new record. Returns ErrDuplicateKey if the commitment exists.
func (s *PublicationStore) Insert(ctx context.Context, rec *store.PublicationRecord) error {
	if rec == nil || rec.Commitment == "" || !rec.Status.Valid() {
		return store.ErrInvalidInput
	}

	attJSON, err := json.Marshal(rec.Attestation)
	if err != nil {
		return fmt.Errorf("marshal attestation: %w", err)
	}

	query := `
		INSERT INTO publications (` + publicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.pool.Exec(ctx, query,
		rec.Commitment, rec.Symbol, attJSON, string(rec.Status), rec.EntryPoint, rec.TxID,
		rec.Attempts, rec.Polls, rec.LastError, rec.UnknownOutcome, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

// Get retrieves a record by commitment. Returns ErrNotFound if absent.
func (s *PublicationStore) Get(ctx context.Context, commitment string) (*store.PublicationRecord, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE commitment = $1`

	row := s.pool.QueryRow(ctx, query, commitment)
	rec, err := scanPublication(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get publication: %w", err)
	}
	return rec, nil
}

// Update replaces the record with the same commitment.
func (s *PublicationStore) Update(ctx context.Context, rec *store.PublicationRecord) error {
	if rec == nil || rec.Commitment == "" || !rec.Status.Valid() {
		return store.ErrInvalidInput
	}

	attJSON, err := json.Marshal(rec.Attestation)
	if err != nil {
		return fmt.Errorf("marshal attestation: %w", err)
	}

	query := `
		UPDATE publications SET
			symbol = $2, attestation = $3, status = $4, entry_point = $5, tx_id = $6,
			attempts = $7, polls = $8, last_error = $9, unknown_outcome = $10, updated_at = $11
		WHERE commitment = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		rec.Commitment, rec.Symbol, attJSON, string(rec.Status), rec.EntryPoint, rec.TxID,
		rec.Attempts, rec.Polls, rec.LastError, rec.UnknownOutcome, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update publication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListByStatus returns records in the given status, oldest first.
func (s *PublicationStore) ListByStatus(ctx context.Context, status store.Status) ([]*store.PublicationRecord, error) {
	if !status.Valid() {
		return nil, store.ErrInvalidInput
	}

	query := `
		SELECT ` + publicationColumns + `
		FROM publications
		WHERE status = $1
		ORDER BY created_at ASC, commitment ASC
	`
	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list publications by status: %w", err)
	}
	defer rows.Close()

	return scanPublications(rows)
}

// ListBySymbol returns records for a symbol, oldest first.
func (s *PublicationStore) ListBySymbol(ctx context.Context, symbol string) ([]*store.PublicationRecord, error) {
	if symbol == "" {
		return nil, store.ErrInvalidInput
	}

	query := `
		SELECT ` + publicationColumns + `
		FROM publications
		WHERE symbol = $1
		ORDER BY created_at ASC, commitment ASC
	`
	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("list publications by symbol: %w", err)
	}
	defer rows.Close()

	return scanPublications(rows)
}

// PruneTerminal deletes terminal records last updated before the cutoff.
func (s *PublicationStore) PruneTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM publications
		WHERE status IN ($1, $2) AND updated_at < $3
	`
	tag, err := s.pool.Exec(ctx, query,
		string(store.StatusConfirmed), string(store.StatusFailed), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("prune publications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanPublication scans a single row into a PublicationRecord.
func scanPublication(row pgx.Row) (*store.PublicationRecord, error) {
	var (
		rec     store.PublicationRecord
		attJSON []byte
		status  string
	)
	err := row.Scan(
		&rec.Commitment, &rec.Symbol, &attJSON, &status, &rec.EntryPoint, &rec.TxID,
		&rec.Attempts, &rec.Polls, &rec.LastError, &rec.UnknownOutcome, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = store.Status(status)
	if len(attJSON) > 0 && string(attJSON) != "null" {
		var att attest.Attestation
		if err := json.Unmarshal(attJSON, &att); err != nil {
			return nil, fmt.Errorf("unmarshal attestation: %w", err)
		}
		rec.Attestation = &att
	}
	return &rec, nil
}

// scanPublications scans multiple rows into a slice of PublicationRecord.
func scanPublications(rows pgx.Rows) ([]*store.PublicationRecord, error) {
	var records []*store.PublicationRecord

	for rows.Next() {
		rec, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan publication row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publication rows: %w", err)
	}
	return records, nil
}
