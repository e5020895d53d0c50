package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
	"github.com/secondbrain/plaid-proxy/internal/platform/persistence"
)

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Insert stores the record unless its provider id already exists anywhere in
// the store. The primary key on id makes the existence check and the insert a
// single atomic statement, closing the check-then-insert window between
// concurrent ingestions.
func (r *TransactionRepository) Insert(ctx context.Context, rec *transaction.Record) (bool, error) {
	query := `
		INSERT INTO transactions (id, batch_id, data, processed, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		rec.ID,
		rec.BatchID,
		rec.Data,
		rec.Processed,
		rec.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert transaction", "transaction_id", rec.ID, "batch_id", rec.BatchID, "error", err)
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// MarkProcessed flips the processed flag for ids belonging to the batch.
// Already-processed and unknown ids are no-ops; the returned count covers only
// newly marked rows.
func (r *TransactionRepository) MarkProcessed(ctx context.Context, batchID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE transactions
		SET processed = TRUE
		WHERE batch_id = $1 AND id = ANY($2) AND processed = FALSE
	`

	result, err := r.querier.Exec(ctx, query, batchID, ids)
	if err != nil {
		r.logger.Error("Failed to mark transactions processed", "batch_id", batchID, "error", err)
		return 0, fmt.Errorf("failed to mark transactions processed: %w", err)
	}

	return result.RowsAffected(), nil
}

// CountProcessed returns the exact number of processed rows in the batch.
// The count is always derived from the persisted flags, never incremented.
func (r *TransactionRepository) CountProcessed(ctx context.Context, batchID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE batch_id = $1 AND processed = TRUE
	`

	var count int
	if err := r.querier.QueryRow(ctx, query, batchID).Scan(&count); err != nil {
		r.logger.Error("Failed to count processed transactions", "batch_id", batchID, "error", err)
		return 0, fmt.Errorf("failed to count processed transactions: %w", err)
	}

	return count, nil
}

// IDsInBatch returns the subset of ids that belong to the batch
func (r *TransactionRepository) IDsInBatch(ctx context.Context, batchID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id
		FROM transactions
		WHERE batch_id = $1 AND id = ANY($2)
	`

	rows, err := r.querier.Query(ctx, query, batchID, ids)
	if err != nil {
		r.logger.Error("Failed to select transaction ids", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("failed to select transaction ids: %w", err)
	}
	defer rows.Close()

	var known []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		known = append(known, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction ids: %w", err)
	}

	return known, nil
}

// ListByBatch returns a page of the batch's records. Ordering by creation time
// with id as tiebreak keeps repeated reads of the same window identical.
func (r *TransactionRepository) ListByBatch(ctx context.Context, batchID string, filter transaction.ListFilter) ([]*transaction.Record, error) {
	query := `
		SELECT id, batch_id, data, processed, created_at
		FROM transactions
		WHERE batch_id = $1
	`
	args := []interface{}{batchID}
	if filter.Processed != nil {
		query += fmt.Sprintf(` AND processed = $%d`, len(args)+1)
		args = append(args, *filter.Processed)
	}
	query += fmt.Sprintf(` ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var records []*transaction.Record
	for rows.Next() {
		var rec transaction.Record
		err := rows.Scan(
			&rec.ID,
			&rec.BatchID,
			&rec.Data,
			&rec.Processed,
			&rec.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan transaction row", "error", err)
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transaction rows", "error", err)
		return nil, fmt.Errorf("error iterating over transaction rows: %w", err)
	}

	return records, nil
}
