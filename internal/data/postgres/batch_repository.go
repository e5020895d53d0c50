// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the batch tracker.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/secondbrain/plaid-proxy/internal/domain/batch"
	"github.com/secondbrain/plaid-proxy/internal/platform/persistence"
)

// BatchRepository implements the batch.Repository interface for PostgreSQL
type BatchRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBatchRepository creates a new PostgreSQL batch repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewBatchRepository(logger *slog.Logger, db *persistence.PostgresDB) batch.Repository {
	return &BatchRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls
func (r *BatchRepository) WithTx(tx pgx.Tx) batch.Repository {
	return &BatchRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new batch row
func (r *BatchRepository) Create(ctx context.Context, b *batch.Batch) error {
	query := `
		INSERT INTO transaction_batches (id, status, total_transactions, processed_transactions, start_date, end_date, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.Status,
		b.TotalTransactions,
		b.ProcessedTransactions,
		b.StartDate,
		b.EndDate,
		b.ErrorMessage,
		b.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create batch", "batch_id", b.ID, "error", err)
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// GetByID retrieves a batch by its ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*batch.Batch, error) {
	query := `
		SELECT id, status, total_transactions, processed_transactions, start_date, end_date, error_message, created_at
		FROM transaction_batches
		WHERE id = $1
	`

	return r.scanOne(ctx, query, id)
}

// LockForUpdate obtains a pessimistic lock on the batch row and returns its
// current state. This serializes concurrent mark-processed calls against the
// same batch so the final recomputed count reflects the union of all marks.
func (r *BatchRepository) LockForUpdate(ctx context.Context, id string) (*batch.Batch, error) {
	query := `
		SELECT id, status, total_transactions, processed_transactions, start_date, end_date, error_message, created_at
		FROM transaction_batches
		WHERE id = $1
		FOR UPDATE
	`

	return r.scanOne(ctx, query, id)
}

func (r *BatchRepository) scanOne(ctx context.Context, query, id string) (*batch.Batch, error) {
	var b batch.Batch
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.Status,
		&b.TotalTransactions,
		&b.ProcessedTransactions,
		&b.StartDate,
		&b.EndDate,
		&b.ErrorMessage,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, batch.ErrBatchNotFound{BatchID: id}
		}
		r.logger.Error("Failed to get batch", "batch_id", id, "error", err)
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &b, nil
}

// UpdateCounts persists the counters, status, and error message of an existing batch
func (r *BatchRepository) UpdateCounts(ctx context.Context, b *batch.Batch) error {
	query := `
		UPDATE transaction_batches
		SET status = $1, total_transactions = $2, processed_transactions = $3, error_message = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		b.Status,
		b.TotalTransactions,
		b.ProcessedTransactions,
		b.ErrorMessage,
		b.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update batch counts", "batch_id", b.ID, "error", err)
		return fmt.Errorf("failed to update batch counts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return batch.ErrBatchNotFound{BatchID: b.ID}
	}

	return nil
}

// List returns batches ordered by creation time descending, optionally
// restricted to a status
func (r *BatchRepository) List(ctx context.Context, filter batch.ListFilter) ([]*batch.Batch, error) {
	query := `
		SELECT id, status, total_transactions, processed_transactions, start_date, end_date, error_message, created_at
		FROM transaction_batches
	`
	args := make([]interface{}, 0, 2)
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, *filter.Status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, filter.Limit)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list batches", "error", err)
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*batch.Batch
	for rows.Next() {
		var b batch.Batch
		err := rows.Scan(
			&b.ID,
			&b.Status,
			&b.TotalTransactions,
			&b.ProcessedTransactions,
			&b.StartDate,
			&b.EndDate,
			&b.ErrorMessage,
			&b.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan batch row", "error", err)
			return nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		batches = append(batches, &b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over batch rows", "error", err)
		return nil, fmt.Errorf("error iterating over batch rows: %w", err)
	}

	return batches, nil
}
