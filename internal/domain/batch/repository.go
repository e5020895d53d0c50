package batch

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ListFilter restricts and bounds a batch listing
type ListFilter struct {
	Status *Status // nil means all statuses
	Limit  int
}

// Repository defines batch persistence operations
type Repository interface {
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, id string) (*Batch, error)

	// LockForUpdate acquires a pessimistic lock on the batch row so that
	// concurrent mark-processed calls serialize at the store level
	LockForUpdate(ctx context.Context, id string) (*Batch, error)

	// UpdateCounts persists the counters, status and error message of an
	// already-created batch
	UpdateCounts(ctx context.Context, b *Batch) error

	// List returns batches ordered by creation time descending (most recent first)
	List(ctx context.Context, filter ListFilter) ([]*Batch, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrBatchNotFound indicates the requested batch does not exist
type ErrBatchNotFound struct {
	BatchID string
}

func (e ErrBatchNotFound) Error() string {
	return "batch not found: " + e.BatchID
}

// ErrInvalidStatus indicates a status filter value outside the reachable states
type ErrInvalidStatus struct {
	Value string
}

func (e ErrInvalidStatus) Error() string {
	return "invalid batch status: " + e.Value
}

// ErrUnknownTransactionIDs is returned in strict marking mode when a
// mark-processed request names ids that do not belong to the batch
type ErrUnknownTransactionIDs struct {
	BatchID string
	IDs     []string
}

func (e ErrUnknownTransactionIDs) Error() string {
	return "transaction ids not in batch " + e.BatchID + ": " + strings.Join(e.IDs, ", ")
}
