package transaction

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// ListFilter bounds and restricts a transaction page. Processed of nil means
// both processed and unprocessed records.
type ListFilter struct {
	Limit     int
	Offset    int
	Processed *bool
}

// Repository defines transaction persistence operations
type Repository interface {
	// Insert stores the record unless its id already exists anywhere in the
	// store. Returns true when the row was actually inserted (the record was
	// novel), false when the id was a duplicate. The uniqueness check and the
	// insert are a single atomic statement, never a query-then-insert.
	Insert(ctx context.Context, rec *Record) (bool, error)

	// MarkProcessed flips the processed flag for every id in ids that belongs
	// to batchID and is not yet processed. Returns the number of rows newly
	// marked; already-processed and unknown ids are no-ops.
	MarkProcessed(ctx context.Context, batchID string, ids []string) (int64, error)

	// CountProcessed returns the exact number of processed rows in the batch
	CountProcessed(ctx context.Context, batchID string) (int, error)

	// IDsInBatch returns the subset of ids that belong to batchID
	IDsInBatch(ctx context.Context, batchID string, ids []string) ([]string, error)

	// ListByBatch returns a page of the batch's records ordered by creation
	// time ascending (id ascending as tiebreak) for deterministic pagination
	ListByBatch(ctx context.Context, batchID string, filter ListFilter) ([]*Record, error)

	WithTx(tx pgx.Tx) Repository
}
