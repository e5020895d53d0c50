package transaction

import "time"

// Document is the opaque structured form of a provider payload: field names
// and types are preserved as the provider sent them, with no fixed schema on
// this side. It is the boundary between the provider adapter and the store.
type Document map[string]any

// Record is a single ingested transaction. ID is the provider's transaction
// identifier and is globally unique across all batches: a transaction belongs
// to exactly one batch, the one in which it was first seen. Processed is
// monotonic; once set it is never reset.
type Record struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batch_id"`
	Data      Document  `json:"data"`
	Processed bool      `json:"processed"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord creates an unprocessed record for first-sighting ingestion
func NewRecord(id, batchID string, data Document) *Record {
	return &Record{
		ID:        id,
		BatchID:   batchID,
		Data:      data,
		Processed: false,
		CreatedAt: time.Now().UTC(),
	}
}
