package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the reachable batch states. A batch starts pending and
// moves to completed exactly once, when every transaction in it has been
// marked processed. There is no transition back to pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Common validation errors
var (
	ErrInvalidDateRange = errors.New("start date must not be after end date")
	ErrEmptyAccessToken = errors.New("access token cannot be empty")
)

// Batch is a named, date-ranged ingestion unit grouping transactions that were
// first seen during one ingestion run. TotalTransactions counts only the novel
// (non-duplicate) records and is fixed once ingestion completes;
// ProcessedTransactions is recomputed from per-transaction flags and never
// decreases.
type Batch struct {
	ID                    string    `json:"id"`
	Status                Status    `json:"status"`
	TotalTransactions     int       `json:"total_transactions"`
	ProcessedTransactions int       `json:"processed_transactions"`
	StartDate             time.Time `json:"start_date"`
	EndDate               time.Time `json:"end_date"`
	ErrorMessage          *string   `json:"error_message,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewBatch creates a pending batch for the given query range. The id is
// derived from the creation timestamp with a uuid suffix: readable for humans,
// unique by construction.
func NewBatch(startDate, endDate time.Time) (*Batch, error) {
	if startDate.After(endDate) {
		return nil, ErrInvalidDateRange
	}

	now := time.Now().UTC()
	return &Batch{
		ID:        fmt.Sprintf("batch_%s_%s", now.Format("20060102150405"), uuid.NewString()[:8]),
		Status:    StatusPending,
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: now,
	}, nil
}

// ApplyProcessedCount records a freshly recomputed processed count and derives
// the status from it. Completion requires a non-empty batch; a completed batch
// never reverts to pending.
func (b *Batch) ApplyProcessedCount(count int) {
	b.ProcessedTransactions = count
	if b.TotalTransactions > 0 && count == b.TotalTransactions {
		b.Status = StatusCompleted
	}
}

// ProgressPercentage returns processed/total as a percentage, 0 for an empty batch.
func (b *Batch) ProgressPercentage() float64 {
	if b.TotalTransactions == 0 {
		return 0
	}
	return float64(b.ProcessedTransactions) / float64(b.TotalTransactions) * 100
}

// Summary is the batch-list projection: the batch row plus its derived progress.
type Summary struct {
	Batch
	ProgressPercentage float64 `json:"progress_percentage"`
}

// Summarize produces the list projection for this batch
func (b *Batch) Summarize() Summary {
	return Summary{
		Batch:              *b,
		ProgressPercentage: b.ProgressPercentage(),
	}
}

// ParseStatus converts a string into a Status, accepting only reachable states
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus{Value: s}
	}
}
