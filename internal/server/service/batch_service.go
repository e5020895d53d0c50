package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/secondbrain/plaid-proxy/internal/config"
	"github.com/secondbrain/plaid-proxy/internal/domain/batch"
	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
	"github.com/secondbrain/plaid-proxy/internal/provider"
)

const (
	defaultTransactionPageSize = 50
	defaultBatchPageSize       = 20
)

// TxRunner runs a function inside a single storage transaction. Satisfied by
// *persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// BatchServiceImpl implements the BatchService interface
type BatchServiceImpl struct {
	logger          *slog.Logger
	txRunner        TxRunner
	batchRepo       batch.Repository
	transactionRepo transaction.Repository
	factory         provider.Factory
	defaults        provider.Credentials
	strictMarking   bool
	maxPageSize     int
}

// NewBatchService creates a new batch service
func NewBatchService(
	logger *slog.Logger,
	cfg *config.Config,
	txRunner TxRunner,
	batchRepo batch.Repository,
	transactionRepo transaction.Repository,
	factory provider.Factory,
) BatchService {
	return &BatchServiceImpl{
		logger:          logger,
		txRunner:        txRunner,
		batchRepo:       batchRepo,
		transactionRepo: transactionRepo,
		factory:         factory,
		defaults: provider.Credentials{
			ClientID:    cfg.Plaid.ClientID,
			Secret:      cfg.Plaid.Secret,
			Environment: cfg.Plaid.Environment,
		},
		strictMarking: cfg.Batch.StrictMarking,
		maxPageSize:   cfg.Batch.MaxPageSize,
	}
}

// CreateBatch fetches the date range from the provider and ingests the result
// as one batch. The batch row, every novel transaction and the final counters
// are written in a single storage transaction, so a failure anywhere leaves no
// partial batch behind.
func (s *BatchServiceImpl) CreateBatch(ctx context.Context, accessToken string, startDate, endDate time.Time, creds provider.Credentials) (*batch.Batch, error) {
	if accessToken == "" {
		return nil, batch.ErrEmptyAccessToken
	}

	b, err := batch.NewBatch(startDate, endDate)
	if err != nil {
		return nil, err
	}

	client, err := resolveClient(s.factory, s.defaults, creds)
	if err != nil {
		return nil, err
	}

	raw, err := client.FetchTransactions(ctx, accessToken, startDate, endDate)
	if err != nil {
		s.logger.Error("Provider fetch failed", "batch_id", b.ID, "error", err)
		return nil, err
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		batchRepo := s.batchRepo.WithTx(tx)
		transactionRepo := s.transactionRepo.WithTx(tx)

		if err := batchRepo.Create(ctx, b); err != nil {
			return err
		}

		novel := 0
		for _, r := range raw {
			if r.ID == "" {
				s.logger.Warn("Skipping provider record without an id", "batch_id", b.ID)
				continue
			}
			inserted, err := transactionRepo.Insert(ctx, transaction.NewRecord(r.ID, b.ID, r.Data))
			if err != nil {
				return err
			}
			if inserted {
				novel++
			}
		}

		b.TotalTransactions = novel
		return batchRepo.UpdateCounts(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Batch created",
		"batch_id", b.ID,
		"fetched", len(raw),
		"novel", b.TotalTransactions,
		"duplicates", len(raw)-b.TotalTransactions,
	)
	return b, nil
}

// MarkProcessed marks the given ids processed and refreshes the batch's
// derived state, returning the refreshed batch and the number of newly marked
// transactions. The batch row is locked for the duration of the transaction
// so concurrent markers serialize and every recount sees a settled flag set.
func (s *BatchServiceImpl) MarkProcessed(ctx context.Context, batchID string, ids []string) (*batch.Batch, int, error) {
	var result *batch.Batch
	var marked int64

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		batchRepo := s.batchRepo.WithTx(tx)
		transactionRepo := s.transactionRepo.WithTx(tx)

		b, err := batchRepo.LockForUpdate(ctx, batchID)
		if err != nil {
			return err
		}

		if s.strictMarking {
			if err := rejectUnknownIDs(ctx, transactionRepo, batchID, ids); err != nil {
				return err
			}
		}

		marked, err = transactionRepo.MarkProcessed(ctx, batchID, ids)
		if err != nil {
			return err
		}

		count, err := transactionRepo.CountProcessed(ctx, batchID)
		if err != nil {
			return err
		}

		b.ApplyProcessedCount(count)
		if err := batchRepo.UpdateCounts(ctx, b); err != nil {
			return err
		}

		s.logger.Info("Transactions marked processed",
			"batch_id", batchID,
			"requested", len(ids),
			"newly_marked", marked,
			"processed", b.ProcessedTransactions,
			"total", b.TotalTransactions,
			"status", b.Status,
		)
		result = b
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return result, int(marked), nil
}

// rejectUnknownIDs returns ErrUnknownTransactionIDs when any of ids does not
// belong to the batch
func rejectUnknownIDs(ctx context.Context, repo transaction.Repository, batchID string, ids []string) error {
	known, err := repo.IDsInBatch(ctx, batchID, ids)
	if err != nil {
		return err
	}

	knownSet := make(map[string]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	var unknown []string
	for _, id := range ids {
		if _, ok := knownSet[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return batch.ErrUnknownTransactionIDs{BatchID: batchID, IDs: unknown}
	}
	return nil
}

// GetBatch retrieves a batch by its ID, returns ErrBatchNotFound if not found
func (s *BatchServiceImpl) GetBatch(ctx context.Context, batchID string) (*batch.Batch, error) {
	return s.batchRepo.GetByID(ctx, batchID)
}

// ListTransactions returns a page of the batch's transactions after verifying
// the batch exists. The returned filter carries the limit and offset that were
// actually applied so callers can echo them.
func (s *BatchServiceImpl) ListTransactions(ctx context.Context, batchID string, filter transaction.ListFilter) ([]*transaction.Record, transaction.ListFilter, error) {
	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, transaction.ListFilter{}, err
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultTransactionPageSize
	}
	if filter.Limit > s.maxPageSize {
		filter.Limit = s.maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	records, err := s.transactionRepo.ListByBatch(ctx, batchID, filter)
	if err != nil {
		return nil, transaction.ListFilter{}, err
	}
	return records, filter, nil
}

// ListBatches returns batch summaries, most recent first
func (s *BatchServiceImpl) ListBatches(ctx context.Context, filter batch.ListFilter) ([]batch.Summary, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultBatchPageSize
	}

	batches, err := s.batchRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]batch.Summary, 0, len(batches))
	for _, b := range batches {
		summaries = append(summaries, b.Summarize())
	}
	return summaries, nil
}
