package service

import (
	"context"
	"time"

	"github.com/secondbrain/plaid-proxy/internal/domain/batch"
	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
	"github.com/secondbrain/plaid-proxy/internal/provider"
)

// BatchService defines the interface for batch ingestion and tracking operations
type BatchService interface {
	// CreateBatch fetches the transactions in [startDate, endDate] from the
	// provider and ingests them as a new batch in one storage transaction.
	// Records whose ids already exist anywhere in the store are skipped; only
	// novel records count toward the batch total. A provider failure leaves no
	// batch behind.
	CreateBatch(ctx context.Context, accessToken string, startDate, endDate time.Time, creds provider.Credentials) (*batch.Batch, error)

	// MarkProcessed flips the processed flag for the given transaction ids of
	// the batch, recomputes the batch's processed count from the stored flags
	// and completes the batch when every transaction is processed. Marking is
	// idempotent; the returned count covers only newly marked transactions.
	// Returns ErrBatchNotFound for an unknown batch and, in strict mode,
	// ErrUnknownTransactionIDs when ids outside the batch are named.
	MarkProcessed(ctx context.Context, batchID string, ids []string) (*batch.Batch, int, error)

	// GetBatch retrieves a batch by its ID
	// Returns ErrBatchNotFound if the batch doesn't exist
	GetBatch(ctx context.Context, batchID string) (*batch.Batch, error)

	// ListTransactions returns a page of the batch's transactions along with
	// the effective filter it applied. A non-positive limit falls back to the
	// default page size; the limit is capped at the configured maximum.
	ListTransactions(ctx context.Context, batchID string, filter transaction.ListFilter) ([]*transaction.Record, transaction.ListFilter, error)

	// ListBatches returns batch summaries, most recent first, optionally
	// filtered by status. A non-positive limit falls back to the default.
	ListBatches(ctx context.Context, filter batch.ListFilter) ([]batch.Summary, error)
}

// ProviderService defines the pass-through operations against the upstream
// provider. Every call accepts request-level credentials that override the
// configured defaults field by field.
type ProviderService interface {
	// VerifyCredentials checks that the resolved credentials are complete and
	// name a known environment, without calling the provider
	VerifyCredentials(creds provider.Credentials) (provider.Credentials, error)

	// CreateLinkToken creates a short-lived token for the bank-linking widget
	CreateLinkToken(ctx context.Context, userID string, countryCodes []string, creds provider.Credentials) (*provider.LinkToken, error)

	// ExchangePublicToken trades the widget's public token for a permanent access token
	ExchangePublicToken(ctx context.Context, publicToken string, creds provider.Credentials) (accessToken, itemID string, err error)

	// GetAccounts lists the accounts reachable through the access token
	GetAccounts(ctx context.Context, accessToken string, creds provider.Credentials) ([]transaction.Document, error)

	// FetchTransactions fetches raw transactions for the date range without ingesting them
	FetchTransactions(ctx context.Context, accessToken string, startDate, endDate time.Time, creds provider.Credentials) ([]provider.RawTransaction, error)
}
