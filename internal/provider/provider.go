// Package provider defines the boundary with the upstream financial-data
// aggregation API. The rest of the system consumes it as an opaque
// fetch-transactions capability: every raw record exposes a stable unique
// identifier, all other fields pass through untouched.
package provider

import (
	"context"
	"time"

	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
)

// RawTransaction is a provider record as fetched: its stable identifier plus
// the full payload in structured-document form
type RawTransaction struct {
	ID   string
	Data transaction.Document
}

// LinkToken is a short-lived token used to initialize the bank-linking widget
type LinkToken struct {
	Token      string
	Expiration time.Time
}

// TransactionFetcher is the capability the batch ingestor depends on. A single
// call covers the full date range; retry and timeout policy live behind this
// interface, not in the caller.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, accessToken string, startDate, endDate time.Time) ([]RawTransaction, error)
}

// Client is the full provider surface used by the pass-through endpoints
type Client interface {
	TransactionFetcher

	GetAccounts(ctx context.Context, accessToken string) ([]transaction.Document, error)
	CreateLinkToken(ctx context.Context, userID string, countryCodes []string) (*LinkToken, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error)
}

// Factory builds a Client for a set of resolved credentials. Clients are
// constructed per request because callers may supply their own credentials.
type Factory interface {
	NewClient(creds Credentials) (Client, error)
}
