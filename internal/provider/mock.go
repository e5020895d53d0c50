package provider

import (
	"context"
	"time"

	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
)

// MockClient is a test double for the provider Client. Behavior is controlled
// through the Fn fields; calls are recorded for assertions.
type MockClient struct {
	FetchTransactionsFn   func(ctx context.Context, accessToken string, startDate, endDate time.Time) ([]RawTransaction, error)
	GetAccountsFn         func(ctx context.Context, accessToken string) ([]transaction.Document, error)
	CreateLinkTokenFn     func(ctx context.Context, userID string, countryCodes []string) (*LinkToken, error)
	ExchangePublicTokenFn func(ctx context.Context, publicToken string) (string, string, error)

	FetchTransactionsCalls []FetchTransactionsCall
}

// FetchTransactionsCall records the parameters of a FetchTransactions call
type FetchTransactionsCall struct {
	AccessToken string
	StartDate   time.Time
	EndDate     time.Time
}

// NewMockClient creates a mock provider client with empty default behavior
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) FetchTransactions(ctx context.Context, accessToken string, startDate, endDate time.Time) ([]RawTransaction, error) {
	m.FetchTransactionsCalls = append(m.FetchTransactionsCalls, FetchTransactionsCall{
		AccessToken: accessToken,
		StartDate:   startDate,
		EndDate:     endDate,
	})
	if m.FetchTransactionsFn != nil {
		return m.FetchTransactionsFn(ctx, accessToken, startDate, endDate)
	}
	return []RawTransaction{}, nil
}

func (m *MockClient) GetAccounts(ctx context.Context, accessToken string) ([]transaction.Document, error) {
	if m.GetAccountsFn != nil {
		return m.GetAccountsFn(ctx, accessToken)
	}
	return []transaction.Document{}, nil
}

func (m *MockClient) CreateLinkToken(ctx context.Context, userID string, countryCodes []string) (*LinkToken, error) {
	if m.CreateLinkTokenFn != nil {
		return m.CreateLinkTokenFn(ctx, userID, countryCodes)
	}
	return &LinkToken{Token: "link-sandbox-mock"}, nil
}

func (m *MockClient) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	if m.ExchangePublicTokenFn != nil {
		return m.ExchangePublicTokenFn(ctx, publicToken)
	}
	return "access-sandbox-mock", "item-mock", nil
}

// MockFactory hands out a fixed client and records the credentials it was
// asked to build with
type MockFactory struct {
	Client     Client
	Err        error
	CredsCalls []Credentials
}

func (f *MockFactory) NewClient(creds Credentials) (Client, error) {
	f.CredsCalls = append(f.CredsCalls, creds)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Client, nil
}

// Ensure mocks satisfy the interfaces
var (
	_ Client  = (*MockClient)(nil)
	_ Factory = (*MockFactory)(nil)
)
