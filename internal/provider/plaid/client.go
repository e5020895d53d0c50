// Package plaid adapts the Plaid API to the provider interfaces.
package plaid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
	"github.com/secondbrain/plaid-proxy/internal/provider"
)

const (
	// Plaid's maximum transactions page size
	fetchPageSize = int32(500)

	dateLayout = "2006-01-02"
)

// Factory builds per-request Plaid clients. Callers may carry their own
// credentials, so a client is constructed for each resolved credential set.
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a Plaid client factory
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{logger: logger.With("component", "plaid")}
}

// NewClient validates the credentials and builds a configured API client
func (f *Factory) NewClient(creds provider.Credentials) (provider.Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", creds.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", creds.Secret)

	switch creds.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		api:    plaid.NewAPIClient(configuration),
		logger: f.logger,
	}, nil
}

// Client implements provider.Client against the Plaid API
type Client struct {
	api    *plaid.APIClient
	logger *slog.Logger
}

// FetchTransactions retrieves all transactions in the date range, following
// Plaid's offset pagination until the full set is collected.
func (c *Client) FetchTransactions(ctx context.Context, accessToken string, startDate, endDate time.Time) ([]provider.RawTransaction, error) {
	c.logger.Info("Fetching transactions from Plaid",
		"start_date", startDate.Format(dateLayout),
		"end_date", endDate.Format(dateLayout),
	)

	var all []plaid.Transaction
	offset := int32(0)

	for {
		request := plaid.NewTransactionsGetRequest(
			accessToken,
			startDate.Format(dateLayout),
			endDate.Format(dateLayout),
		)
		options := plaid.TransactionsGetRequestOptions{
			Count:  plaid.PtrInt32(fetchPageSize),
			Offset: plaid.PtrInt32(offset),
		}
		request.SetOptions(options)

		resp, _, err := c.api.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
		if err != nil {
			return nil, wrapError(err, "failed to fetch transactions")
		}

		page := resp.GetTransactions()
		all = append(all, page...)

		c.logger.Debug("Fetched transaction page",
			"count", len(page),
			"offset", offset,
			"total", resp.GetTotalTransactions(),
		)

		if len(page) < int(fetchPageSize) {
			break
		}
		offset += fetchPageSize
	}

	c.logger.Info("Fetched all transactions", "count", len(all))

	records := make([]provider.RawTransaction, 0, len(all))
	for _, pt := range all {
		doc, err := toDocument(pt)
		if err != nil {
			// A single malformed record is skipped, never fatal to the fetch
			c.logger.Warn("Skipping unconvertible transaction record",
				"transaction_id", pt.GetTransactionId(),
				"error", err,
			)
			continue
		}
		records = append(records, provider.RawTransaction{
			ID:   pt.GetTransactionId(),
			Data: doc,
		})
	}

	return records, nil
}

// GetAccounts retrieves the linked accounts as opaque documents
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]transaction.Document, error) {
	request := plaid.NewAccountsGetRequest(accessToken)
	resp, _, err := c.api.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
	if err != nil {
		return nil, wrapError(err, "failed to fetch accounts")
	}

	accounts := resp.GetAccounts()
	docs := make([]transaction.Document, 0, len(accounts))
	for _, acc := range accounts {
		doc, err := toDocument(acc)
		if err != nil {
			c.logger.Warn("Skipping unconvertible account record",
				"account_id", acc.GetAccountId(),
				"error", err,
			)
			continue
		}
		docs = append(docs, doc)
	}

	c.logger.Info("Fetched accounts", "count", len(docs))
	return docs, nil
}

// CreateLinkToken creates a Link token for the bank-linking widget
func (c *Client) CreateLinkToken(ctx context.Context, userID string, countryCodes []string) (*provider.LinkToken, error) {
	if len(countryCodes) == 0 {
		countryCodes = []string{"US"}
	}

	codes := make([]plaid.CountryCode, 0, len(countryCodes))
	for _, cc := range countryCodes {
		code, err := plaid.NewCountryCodeFromValue(cc)
		if err != nil {
			return nil, fmt.Errorf("invalid country code %q: %w", cc, err)
		}
		codes = append(codes, *code)
	}

	user := plaid.LinkTokenCreateRequestUser{
		ClientUserId: userID,
	}
	request := plaid.NewLinkTokenCreateRequest(
		"Second Brain Obsidian Plugin",
		"en",
		codes,
		user,
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	resp, _, err := c.api.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return nil, wrapError(err, "failed to create link token")
	}

	return &provider.LinkToken{
		Token:      resp.GetLinkToken(),
		Expiration: resp.GetExpiration(),
	}, nil
}

// ExchangePublicToken exchanges a public token from Link for an access token
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	request := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := c.api.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
	if err != nil {
		return "", "", wrapError(err, "failed to exchange public token")
	}

	return resp.GetAccessToken(), resp.GetItemId(), nil
}

// toDocument converts an SDK model into its opaque structured-document form,
// preserving provider field names and types through the model's JSON encoding.
func toDocument(v any) (transaction.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider record: %w", err)
	}
	var doc transaction.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode provider record: %w", err)
	}
	return doc, nil
}

// wrapError converts SDK failures into provider errors, extracting Plaid's own
// error taxonomy when the response carries one
func wrapError(err error, fallback string) error {
	if plaidErr, convErr := plaid.ToPlaidError(err); convErr == nil {
		return &provider.Error{
			ErrorType: fmt.Sprintf("%v", plaidErr.ErrorType),
			ErrorCode: plaidErr.ErrorCode,
			Message:   plaidErr.ErrorMessage,
		}
	}
	return &provider.Error{Message: fmt.Sprintf("%s: %v", fallback, err)}
}

// Ensure Client implements the provider surface
var _ provider.Client = (*Client)(nil)
