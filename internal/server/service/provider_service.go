package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/secondbrain/plaid-proxy/internal/config"
	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
	"github.com/secondbrain/plaid-proxy/internal/provider"
)

// ProviderServiceImpl implements the ProviderService interface
type ProviderServiceImpl struct {
	logger   *slog.Logger
	factory  provider.Factory
	defaults provider.Credentials
}

// NewProviderService creates a new provider pass-through service
func NewProviderService(logger *slog.Logger, cfg *config.Config, factory provider.Factory) ProviderService {
	return &ProviderServiceImpl{
		logger:  logger,
		factory: factory,
		defaults: provider.Credentials{
			ClientID:    cfg.Plaid.ClientID,
			Secret:      cfg.Plaid.Secret,
			Environment: cfg.Plaid.Environment,
		},
	}
}

// resolveClient merges request credentials over the configured defaults and
// builds a client for the result
func resolveClient(factory provider.Factory, defaults, creds provider.Credentials) (provider.Client, error) {
	resolved := creds.Merge(defaults)
	if err := resolved.Validate(); err != nil {
		return nil, err
	}
	return factory.NewClient(resolved)
}

// VerifyCredentials resolves and validates credentials without calling the provider
func (s *ProviderServiceImpl) VerifyCredentials(creds provider.Credentials) (provider.Credentials, error) {
	resolved := creds.Merge(s.defaults)
	if err := resolved.Validate(); err != nil {
		return provider.Credentials{}, err
	}
	return resolved, nil
}

// CreateLinkToken creates a short-lived token for the bank-linking widget
func (s *ProviderServiceImpl) CreateLinkToken(ctx context.Context, userID string, countryCodes []string, creds provider.Credentials) (*provider.LinkToken, error) {
	client, err := resolveClient(s.factory, s.defaults, creds)
	if err != nil {
		return nil, err
	}
	return client.CreateLinkToken(ctx, userID, countryCodes)
}

// ExchangePublicToken trades the widget's public token for a permanent access token
func (s *ProviderServiceImpl) ExchangePublicToken(ctx context.Context, publicToken string, creds provider.Credentials) (string, string, error) {
	client, err := resolveClient(s.factory, s.defaults, creds)
	if err != nil {
		return "", "", err
	}
	return client.ExchangePublicToken(ctx, publicToken)
}

// GetAccounts lists the accounts reachable through the access token
func (s *ProviderServiceImpl) GetAccounts(ctx context.Context, accessToken string, creds provider.Credentials) ([]transaction.Document, error) {
	client, err := resolveClient(s.factory, s.defaults, creds)
	if err != nil {
		return nil, err
	}
	return client.GetAccounts(ctx, accessToken)
}

// FetchTransactions fetches raw transactions without ingesting them
func (s *ProviderServiceImpl) FetchTransactions(ctx context.Context, accessToken string, startDate, endDate time.Time, creds provider.Credentials) ([]provider.RawTransaction, error) {
	client, err := resolveClient(s.factory, s.defaults, creds)
	if err != nil {
		return nil, err
	}

	raw, err := client.FetchTransactions(ctx, accessToken, startDate, endDate)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Fetched transactions",
		"count", len(raw),
		"start_date", startDate.Format("2006-01-02"),
		"end_date", endDate.Format("2006-01-02"),
	)
	return raw, nil
}
