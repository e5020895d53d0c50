package handler

import (
	"time"

	"github.com/secondbrain/plaid-proxy/internal/domain/batch"
	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
	"github.com/secondbrain/plaid-proxy/internal/provider"
)

// CredentialsPayload carries optional per-request provider credentials. Empty
// fields fall back to the server's configured defaults.
type CredentialsPayload struct {
	ClientID    string `json:"client_id,omitempty"`
	Secret      string `json:"secret,omitempty"`
	Environment string `json:"environment,omitempty"`
}

func (p CredentialsPayload) toCredentials() provider.Credentials {
	return provider.Credentials{
		ClientID:    p.ClientID,
		Secret:      p.Secret,
		Environment: p.Environment,
	}
}

// CreateLinkTokenRequest represents a request for a bank-linking widget token
type CreateLinkTokenRequest struct {
	UserID       string   `json:"user_id,omitempty"`
	CountryCodes []string `json:"country_codes,omitempty"`
	CredentialsPayload
}

// ExchangeTokenRequest represents a request to trade a public token for an access token
type ExchangeTokenRequest struct {
	PublicToken string `json:"public_token" binding:"required"`
	CredentialsPayload
}

// AccountsRequest represents a request to list accounts for an access token
type AccountsRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	CredentialsPayload
}

// TransactionsRequest represents a raw transaction fetch without ingestion.
// Dates use YYYY-MM-DD; when omitted the range defaults to the last 30 days.
type TransactionsRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	CredentialsPayload
}

// CreateBatchRequest represents a request to fetch and ingest a transaction batch
type CreateBatchRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	CredentialsPayload
}

// MarkProcessedRequest names the transactions to flag as processed
type MarkProcessedRequest struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required"`
}

// ListTransactionsParams represents pagination and filtering for a batch's transactions
type ListTransactionsParams struct {
	Limit     int   `form:"limit" binding:"omitempty,min=1"`
	Offset    int   `form:"offset" binding:"omitempty,min=0"`
	Processed *bool `form:"processed"`
}

// ListBatchesParams represents filtering for the batch listing
type ListBatchesParams struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
}

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID                    string  `json:"id"`
	Status                string  `json:"status"`
	TotalTransactions     int     `json:"total_transactions"`
	ProcessedTransactions int     `json:"processed_transactions"`
	ProgressPercentage    float64 `json:"progress_percentage"`
	StartDate             string  `json:"start_date"`
	EndDate               string  `json:"end_date"`
	ErrorMessage          string  `json:"error_message,omitempty"`
	CreatedAt             string  `json:"created_at"`
}

// TransactionRecordResponse represents an ingested transaction in API responses
type TransactionRecordResponse struct {
	ID        string               `json:"id"`
	BatchID   string               `json:"batch_id"`
	Data      transaction.Document `json:"data"`
	Processed bool                 `json:"processed"`
	CreatedAt string               `json:"created_at"`
}

// CreateBatchResponse represents a freshly ingested batch in API responses
type CreateBatchResponse struct {
	BatchResponse
	Message string `json:"message"`
}

// MarkProcessedResponse represents the batch state after a marking call,
// including how many transactions the call newly marked
type MarkProcessedResponse struct {
	BatchResponse
	MarkedCount int `json:"marked_count"`
}

// BatchListResponse represents the batch listing in API responses
type BatchListResponse struct {
	Batches []BatchResponse `json:"batches"`
}

// TransactionListResponse represents a page of a batch's transactions
type TransactionListResponse struct {
	BatchID      string                      `json:"batch_id"`
	Transactions []TransactionRecordResponse `json:"transactions"`
}

// LinkTokenResponse represents a created link token
type LinkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration,omitempty"`
}

// ExchangeTokenResponse represents an exchanged access token
type ExchangeTokenResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

const dateLayout = "2006-01-02"

func mapBatchToResponse(b *batch.Batch) BatchResponse {
	response := BatchResponse{
		ID:                    b.ID,
		Status:                string(b.Status),
		TotalTransactions:     b.TotalTransactions,
		ProcessedTransactions: b.ProcessedTransactions,
		ProgressPercentage:    b.ProgressPercentage(),
		StartDate:             b.StartDate.Format(dateLayout),
		EndDate:               b.EndDate.Format(dateLayout),
		CreatedAt:             b.CreatedAt.Format(time.RFC3339),
	}
	if b.ErrorMessage != nil {
		response.ErrorMessage = *b.ErrorMessage
	}
	return response
}

func mapRecordToResponse(rec *transaction.Record) TransactionRecordResponse {
	return TransactionRecordResponse{
		ID:        rec.ID,
		BatchID:   rec.BatchID,
		Data:      rec.Data,
		Processed: rec.Processed,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

// parseDateRange resolves the optional date strings, defaulting to the 30 days
// ending today
func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -30)

	var err error
	if endStr != "" {
		end, err = time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if startStr == "" {
			start = end.AddDate(0, 0, -30)
		}
	}
	if startStr != "" {
		start, err = time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}
