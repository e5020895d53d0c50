package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/secondbrain/plaid-proxy/internal/provider"
	"github.com/secondbrain/plaid-proxy/internal/server/service"
)

// PlaidHandler handles the pass-through endpoints against the upstream provider
type PlaidHandler struct {
	providerService service.ProviderService
	logger          *slog.Logger
}

// NewPlaidHandler creates a new provider pass-through handler
func NewPlaidHandler(logger *slog.Logger, providerService service.ProviderService) *PlaidHandler {
	return &PlaidHandler{
		providerService: providerService,
		logger:          logger,
	}
}

// CreateLinkToken creates a short-lived token for the bank-linking widget
func (h *PlaidHandler) CreateLinkToken(c *gin.Context) {
	// An empty body is accepted; every field has a default.
	var req CreateLinkTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	if req.UserID == "" {
		req.UserID = "obsidian-user"
	}

	token, err := h.providerService.CreateLinkToken(c.Request.Context(), req.UserID, req.CountryCodes, req.toCredentials())
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := LinkTokenResponse{LinkToken: token.Token}
	if !token.Expiration.IsZero() {
		response.Expiration = token.Expiration.Format(time.RFC3339)
	}
	RespondOK(c, response)
}

// ExchangeToken trades the widget's public token for a permanent access token
func (h *PlaidHandler) ExchangeToken(c *gin.Context) {
	var req ExchangeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accessToken, itemID, err := h.providerService.ExchangePublicToken(c.Request.Context(), req.PublicToken, req.toCredentials())
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, ExchangeTokenResponse{AccessToken: accessToken, ItemID: itemID})
}

// GetAccounts lists the accounts reachable through the access token
func (h *PlaidHandler) GetAccounts(c *gin.Context) {
	var req AccountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accounts, err := h.providerService.GetAccounts(c.Request.Context(), req.AccessToken, req.toCredentials())
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, gin.H{"accounts": accounts})
}

// GetTransactions fetches raw transactions for the date range without ingesting them
func (h *PlaidHandler) GetTransactions(c *gin.Context) {
	var req TransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.logger.Error("Invalid date range", "start_date", req.StartDate, "end_date", req.EndDate, "error", err)
		RespondBadRequest(c, "Dates must use the YYYY-MM-DD format")
		return
	}

	raw, err := h.providerService.FetchTransactions(c.Request.Context(), req.AccessToken, start, end, req.toCredentials())
	if err != nil {
		h.respondError(c, err)
		return
	}

	transactions := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		transactions = append(transactions, r.Data)
	}

	RespondOK(c, gin.H{
		"transactions": transactions,
		"count":        len(transactions),
		"start_date":   start.Format(dateLayout),
		"end_date":     end.Format(dateLayout),
	})
}

// TestConnection reports whether usable provider credentials are configured,
// without calling the provider
func (h *PlaidHandler) TestConnection(c *gin.Context) {
	resolved, err := h.providerService.VerifyCredentials(provider.Credentials{})
	if err != nil {
		RespondWithError(c, http.StatusServiceUnavailable, "PROVIDER_NOT_CONFIGURED", err.Error())
		return
	}

	RespondOK(c, gin.H{
		"configured":  true,
		"environment": resolved.Environment,
	})
}

// LinkPage serves the self-contained bank-linking page
func (h *PlaidHandler) LinkPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(linkPageHTML))
}

// respondError maps provider errors onto HTTP statuses
func (h *PlaidHandler) respondError(c *gin.Context, err error) {
	var providerErr *provider.Error

	switch {
	case errors.Is(err, provider.ErrMissingCredentials),
		errors.Is(err, provider.ErrInvalidEnvironment):
		RespondBadRequest(c, err.Error())
	case errors.As(err, &providerErr):
		RespondWithError(c, http.StatusBadRequest, "PROVIDER_ERROR", providerErr.Error())
	default:
		h.logger.Error("Unhandled provider error", "error", err)
		RespondInternalError(c)
	}
}
