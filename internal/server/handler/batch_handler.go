package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/secondbrain/plaid-proxy/internal/domain/batch"
	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
	"github.com/secondbrain/plaid-proxy/internal/provider"
	"github.com/secondbrain/plaid-proxy/internal/server/service"
)

// BatchHandler handles HTTP requests for batch ingestion and tracking
type BatchHandler struct {
	batchService service.BatchService
	logger       *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(logger *slog.Logger, batchService service.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		logger:       logger,
	}
}

// Create fetches the requested date range from the provider and ingests it as
// a new batch
func (h *BatchHandler) Create(c *gin.Context) {
	var req CreateBatchRequest
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

	b, err := h.batchService.CreateBatch(c.Request.Context(), req.AccessToken, start, end, req.toCredentials())
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondCreated(c, CreateBatchResponse{
		BatchResponse: mapBatchToResponse(b),
		Message:       fmt.Sprintf("Batch created with %d new transactions", b.TotalTransactions),
	})
}

// GetByID retrieves a batch's processing status, returns 404 if not found
func (h *BatchHandler) GetByID(c *gin.Context) {
	b, err := h.batchService.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, mapBatchToResponse(b))
}

// List retrieves batch summaries, most recent first, optionally filtered by status
func (h *BatchHandler) List(c *gin.Context) {
	var params ListBatchesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	filter := batch.ListFilter{Limit: params.Limit}
	if params.Status != "" {
		status, err := batch.ParseStatus(params.Status)
		if err != nil {
			h.respondError(c, err)
			return
		}
		filter.Status = &status
	}

	summaries, err := h.batchService.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	batches := make([]BatchResponse, 0, len(summaries))
	for i := range summaries {
		batches = append(batches, mapBatchToResponse(&summaries[i].Batch))
	}

	RespondOK(c, BatchListResponse{Batches: batches})
}

// ListTransactions retrieves a page of a batch's ingested transactions
func (h *BatchHandler) ListTransactions(c *gin.Context) {
	batchID := c.Param("id")

	var params ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid query parameters", "batch_id", batchID, "error", err)
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	records, applied, err := h.batchService.ListTransactions(c.Request.Context(), batchID, transaction.ListFilter{
		Limit:     params.Limit,
		Offset:    params.Offset,
		Processed: params.Processed,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	transactions := make([]TransactionRecordResponse, 0, len(records))
	for _, rec := range records {
		transactions = append(transactions, mapRecordToResponse(rec))
	}

	RespondWithPaginatedData(c, http.StatusOK, TransactionListResponse{BatchID: batchID, Transactions: transactions}, applied.Limit, applied.Offset)
}

// MarkProcessed flags the named transactions as processed and returns the
// batch's refreshed status together with the count of newly marked transactions
func (h *BatchHandler) MarkProcessed(c *gin.Context) {
	batchID := c.Param("id")

	var req MarkProcessedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "batch_id", batchID, "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	b, marked, err := h.batchService.MarkProcessed(c.Request.Context(), batchID, req.TransactionIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, MarkProcessedResponse{
		BatchResponse: mapBatchToResponse(b),
		MarkedCount:   marked,
	})
}

// respondError maps service errors onto HTTP statuses
func (h *BatchHandler) respondError(c *gin.Context, err error) {
	var notFound batch.ErrBatchNotFound
	var invalidStatus batch.ErrInvalidStatus
	var unknownIDs batch.ErrUnknownTransactionIDs
	var providerErr *provider.Error

	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, notFound.Error())
	case errors.As(err, &invalidStatus):
		RespondBadRequest(c, invalidStatus.Error())
	case errors.As(err, &unknownIDs):
		RespondBadRequest(c, unknownIDs.Error())
	case errors.Is(err, batch.ErrInvalidDateRange),
		errors.Is(err, batch.ErrEmptyAccessToken),
		errors.Is(err, provider.ErrMissingCredentials),
		errors.Is(err, provider.ErrInvalidEnvironment):
		RespondBadRequest(c, err.Error())
	case errors.As(err, &providerErr):
		RespondWithError(c, http.StatusBadRequest, "PROVIDER_ERROR", providerErr.Error())
	default:
		h.logger.Error("Unhandled service error", "error", err)
		RespondInternalError(c)
	}
}
