package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/secondbrain/plaid-proxy/internal/domain/batch"
	"github.com/secondbrain/plaid-proxy/internal/domain/transaction"
	"github.com/secondbrain/plaid-proxy/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) CreateBatch(ctx context.Context, accessToken string, startDate, endDate time.Time, creds provider.Credentials) (*batch.Batch, error) {
	args := m.Called(ctx, accessToken, startDate, endDate, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockBatchService) MarkProcessed(ctx context.Context, batchID string, ids []string) (*batch.Batch, int, error) {
	args := m.Called(ctx, batchID, ids)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*batch.Batch), args.Int(1), args.Error(2)
}

func (m *MockBatchService) GetBatch(ctx context.Context, batchID string) (*batch.Batch, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockBatchService) ListTransactions(ctx context.Context, batchID string, filter transaction.ListFilter) ([]*transaction.Record, transaction.ListFilter, error) {
	args := m.Called(ctx, batchID, filter)
	if args.Get(0) == nil {
		return nil, transaction.ListFilter{}, args.Error(2)
	}
	return args.Get(0).([]*transaction.Record), args.Get(1).(transaction.ListFilter), args.Error(2)
}

func (m *MockBatchService) ListBatches(ctx context.Context, filter batch.ListFilter) ([]batch.Summary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]batch.Summary), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var topLevel Response
	require.NoError(t, json.Unmarshal(body, &topLevel))
	require.NotNil(t, topLevel.Data)

	dataBytes, err := json.Marshal(topLevel.Data)
	require.NoError(t, err)

	var out T
	require.NoError(t, json.Unmarshal(dataBytes, &out))
	return out
}

func sampleBatch() *batch.Batch {
	return &batch.Batch{
		ID:                    "batch_20240101120000_abcd1234",
		Status:                batch.StatusPending,
		TotalTransactions:     10,
		ProcessedTransactions: 4,
		StartDate:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		CreatedAt:             time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
	}
}

func TestBatchHandler_Create(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		expected := sampleBatch()
		expected.ProcessedTransactions = 0

		mockService.On("CreateBatch", mock.Anything, "access-token",
			expected.StartDate, expected.EndDate, provider.Credentials{}).Return(expected, nil)

		router := setupTestRouter()
		router.POST("/batches", handler.Create)

		reqBody := CreateBatchRequest{
			AccessToken: "access-token",
			StartDate:   "2024-01-01",
			EndDate:     "2024-01-31",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/batches", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		body := decodeData[CreateBatchResponse](t, rr.Body.Bytes())
		assert.Equal(t, expected.ID, body.ID)
		assert.Equal(t, "pending", body.Status)
		assert.Equal(t, 10, body.TotalTransactions)
		assert.Equal(t, 0, body.ProcessedTransactions)
		assert.Equal(t, "2024-01-01", body.StartDate)
		assert.Equal(t, "2024-01-31", body.EndDate)
		assert.Equal(t, "Batch created with 10 new transactions", body.Message)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingAccessToken", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/batches", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/batches", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MalformedDate", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/batches", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/batches",
			bytes.NewBufferString(`{"access_token":"tok","start_date":"01/01/2024"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "YYYY-MM-DD")
	})

	t.Run("ProviderError", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		providerErr := &provider.Error{ErrorType: "ITEM_ERROR", ErrorCode: "ITEM_LOGIN_REQUIRED", Message: "login required"}

		mockService.On("CreateBatch", mock.Anything, "access-token", mock.Anything, mock.Anything, provider.Credentials{}).
			Return(nil, providerErr)

		router := setupTestRouter()
		router.POST("/batches", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/batches",
			bytes.NewBufferString(`{"access_token":"access-token"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "PROVIDER_ERROR")
		assert.Contains(t, rr.Body.String(), "ITEM_LOGIN_REQUIRED")
	})
}

func TestBatchHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		expected := sampleBatch()

		mockService.On("GetBatch", mock.Anything, expected.ID).Return(expected, nil)

		router := setupTestRouter()
		router.GET("/batches/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/batches/"+expected.ID, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		body := decodeData[BatchResponse](t, rr.Body.Bytes())
		assert.Equal(t, expected.ID, body.ID)
		assert.Equal(t, 4, body.ProcessedTransactions)
		assert.InDelta(t, 40.0, body.ProgressPercentage, 0.001)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		mockService.On("GetBatch", mock.Anything, "missing").
			Return(nil, batch.ErrBatchNotFound{BatchID: "missing"})

		router := setupTestRouter()
		router.GET("/batches/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/batches/missing", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "NOT_FOUND")
	})

	t.Run("StorageError", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		mockService.On("GetBatch", mock.Anything, "b1").Return(nil, errors.New("database error"))

		router := setupTestRouter()
		router.GET("/batches/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/batches/b1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestBatchHandler_List(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		b := sampleBatch()

		mockService.On("ListBatches", mock.Anything, batch.ListFilter{}).
			Return([]batch.Summary{b.Summarize()}, nil)

		router := setupTestRouter()
		router.GET("/batches", handler.List)

		req, _ := http.NewRequest(http.MethodGet, "/batches", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		body := decodeData[BatchListResponse](t, rr.Body.Bytes())
		require.Len(t, body.Batches, 1)
		assert.Equal(t, b.ID, body.Batches[0].ID)
	})

	t.Run("StatusFilter", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		status := batch.StatusCompleted

		mockService.On("ListBatches", mock.Anything, batch.ListFilter{Status: &status, Limit: 5}).
			Return([]batch.Summary{}, nil)

		router := setupTestRouter()
		router.GET("/batches", handler.List)

		req, _ := http.NewRequest(http.MethodGet, "/batches?status=completed&limit=5", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/batches", handler.List)

		req, _ := http.NewRequest(http.MethodGet, "/batches?status=processing", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid batch status")
		mockService.AssertNotCalled(t, "ListBatches", mock.Anything, mock.Anything)
	})
}

func TestBatchHandler_ListTransactions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		batchID := "batch_20240101120000_abcd1234"
		records := []*transaction.Record{
			{
				ID:        "tx-1",
				BatchID:   batchID,
				Data:      transaction.Document{"amount": 42.5},
				Processed: true,
				CreatedAt: time.Now().UTC(),
			},
		}

		mockService.On("ListTransactions", mock.Anything, batchID,
			transaction.ListFilter{Limit: 10, Offset: 5}).
			Return(records, transaction.ListFilter{Limit: 10, Offset: 5}, nil)

		router := setupTestRouter()
		router.GET("/batches/:id/transactions", handler.ListTransactions)

		req, _ := http.NewRequest(http.MethodGet, "/batches/"+batchID+"/transactions?limit=10&offset=5", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		body := decodeData[TransactionListResponse](t, rr.Body.Bytes())
		assert.Equal(t, batchID, body.BatchID)
		require.Len(t, body.Transactions, 1)
		assert.Equal(t, "tx-1", body.Transactions[0].ID)
		assert.True(t, body.Transactions[0].Processed)
		assert.Equal(t, 42.5, body.Transactions[0].Data["amount"])

		var envelope Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
		require.NotNil(t, envelope.Meta)
		assert.Equal(t, 10, envelope.Meta.Limit)
		assert.Equal(t, 5, envelope.Meta.Offset)
	})

	t.Run("ProcessedFilter", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		processed := false

		mockService.On("ListTransactions", mock.Anything, "b1",
			transaction.ListFilter{Processed: &processed}).
			Return([]*transaction.Record{}, transaction.ListFilter{Limit: 50, Processed: &processed}, nil)

		router := setupTestRouter()
		router.GET("/batches/:id/transactions", handler.ListTransactions)

		req, _ := http.NewRequest(http.MethodGet, "/batches/b1/transactions?processed=false", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		// The echoed limit is the default the service fell back to, not the
		// empty value the request carried.
		var envelope Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
		require.NotNil(t, envelope.Meta)
		assert.Equal(t, 50, envelope.Meta.Limit)
		assert.Equal(t, 0, envelope.Meta.Offset)
		mockService.AssertExpectations(t)
	})

	t.Run("UnknownBatch", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		mockService.On("ListTransactions", mock.Anything, "missing", mock.Anything).
			Return(nil, transaction.ListFilter{}, batch.ErrBatchNotFound{BatchID: "missing"})

		router := setupTestRouter()
		router.GET("/batches/:id/transactions", handler.ListTransactions)

		req, _ := http.NewRequest(http.MethodGet, "/batches/missing/transactions", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestBatchHandler_MarkProcessed(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		expected := sampleBatch()
		expected.Status = batch.StatusCompleted
		expected.ProcessedTransactions = 10
		ids := []string{"tx-1", "tx-2"}

		mockService.On("MarkProcessed", mock.Anything, expected.ID, ids).Return(expected, 2, nil)

		router := setupTestRouter()
		router.POST("/batches/:id/processed", handler.MarkProcessed)

		jsonBody, _ := json.Marshal(MarkProcessedRequest{TransactionIDs: ids})
		req, _ := http.NewRequest(http.MethodPost, "/batches/"+expected.ID+"/processed", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		body := decodeData[MarkProcessedResponse](t, rr.Body.Bytes())
		assert.Equal(t, "completed", body.Status)
		assert.Equal(t, 10, body.ProcessedTransactions)
		assert.Equal(t, 2, body.MarkedCount)
		assert.InDelta(t, 100.0, body.ProgressPercentage, 0.001)
	})

	t.Run("RemarkingReportsZeroMarked", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		expected := sampleBatch()
		ids := []string{"tx-1"}

		mockService.On("MarkProcessed", mock.Anything, expected.ID, ids).Return(expected, 0, nil)

		router := setupTestRouter()
		router.POST("/batches/:id/processed", handler.MarkProcessed)

		jsonBody, _ := json.Marshal(MarkProcessedRequest{TransactionIDs: ids})
		req, _ := http.NewRequest(http.MethodPost, "/batches/"+expected.ID+"/processed", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"marked_count":0`)
	})

	t.Run("MissingBody", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/batches/:id/processed", handler.MarkProcessed)

		req, _ := http.NewRequest(http.MethodPost, "/batches/b1/processed", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownIDsInStrictMode", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)
		ids := []string{"tx-1", "rogue"}

		mockService.On("MarkProcessed", mock.Anything, "b1", ids).
			Return(nil, 0, batch.ErrUnknownTransactionIDs{BatchID: "b1", IDs: []string{"rogue"}})

		router := setupTestRouter()
		router.POST("/batches/:id/processed", handler.MarkProcessed)

		jsonBody, _ := json.Marshal(MarkProcessedRequest{TransactionIDs: ids})
		req, _ := http.NewRequest(http.MethodPost, "/batches/b1/processed", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "rogue")
	})
}
