package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crm-pipeline-api/internal/dto"
)

// MockStageService is a mock implementation of StageService
type MockStageService struct {
	ListStagesFunc    func(ctx context.Context) ([]dto.StageResponse, error)
	CreateStageFunc   func(ctx context.Context, req *dto.CreateStageRequest) (*dto.StageResponse, error)
	UpdateStageFunc   func(ctx context.Context, stageID uuid.UUID, req *dto.UpdateStageRequest) (*dto.StageResponse, error)
	DeleteStageFunc   func(ctx context.Context, stageID uuid.UUID, reassignTo *uuid.UUID) (*dto.DeleteStageResponse, error)
	ReorderStagesFunc func(ctx context.Context, req *dto.ReorderStagesRequest) ([]dto.StageResponse, error)
}

func (m *MockStageService) ListStages(ctx context.Context) ([]dto.StageResponse, error) {
	if m.ListStagesFunc != nil {
		return m.ListStagesFunc(ctx)
	}
	return []dto.StageResponse{}, nil
}

func (m *MockStageService) CreateStage(ctx context.Context, req *dto.CreateStageRequest) (*dto.StageResponse, error) {
	if m.CreateStageFunc != nil {
		return m.CreateStageFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockStageService) UpdateStage(ctx context.Context, stageID uuid.UUID, req *dto.UpdateStageRequest) (*dto.StageResponse, error) {
	if m.UpdateStageFunc != nil {
		return m.UpdateStageFunc(ctx, stageID, req)
	}
	return nil, nil
}

func (m *MockStageService) DeleteStage(ctx context.Context, stageID uuid.UUID, reassignTo *uuid.UUID) (*dto.DeleteStageResponse, error) {
	if m.DeleteStageFunc != nil {
		return m.DeleteStageFunc(ctx, stageID, reassignTo)
	}
	return &dto.DeleteStageResponse{StageID: stageID}, nil
}

func (m *MockStageService) ReorderStages(ctx context.Context, req *dto.ReorderStagesRequest) ([]dto.StageResponse, error) {
	if m.ReorderStagesFunc != nil {
		return m.ReorderStagesFunc(ctx, req)
	}
	return []dto.StageResponse{}, nil
}

// MockCustomerService is a mock implementation of CustomerService
type MockCustomerService struct {
	ListCustomersFunc  func(ctx context.Context, filters *dto.BoardFilters) ([]dto.CustomerResponse, error)
	GetCustomerFunc    func(ctx context.Context, customerID uuid.UUID) (*dto.CustomerResponse, error)
	CreateCustomerFunc func(ctx context.Context, req *dto.CreateCustomerRequest) (*dto.CustomerResponse, error)
	UpdateCustomerFunc func(ctx context.Context, customerID uuid.UUID, req *dto.UpdateCustomerRequest) (*dto.CustomerResponse, error)
	MoveCustomerFunc   func(ctx context.Context, customerID uuid.UUID, req *dto.MoveCustomerRequest) (*dto.MoveCustomerResponse, error)
	DeleteCustomerFunc func(ctx context.Context, customerID uuid.UUID, confirmed bool) error
}

func (m *MockCustomerService) ListCustomers(ctx context.Context, filters *dto.BoardFilters) ([]dto.CustomerResponse, error) {
	if m.ListCustomersFunc != nil {
		return m.ListCustomersFunc(ctx, filters)
	}
	return []dto.CustomerResponse{}, nil
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID uuid.UUID) (*dto.CustomerResponse, error) {
	if m.GetCustomerFunc != nil {
		return m.GetCustomerFunc(ctx, customerID)
	}
	return nil, nil
}

func (m *MockCustomerService) CreateCustomer(ctx context.Context, req *dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockCustomerService) UpdateCustomer(ctx context.Context, customerID uuid.UUID, req *dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	if m.UpdateCustomerFunc != nil {
		return m.UpdateCustomerFunc(ctx, customerID, req)
	}
	return nil, nil
}

func (m *MockCustomerService) MoveCustomer(ctx context.Context, customerID uuid.UUID, req *dto.MoveCustomerRequest) (*dto.MoveCustomerResponse, error) {
	if m.MoveCustomerFunc != nil {
		return m.MoveCustomerFunc(ctx, customerID, req)
	}
	return nil, nil
}

func (m *MockCustomerService) DeleteCustomer(ctx context.Context, customerID uuid.UUID, confirmed bool) error {
	if m.DeleteCustomerFunc != nil {
		return m.DeleteCustomerFunc(ctx, customerID, confirmed)
	}
	return nil
}

// MockBoardService is a mock implementation of BoardService
type MockBoardService struct {
	GetBoardFunc    func(ctx context.Context, filters *dto.BoardFilters) (*dto.BoardResponse, error)
	ReloadBoardFunc func(ctx context.Context) (*dto.BoardResponse, error)
}

func (m *MockBoardService) GetBoard(ctx context.Context, filters *dto.BoardFilters) (*dto.BoardResponse, error) {
	if m.GetBoardFunc != nil {
		return m.GetBoardFunc(ctx, filters)
	}
	return &dto.BoardResponse{}, nil
}

func (m *MockBoardService) ReloadBoard(ctx context.Context) (*dto.BoardResponse, error) {
	if m.ReloadBoardFunc != nil {
		return m.ReloadBoardFunc(ctx)
	}
	return &dto.BoardResponse{}, nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	ExportBoardFunc func(ctx context.Context) (*dto.ExportResponse, error)
	ListExportsFunc func(ctx context.Context, limit int) ([]dto.ExportRecordResponse, error)
}

func (m *MockExportService) ExportBoard(ctx context.Context) (*dto.ExportResponse, error) {
	if m.ExportBoardFunc != nil {
		return m.ExportBoardFunc(ctx)
	}
	return &dto.ExportResponse{}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

// serve runs one request through a router where register has mounted the handler
func serve(register func(r *gin.Engine), method, path string, body interface{}) *httptest.ResponseRecorder {
	r := gin.New()
	register(r)

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, w)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected error object, got %s", w.Body.String())
	}
	return errObj["code"].(string)
}

// decodeData unmarshals the data field of a success envelope into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("Expected success response, got %s", w.Body.String())
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		t.Fatalf("Failed to unmarshal data: %v", err)
	}
}


func (m *MockExportService) ListExports(ctx context.Context, limit int) ([]dto.ExportRecordResponse, error) {
	if m.ListExportsFunc != nil {
		return m.ListExportsFunc(ctx, limit)
	}
	return []dto.ExportRecordResponse{}, nil
}
