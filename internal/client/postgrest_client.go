package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"crm-pipeline-api/internal/metrics"
)

// APIError is a non-2xx response from the PostgREST endpoint
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest: status %d code %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest: status %d: %s", e.StatusCode, e.Message)
}

// IsConstraintViolation reports whether the response describes a rejected write
// (unique, foreign key or check violation) rather than an outage.
func (e *APIError) IsConstraintViolation() bool {
	if e.StatusCode == http.StatusConflict {
		return true
	}
	return e.StatusCode == http.StatusBadRequest && strings.HasPrefix(e.Code, "23")
}

// PostgRESTClient talks to a PostgREST (Supabase REST) endpoint
type PostgRESTClient interface {
	// Select fetches rows from a table; query holds PostgREST filters such as order=position.asc
	Select(ctx context.Context, table string, query url.Values, out interface{}) error
	// Insert creates a row and decodes the stored representation into out
	Insert(ctx context.Context, table string, row interface{}, out interface{}) error
	// UpdateByID patches a row by id and decodes the affected rows into out
	UpdateByID(ctx context.Context, table, id string, patch interface{}, out interface{}) error
	// DeleteByID deletes a row by id and decodes the deleted rows into out
	DeleteByID(ctx context.Context, table, id string, out interface{}) error
}

type postgrestClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewPostgRESTClient creates a new PostgREST client
func NewPostgRESTClient(baseURL string, apiKey string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) PostgRESTClient {
	return &postgrestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: m,
	}
}

func (c *postgrestClient) Select(ctx context.Context, table string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("select") == "" {
		query.Set("select", "*")
	}
	return c.do(ctx, http.MethodGet, table, query, nil, out)
}

func (c *postgrestClient) Insert(ctx context.Context, table string, row interface{}, out interface{}) error {
	return c.do(ctx, http.MethodPost, table, nil, row, out)
}

func (c *postgrestClient) UpdateByID(ctx context.Context, table, id string, patch interface{}, out interface{}) error {
	query := url.Values{}
	query.Set("id", "eq."+id)
	return c.do(ctx, http.MethodPatch, table, query, patch, out)
}

func (c *postgrestClient) DeleteByID(ctx context.Context, table, id string, out interface{}) error {
	query := url.Values{}
	query.Set("id", "eq."+id)
	return c.do(ctx, http.MethodDelete, table, query, nil, out)
}

func (c *postgrestClient) do(ctx context.Context, method, table string, query url.Values, body interface{}, out interface{}) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", table, err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if c.metrics != nil {
		c.metrics.RecordExternalAPICall(endpoint, method, statusCode, duration, err)
	}

	if err != nil {
		c.logger.Warn("PostgREST request failed",
			zap.String("method", method),
			zap.String("table", table),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return fmt.Errorf("postgrest %s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", table, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(payload, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(payload))
		}
		c.logger.Warn("PostgREST returned non-success status",
			zap.String("method", method),
			zap.String("table", table),
			zap.Int("status_code", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", table, err)
	}
	return nil
}

// AsAPIError unwraps an *APIError from err
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
