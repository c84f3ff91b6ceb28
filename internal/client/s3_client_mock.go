package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// MockS3Client implements S3ClientInterface for testing without AWS credentials
type MockS3Client struct {
	Bucket   string
	Region   string
	Endpoint string

	mu       sync.Mutex
	Uploaded map[string][]byte

	// Optional function overrides for custom test behavior
	GenerateExportKeyFunc func(kind string, now time.Time) (string, error)
	UploadFileFunc        func(ctx context.Context, key string, file io.Reader, contentType string) (string, error)
	PresignDownloadFunc   func(ctx context.Context, key string, ttl time.Duration) (string, error)
	DeleteFileFunc        func(ctx context.Context, key string) error
	GetFileURLFunc        func(key string) string
}

// NewMockS3Client creates a new mock S3 client for testing
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{
		Bucket:   "test-bucket",
		Region:   "ap-northeast-2",
		Uploaded: make(map[string][]byte),
	}
}

func (m *MockS3Client) GenerateExportKey(kind string, now time.Time) (string, error) {
	if m.GenerateExportKeyFunc != nil {
		return m.GenerateExportKeyFunc(kind, now)
	}
	return generateExportKey(kind, now)
}

// UploadFile records the uploaded body in Uploaded
func (m *MockS3Client) UploadFile(ctx context.Context, key string, file io.Reader, contentType string) (string, error) {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, key, file, contentType)
	}

	body, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.Uploaded[key] = body
	m.mu.Unlock()
	return m.GetFileURL(key), nil
}

func (m *MockS3Client) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.PresignDownloadFunc != nil {
		return m.PresignDownloadFunc(ctx, key, ttl)
	}
	return fmt.Sprintf("%s?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Expires=%d&X-Amz-Signature=mocksignature123",
		m.GetFileURL(key), int(ttl.Seconds())), nil
}

func (m *MockS3Client) DeleteFile(ctx context.Context, key string) error {
	if m.DeleteFileFunc != nil {
		return m.DeleteFileFunc(ctx, key)
	}
	m.mu.Lock()
	delete(m.Uploaded, key)
	m.mu.Unlock()
	return nil
}

func (m *MockS3Client) GetFileURL(key string) string {
	if m.GetFileURLFunc != nil {
		return m.GetFileURLFunc(key)
	}
	if m.Endpoint != "" && !strings.Contains(m.Endpoint, "amazonaws.com") {
		return fmt.Sprintf("%s/%s/%s", m.Endpoint, m.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", m.Bucket, m.Region, key)
}

var _ S3ClientInterface = (*S3Client)(nil)

// UploadedBody returns the body stored under key
func (m *MockS3Client) UploadedBody(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.Uploaded[key]
	return body, ok
}

// Ensure MockS3Client implements S3ClientInterface
var _ S3ClientInterface = (*MockS3Client)(nil)
