package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-pipeline-api/internal/config"
)

func testS3Config() *config.S3Config {
	return &config.S3Config{
		Bucket:    "test-bucket",
		Region:    "ap-northeast-2",
		AccessKey: "test-access-key",
		SecretKey: "test-secret-key",
	}
}

func TestGenerateExportKey(t *testing.T) {
	client, err := NewS3Client(testS3Config())
	require.NoError(t, err)

	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		kind    string
		wantErr bool
	}{
		{"board export", "board", false},
		{"stages export", "stages", false},
		{"customers export", "customers", false},
		{"invalid kind", "invoices", true},
		{"empty kind", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := client.GenerateExportKey(tt.kind, now)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "invalid export kind")
				return
			}

			require.NoError(t, err)
			// exports/{kind}/{year}/{month}/{uuid}_{timestamp}.json
			parts := strings.Split(key, "/")
			require.Len(t, parts, 5)
			assert.Equal(t, "exports", parts[0])
			assert.Equal(t, tt.kind, parts[1])
			assert.Equal(t, "2026", parts[2])
			assert.Equal(t, "03", parts[3])
			assert.True(t, strings.HasSuffix(parts[4], ".json"))
			assert.Contains(t, parts[4], "_")
		})
	}
}

func TestGenerateExportKey_Uniqueness(t *testing.T) {
	client, err := NewS3Client(testS3Config())
	require.NoError(t, err)

	now := time.Now()
	keys := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := client.GenerateExportKey("board", now)
		require.NoError(t, err)
		assert.False(t, keys[key], "Generated key should be unique")
		keys[key] = true
	}
}

func TestPresignDownload(t *testing.T) {
	client, err := NewS3Client(testS3Config())
	require.NoError(t, err)

	url, err := client.PresignDownload(context.Background(), "exports/board/2026/03/abc_1.json", 15*time.Minute)
	require.NoError(t, err)

	assert.Contains(t, url, "test-bucket")
	assert.Contains(t, url, "exports/board/2026/03/abc_1.json")
	assert.Contains(t, url, "X-Amz-Algorithm")
	assert.Contains(t, url, "X-Amz-Signature")
	assert.Contains(t, url, "X-Amz-Expires=900")
}

func TestNewS3Client_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.S3Config
		errContains string
	}{
		{"valid configuration", testS3Config(), ""},
		{"missing bucket", &config.S3Config{Region: "ap-northeast-2"}, "bucket is required"},
		{"missing region", &config.S3Config{Bucket: "test-bucket"}, "region is required"},
		{"custom endpoint without keys", &config.S3Config{Bucket: "b", Region: "us-east-1", Endpoint: "http://localhost:9000"}, "access key"},
		{"custom endpoint (MinIO)", &config.S3Config{
			Bucket: "b", Region: "us-east-1", AccessKey: "minioadmin", SecretKey: "minioadmin", Endpoint: "http://localhost:9000",
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewS3Client(tt.cfg)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, client)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestGetFileURL(t *testing.T) {
	client, err := NewS3Client(testS3Config())
	require.NoError(t, err)

	assert.Equal(t,
		"https://test-bucket.s3.ap-northeast-2.amazonaws.com/exports/board/2026/03/abc_1.json",
		client.GetFileURL("exports/board/2026/03/abc_1.json"))

	cfg := testS3Config()
	cfg.Endpoint = "http://localhost:9000/"
	minio, err := NewS3Client(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/test-bucket/k.json", minio.GetFileURL("k.json"))
}

func TestMockS3Client_RecordsUploads(t *testing.T) {
	mock := NewMockS3Client()

	url, err := mock.UploadFile(context.Background(), "exports/board/x.json", strings.NewReader(`{"ok":true}`), "application/json")
	require.NoError(t, err)
	assert.Contains(t, url, "exports/board/x.json")
	assert.Equal(t, `{"ok":true}`, string(mock.Uploaded["exports/board/x.json"]))

	require.NoError(t, mock.DeleteFile(context.Background(), "exports/board/x.json"))
	assert.NotContains(t, mock.Uploaded, "exports/board/x.json")
}
