package services

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sp-export/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

func newObjectServer(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		mu.Unlock()

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newTestS3Service(srvURL, bucket string) *S3StorageService {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srvURL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
	return NewS3StorageServiceWithClient(client, bucket)
}

func TestS3StorageService_PutObject(t *testing.T) {
	srv, requests := newObjectServer(t, http.StatusOK)
	svc := newTestS3Service(srv.URL, "exports")

	payload := []byte("workbook-bytes")
	err := svc.PutObject(context.Background(), ObjectKey, bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/exports/"+ObjectKey, reqs[0].Path)
	assert.Equal(t, "s3://exports/"+ObjectKey, svc.Location(ObjectKey))
}

func TestS3StorageService_PutObjectRejected(t *testing.T) {
	srv, _ := newObjectServer(t, http.StatusForbidden)
	svc := newTestS3Service(srv.URL, "exports")

	payload := []byte("workbook-bytes")
	err := svc.PutObject(context.Background(), ObjectKey, bytes.NewReader(payload), int64(len(payload)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestMinIOStorageService_PutObject(t *testing.T) {
	srv, requests := newObjectServer(t, http.StatusOK)

	svc, err := NewMinIOStorageService(config.StorageConfig{
		Type:      config.StorageMinIO,
		Endpoint:  srv.URL,
		Bucket:    "exports",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}, false)
	require.NoError(t, err)

	payload := []byte("workbook-bytes")
	require.NoError(t, svc.PutObject(context.Background(), ObjectKey, bytes.NewReader(payload), int64(len(payload))))

	reqs := requests()
	require.NotEmpty(t, reqs)
	last := reqs[len(reqs)-1]
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, "/exports/"+ObjectKey, last.Path)
	assert.Equal(t, srv.URL+"/exports/"+ObjectKey, svc.Location(ObjectKey))
}

func TestParseMinIOEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		endpoint   string
		useSSL     bool
		wantHost   string
		wantSecure bool
		wantErr    bool
	}{
		{name: "bare host", endpoint: "localhost:9000", wantHost: "localhost:9000"},
		{name: "bare host ssl", endpoint: "minio.example.com", useSSL: true, wantHost: "minio.example.com", wantSecure: true},
		{name: "http scheme wins", endpoint: "http://minio:9000/", useSSL: true, wantHost: "minio:9000"},
		{name: "https scheme", endpoint: "https://minio.example.com", wantHost: "minio.example.com", wantSecure: true},
		{name: "empty", endpoint: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, secure, err := parseMinIOEndpoint(tt.endpoint, tt.useSSL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestLocalStorageService_Overwrites(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewLocalStorageService(dir, "exports")
	require.NoError(t, err)

	ctx := context.Background()
	first := []byte("first version, longer than the second")
	second := []byte("second")

	require.NoError(t, svc.PutObject(ctx, ObjectKey, bytes.NewReader(first), int64(len(first))))
	require.NoError(t, svc.PutObject(ctx, ObjectKey, bytes.NewReader(second), int64(len(second))))

	got, err := os.ReadFile(filepath.Join(dir, "exports", ObjectKey))
	require.NoError(t, err)
	assert.Equal(t, second, got)

	entries, err := os.ReadDir(filepath.Join(dir, "exports"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, filepath.Join(dir, "exports", ObjectKey), svc.Location(ObjectKey))
}

func TestNewStorageService(t *testing.T) {
	ctx := context.Background()

	local, err := NewStorageService(ctx, config.StorageConfig{
		Type:      config.StorageLocal,
		LocalPath: t.TempDir(),
		Bucket:    "b",
	}, false)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorageService{}, local)

	minioSvc, err := NewStorageService(ctx, config.StorageConfig{
		Type:     config.StorageMinIO,
		Endpoint: "localhost:9000",
		Bucket:   "b",
	}, false)
	require.NoError(t, err)
	assert.IsType(t, &MinIOStorageService{}, minioSvc)

	_, err = NewStorageService(ctx, config.StorageConfig{Type: "gcs"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}
