package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"sp-export/config"
)

// ObjectKey is where every invocation writes its workbook. Each run
// overwrites the previous object.
const ObjectKey = "stored_procedure_results.xlsx"

// StorageService interface for the exported workbook
type StorageService interface {
	PutObject(ctx context.Context, key string, body io.ReadSeeker, size int64) error
	Location(key string) string
}

// LocalStorageService implements StorageService using local filesystem
type LocalStorageService struct {
	basePath string
	bucket   string
}

func NewLocalStorageService(basePath, bucket string) (*LocalStorageService, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(filepath.Join(basePath, bucket), 0755); err != nil {
		return nil, err
	}
	return &LocalStorageService{basePath: basePath, bucket: bucket}, nil
}

// PutObject writes through a temp file so a reader never sees a partial workbook
func (s *LocalStorageService) PutObject(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	fullPath := s.path(key)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".upload-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *LocalStorageService) Location(key string) string {
	return s.path(key)
}

func (s *LocalStorageService) path(key string) string {
	return filepath.Join(s.basePath, s.bucket, filepath.FromSlash(key))
}

// S3StorageService implements StorageService using AWS S3
type S3StorageService struct {
	client *s3.Client
	bucket string
}

func NewS3StorageService(ctx context.Context, cfg config.StorageConfig, tracing bool) (*S3StorageService, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if tracing {
		// Instrument AWS SDK v2 with X-Ray for automatic S3 operation tracing
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewS3StorageServiceWithClient(client, cfg.Bucket), nil
}

func NewS3StorageServiceWithClient(client *s3.Client, bucket string) *S3StorageService {
	return &S3StorageService{client: client, bucket: bucket}
}

// PutObject sets only bucket, key and body; no content type or metadata
func (s *S3StorageService) PutObject(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	return err
}

func (s *S3StorageService) Location(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// MinIOStorageService implements StorageService for S3 compatible servers
type MinIOStorageService struct {
	client *minio.Client
	bucket string
}

func NewMinIOStorageService(cfg config.StorageConfig, tracing bool) (*MinIOStorageService, error) {
	host, secure, err := parseMinIOEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		// MinIO doesn't use regions; setting one skips the bucket location lookup
		region = "us-east-1"
	}

	var transport http.RoundTripper = http.DefaultTransport
	if tracing {
		transport = xray.RoundTripper(transport)
	}

	client, err := minio.New(host, &minio.Options{
		BucketLookup: minio.BucketLookupPath,
		Creds:        miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       region,
		Transport:    transport,
	})
	if err != nil {
		return nil, err
	}
	return &MinIOStorageService{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinIOStorageService) PutObject(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{})
	return err
}

func (s *MinIOStorageService) Location(key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.client.EndpointURL().String(), "/"), s.bucket, key)
}

// parseMinIOEndpoint accepts "host:port" or a URL and returns the host plus
// whether TLS should be used. An explicit scheme wins over useSSL.
func parseMinIOEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, fmt.Errorf("minio endpoint is required")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return strings.TrimSuffix(endpoint, "/"), useSSL, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid minio endpoint: %q", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

// NewStorageService creates appropriate storage service based on configuration
func NewStorageService(ctx context.Context, cfg config.StorageConfig, tracing bool) (StorageService, error) {
	switch cfg.Type {
	case config.StorageS3, "":
		return NewS3StorageService(ctx, cfg, tracing)
	case config.StorageMinIO:
		return NewMinIOStorageService(cfg, tracing)
	case config.StorageLocal:
		return NewLocalStorageService(cfg.LocalPath, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
