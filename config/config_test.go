package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.DB.Server = "db.internal"
	cfg.DB.Database = "reporting"
	cfg.DB.User = "exporter"
	cfg.DB.Password = "secret"
	cfg.Storage.Bucket = "exports"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DBDriverMSSQL, cfg.DB.Driver)
	assert.Equal(t, 0, cfg.DB.Port, "the DSN picks the port per driver")
	assert.Equal(t, 15*time.Second, cfg.DB.ConnectTimeout)
	assert.Equal(t, StorageS3, cfg.Storage.Type)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DB_SERVER", "sql.example.com")
	t.Setenv("DB_NAME", "sales")
	t.Setenv("DB_USER", "reader")
	t.Setenv("DB_PASSWORD", "p@ss")
	t.Setenv("S3_BUCKET_NAME", "reports")
	t.Setenv("SP_EXPORT_STORAGE_TYPE", "minio")
	t.Setenv("SP_EXPORT_STORAGE_ACCESS_KEY", "minioadmin")
	t.Setenv("SP_EXPORT_DB_PORT", "14330")
	t.Setenv("SP_EXPORT_REDIS_HOST", "cache")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sql.example.com", cfg.DB.Server)
	assert.Equal(t, "sales", cfg.DB.Database)
	assert.Equal(t, "reader", cfg.DB.User)
	assert.Equal(t, "p@ss", cfg.DB.Password)
	assert.Equal(t, "reports", cfg.Storage.Bucket)
	assert.Equal(t, StorageMinIO, cfg.Storage.Type)
	assert.Equal(t, "minioadmin", cfg.Storage.AccessKey)
	assert.Equal(t, 14330, cfg.DB.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	require.NoError(t, cfg.Validate())
}

func TestLoad_LegacyNamesLoseToCanonical(t *testing.T) {
	t.Setenv("s3_bucket_name", "legacy-bucket")
	t.Setenv("userid", "legacy-user")
	t.Setenv("DB_USER", "canonical-user")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "legacy-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "canonical-user", cfg.DB.User)
}

func TestLoad_FileThenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sp-export.yaml")
	content := `
db:
  server: from-file
  database: warehouse
  connect_timeout: 3s
storage:
  bucket: file-bucket
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("bucket", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--bucket", "flag-bucket"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.DB.Server)
	assert.Equal(t, "warehouse", cfg.DB.Database)
	assert.Equal(t, 3*time.Second, cfg.DB.ConnectTimeout)
	assert.Equal(t, "flag-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing server and bucket",
			mutate:  func(c *Config) { c.DB.Server = ""; c.Storage.Bucket = " " },
			wantErr: "DB_SERVER, S3_BUCKET_NAME",
		},
		{
			name:    "missing password",
			mutate:  func(c *Config) { c.DB.Password = "" },
			wantErr: "DB_PASSWORD",
		},
		{
			name:    "bad driver",
			mutate:  func(c *Config) { c.DB.Driver = "oracle" },
			wantErr: "unsupported db driver",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.DB.Port = 70000 },
			wantErr: "db port is invalid",
		},
		{
			name:    "bad storage type",
			mutate:  func(c *Config) { c.Storage.Type = "gcs" },
			wantErr: "unsupported storage type",
		},
		{
			name: "local storage without path",
			mutate: func(c *Config) {
				c.Storage.Type = StorageLocal
				c.Storage.LocalPath = ""
			},
			wantErr: "SP_EXPORT_STORAGE_LOCAL_PATH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedactedYAML(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.SecretKey = "minio-secret"

	out, err := cfg.YAML()
	require.NoError(t, err)

	assert.NotContains(t, string(out), "secret\n")
	assert.NotContains(t, string(out), "minio-secret")
	assert.Contains(t, string(out), "********")
	assert.Contains(t, string(out), "server: db.internal")
	assert.Equal(t, "secret", cfg.DB.Password, "original config must not be modified")
}

func TestLoad_JSONLogsInsideLambda(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "sp-export")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}
